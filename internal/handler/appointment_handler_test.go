package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hms-server/internal/domain/appointment"
	"hms-server/internal/services"
	apperrors "hms-server/pkg/errors"
	"hms-server/pkg/logger"
)

type fakeWriter struct {
	createIn  *services.CreateAppointmentInput
	rescheIn  *services.RescheduleAppointmentInput
	cancelIn  *services.CancelAppointmentInput
	appt      *appointment.Appointment
	createErr error
	rescheErr error
	cancelErr error
	getErr    error
}

func (f *fakeWriter) Create(ctx context.Context, in services.CreateAppointmentInput) (*appointment.Appointment, error) {
	f.createIn = &in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.appt, nil
}

func (f *fakeWriter) Reschedule(ctx context.Context, in services.RescheduleAppointmentInput) (*appointment.Appointment, error) {
	f.rescheIn = &in
	if f.rescheErr != nil {
		return nil, f.rescheErr
	}
	return f.appt, nil
}

func (f *fakeWriter) Cancel(ctx context.Context, in services.CancelAppointmentInput) (*appointment.Appointment, error) {
	f.cancelIn = &in
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.appt, nil
}

func (f *fakeWriter) Get(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.appt, nil
}

func newTestRouter(w *fakeWriter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewAppointmentHandler(w, logger.New(logger.DevelopmentMode)).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, tenantID, actorID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != uuid.Nil {
		req.Header.Set("X-Tenant-Id", tenantID.String())
	}
	if actorID != uuid.Nil {
		req.Header.Set("X-Actor-Id", actorID.String())
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sampleAppointment() *appointment.Appointment {
	now := time.Now().UTC().Truncate(time.Second)
	return &appointment.Appointment{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		ClinicianID: uuid.New(),
		PatientID:   uuid.New(),
		PatientName: "Ada Nkemelu",
		StartsAt:    now.Add(time.Hour),
		EndsAt:      now.Add(90 * time.Minute),
		Status:      appointment.StatusScheduled,
	}
}

func createBody(appt *appointment.Appointment) map[string]any {
	return map[string]any{
		"clinician_id": appt.ClinicianID.String(),
		"patient_id":   appt.PatientID.String(),
		"patient_name": appt.PatientName,
		"starts_at":    appt.StartsAt,
		"ends_at":      appt.EndsAt,
	}
}

func TestCreateAppointmentReturns201(t *testing.T) {
	appt := sampleAppointment()
	w := &fakeWriter{appt: appt}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments", appt.TenantID, uuid.New(), createBody(appt))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Success bool                    `json:"success"`
		Data    appointment.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, appt.ID, resp.Data.ID)
	require.NotNil(t, w.createIn)
	assert.Equal(t, appt.TenantID, w.createIn.TenantID)
	assert.Equal(t, appt.ClinicianID, w.createIn.ClinicianID)
}

func TestCreateAppointmentConflictReturns409WithIDs(t *testing.T) {
	appt := sampleAppointment()
	blocking := uuid.New()
	w := &fakeWriter{createErr: &apperrors.ConflictError{IDs: []uuid.UUID{blocking}}}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments", appt.TenantID, uuid.New(), createBody(appt))

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Success     bool        `json:"success"`
		Error       string      `json:"error"`
		ConflictIDs []uuid.UUID `json:"conflict_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "conflict", resp.Error)
	assert.Equal(t, []uuid.UUID{blocking}, resp.ConflictIDs)
}

func TestCreateAppointmentRejectsMissingFields(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments", uuid.New(), uuid.New(), map[string]any{
		"patient_name": "Ada",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, w.createIn)
}

func TestCreateAppointmentRequiresIdentityHeaders(t *testing.T) {
	appt := sampleAppointment()
	w := &fakeWriter{appt: appt}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments", uuid.Nil, uuid.Nil, createBody(appt))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, w.createIn)
}

func TestGetAppointmentNotFoundReturns404(t *testing.T) {
	w := &fakeWriter{getErr: apperrors.ErrNotFound}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodGet, "/appointments/"+uuid.NewString(), uuid.New(), uuid.New(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestGetAppointmentRejectsBadID(t *testing.T) {
	w := &fakeWriter{}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodGet, "/appointments/not-a-uuid", uuid.New(), uuid.New(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescheduleAppointmentReturns200(t *testing.T) {
	appt := sampleAppointment()
	w := &fakeWriter{appt: appt}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule",
		appt.TenantID, uuid.New(), map[string]any{
			"starts_at": appt.StartsAt.Add(time.Hour),
			"ends_at":   appt.EndsAt.Add(time.Hour),
		})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, w.rescheIn)
	assert.Equal(t, appt.ID, w.rescheIn.AppointmentID)
	assert.Equal(t, appt.StartsAt.Add(time.Hour).Unix(), w.rescheIn.StartsAt.Unix())
}

func TestCancelAppointmentAcceptsEmptyBody(t *testing.T) {
	appt := sampleAppointment()
	w := &fakeWriter{appt: appt}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel",
		appt.TenantID, uuid.New(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, w.cancelIn)
	assert.Empty(t, w.cancelIn.Reason)
}

func TestCancelAppointmentPassesReason(t *testing.T) {
	appt := sampleAppointment()
	w := &fakeWriter{appt: appt}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel",
		appt.TenantID, uuid.New(), map[string]any{"reason": "patient request"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, w.cancelIn)
	assert.Equal(t, "patient request", w.cancelIn.Reason)
}

func TestUnknownErrorReturns500WithoutInternals(t *testing.T) {
	w := &fakeWriter{getErr: errors.New("pq: connection reset by peer")}
	r := newTestRouter(w)

	rec := doJSON(t, r, http.MethodGet, "/appointments/"+uuid.NewString(), uuid.New(), uuid.New(), nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "server_error")
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
