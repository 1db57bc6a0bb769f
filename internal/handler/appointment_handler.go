package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hms-server/internal/domain/appointment"
	"hms-server/internal/services"
	"hms-server/internal/transport/httpdto"
	apperrors "hms-server/pkg/errors"
	"hms-server/pkg/logger"
)

// AppointmentWriter is the slice of the write service the routes need.
type AppointmentWriter interface {
	Create(ctx context.Context, in services.CreateAppointmentInput) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, in services.RescheduleAppointmentInput) (*appointment.Appointment, error)
	Cancel(ctx context.Context, in services.CancelAppointmentInput) (*appointment.Appointment, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*appointment.Appointment, error)
}

type AppointmentHandler struct {
	svc AppointmentWriter
	log *logger.Logger
}

func NewAppointmentHandler(svc AppointmentWriter, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

func (h *AppointmentHandler) RegisterRoutes(r gin.IRouter) {
	appts := r.Group("/appointments")
	appts.POST("", h.Create)
	appts.GET("/:id", h.Get)
	appts.POST("/:id/reschedule", h.Reschedule)
	appts.POST("/:id/cancel", h.Cancel)
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	tenantID, actorID, ok := identity(c)
	if !ok {
		return
	}

	var req httpdto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", err.Error()))
		return
	}
	clinicianID, _ := uuid.Parse(req.ClinicianID)
	patientID, _ := uuid.Parse(req.PatientID)

	appt, err := h.svc.Create(c.Request.Context(), services.CreateAppointmentInput{
		TenantID:     tenantID,
		ClinicianID:  clinicianID,
		PatientID:    patientID,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Notes:        req.Notes,
		ActorID:      actorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(appt))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	tenantID, _, ok := identity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", "invalid appointment id"))
		return
	}
	appt, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(appt))
}

func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	tenantID, actorID, ok := identity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", "invalid appointment id"))
		return
	}
	var req httpdto.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", err.Error()))
		return
	}

	appt, err := h.svc.Reschedule(c.Request.Context(), services.RescheduleAppointmentInput{
		TenantID:      tenantID,
		AppointmentID: id,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		ActorID:       actorID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(appt))
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	tenantID, actorID, ok := identity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", "invalid appointment id"))
		return
	}
	// cancel body is optional
	var req httpdto.CancelAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	appt, err := h.svc.Cancel(c.Request.Context(), services.CancelAppointmentInput{
		TenantID:      tenantID,
		AppointmentID: id,
		ActorID:       actorID,
		Reason:        req.Reason,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(appt))
}

// writeError maps service results to stable error tags: conflict → 409,
// not_found → 404, invalid_input → 400, anything else → 500 without
// leaking internals.
func (h *AppointmentHandler) writeError(c *gin.Context, err error) {
	if ce, ok := apperrors.AsConflict(err); ok {
		c.JSON(http.StatusConflict, httpdto.NewConflictResponse(ce.IDs))
		return
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not_found", ""))
		return
	}
	if errors.Is(err, apperrors.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", err.Error()))
		return
	}
	h.log.Errorf("appointment request failed: %v", err)
	c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("server_error", "internal error"))
	c.Error(err)
}

// identity pulls tenant and actor from headers set by the auth layer,
// which sits outside this service.
func identity(c *gin.Context) (tenantID, actorID uuid.UUID, ok bool) {
	tenantID, err := uuid.Parse(c.GetHeader("X-Tenant-Id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", "missing or invalid X-Tenant-Id header"))
		return uuid.Nil, uuid.Nil, false
	}
	actorID, err = uuid.Parse(c.GetHeader("X-Actor-Id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid_input", "missing or invalid X-Actor-Id header"))
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, actorID, true
}
