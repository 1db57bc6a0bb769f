package httpdto

import "time"

type CreateAppointmentRequest struct {
	ClinicianID  string    `json:"clinician_id" binding:"required,uuid"`
	PatientID    string    `json:"patient_id" binding:"required,uuid"`
	PatientName  string    `json:"patient_name" binding:"required"`
	PatientEmail string    `json:"patient_email" binding:"omitempty,email"`
	PatientPhone string    `json:"patient_phone"`
	StartsAt     time.Time `json:"starts_at" binding:"required"`
	EndsAt       time.Time `json:"ends_at" binding:"required"`
	Notes        string    `json:"notes"`
}

type RescheduleAppointmentRequest struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}
