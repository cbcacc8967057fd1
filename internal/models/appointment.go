package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// ConflictWindow is the exclusion zone around an existing appointment's
// start time: no two appointments for the same doctor may start within
// [date-ConflictWindow, date+ConflictWindow).
const ConflictWindow = 30 * time.Minute

// Appointment represents a scheduled visit between a doctor and a patient.
// DoctorID references a User; PatientID references a Patient profile.
type Appointment struct {
	BaseModel
	DoctorID  string            `gorm:"size:36;index;not null" json:"doctorId"`
	PatientID string            `gorm:"size:36;index;not null" json:"patientId"`
	Date      time.Time         `gorm:"index;not null" json:"date"`
	Notes     string            `gorm:"type:text" json:"notes,omitempty"`
	Status    AppointmentStatus `gorm:"size:20;default:'Scheduled'" json:"status"`

	// Relations
	Doctor  User    `gorm:"foreignKey:DoctorID" json:"-"`
	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
