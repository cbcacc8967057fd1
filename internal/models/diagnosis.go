package models

import (
	"time"
)

// Diagnosis records the clinical outcome of one appointment for a patient.
type Diagnosis struct {
	BaseModel
	PatientID        string    `gorm:"size:36;index;not null" json:"patientId"`
	AppointmentID    string    `gorm:"size:36;not null" json:"appointmentId"`
	Date             time.Time `json:"date"`
	ClinicalFindings []string  `gorm:"serializer:json" json:"clinicalFindings"`
	Diagnosis        []string  `gorm:"serializer:json" json:"diagnosis"`
	Plan             []string  `gorm:"serializer:json" json:"plan"`

	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
