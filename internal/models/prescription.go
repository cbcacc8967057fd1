package models

import (
	"time"
)

// Medicine is a single prescribed item.
type Medicine struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// Investigation is a requested test or examination.
type Investigation struct {
	Name string `json:"name"`
}

// Prescription records the medicines and investigations ordered during one
// appointment.
type Prescription struct {
	BaseModel
	PatientID      string          `gorm:"size:36;index;not null" json:"patientId"`
	AppointmentID  string          `gorm:"size:36;not null" json:"appointmentId"`
	Date           time.Time       `json:"date"`
	Medicines      []Medicine      `gorm:"serializer:json" json:"medicines"`
	Investigations []Investigation `gorm:"serializer:json" json:"investigations"`

	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
}
