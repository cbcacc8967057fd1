package models

import (
	"time"
)

// Patient represents the medical profile attached to a User with role Patient.
// DoctorID is the single assigned doctor; it must be set before the patient
// can take part in any appointment-request flow.
type Patient struct {
	BaseModel
	UserID   string `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	DoctorID string `gorm:"size:36;index" json:"doctorId,omitempty"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`

	// Personal and medical details
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Gender            string     `gorm:"size:10" json:"gender,omitempty"`
	Phone             string     `gorm:"size:30" json:"phone,omitempty"`
	BloodType         string     `gorm:"size:5" json:"bloodType,omitempty"`
	Allergies         []string   `gorm:"serializer:json" json:"allergies,omitempty"`
	ChronicConditions []string   `gorm:"serializer:json" json:"chronicConditions,omitempty"`
	LastCheckup       *time.Time `json:"lastCheckup,omitempty"`

	// Paths of uploaded report files, served statically
	Reports []string `gorm:"serializer:json" json:"reports,omitempty"`

	// Relations
	User          User           `gorm:"foreignKey:UserID" json:"-"`
	Doctor        User           `gorm:"foreignKey:DoctorID" json:"-"`
	Diagnoses     []Diagnosis    `gorm:"foreignKey:PatientID" json:"diagnoses,omitempty"`
	Prescriptions []Prescription `gorm:"foreignKey:PatientID" json:"prescriptions,omitempty"`
}
