package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"doctor-portal-server/internal/config"
	"doctor-portal-server/internal/middleware"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/utils"
)

const maxReportSize = 5 << 20 // 5MB

var allowedReportExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// PatientHandler handles the patient-facing profile and appointment routes.
type PatientHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB, cfg *config.Config) *PatientHandler {
	return &PatientHandler{DB: db, Cfg: cfg}
}

// profile loads the Patient record for the logged-in user, writing the error
// response itself on failure.
func (h *PatientHandler) profile(c *gin.Context) (*models.Patient, bool) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.First(&patient, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &patient, true
}

// GetProfile returns the logged-in patient's profile with medical records.
func (h *PatientHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Preload("Diagnoses").Preload("Prescriptions").
		First(&patient, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Profile fetched successfully", patient)
}

// UpdateProfileRequest represents the editable fields of a patient profile.
type UpdateProfileRequest struct {
	Name              string     `json:"name"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	Gender            string     `json:"gender"`
	Phone             string     `json:"phone"`
	BloodType         string     `json:"bloodType"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronicConditions"`
}

// UpdateProfile updates the logged-in patient's personal details.
func (h *PatientHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.profile(c)
	if !ok {
		return
	}

	if req.Name != "" {
		patient.Name = req.Name
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != "" {
		patient.Gender = req.Gender
	}
	if req.Phone != "" {
		patient.Phone = req.Phone
	}
	if req.BloodType != "" {
		patient.BloodType = req.BloodType
	}
	if req.Allergies != nil {
		patient.Allergies = req.Allergies
	}
	if req.ChronicConditions != nil {
		patient.ChronicConditions = req.ChronicConditions
	}

	if err := h.DB.Save(patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}
	utils.Success(c, "Profile updated successfully", patient)
}

// GetAppointments returns the logged-in patient's appointments.
func (h *PatientHandler) GetAppointments(c *gin.Context) {
	patient, ok := h.profile(c)
	if !ok {
		return
	}

	var appointments []models.Appointment
	if err := h.DB.Where("patient_id = ?", patient.ID).
		Order("date asc").Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// BookAppointmentRequest represents the request body for booking directly.
type BookAppointmentRequest struct {
	Date  time.Time `json:"date" binding:"required"`
	Notes string    `json:"notes"`
}

// BookAppointment books an appointment with the patient's assigned doctor,
// subject to the same 30 minute conflict window the doctor side enforces.
func (h *PatientHandler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.profile(c)
	if !ok {
		return
	}
	if patient.DoctorID == "" {
		utils.BadRequest(c, "You are not assigned to a doctor yet")
		return
	}

	conflict, err := h.hasConflict(patient.DoctorID, req.Date, "")
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if conflict {
		utils.Conflict(c, "This time slot is already booked.")
		return
	}

	appointment := models.Appointment{
		DoctorID:  patient.DoctorID,
		PatientID: patient.ID,
		Date:      req.Date,
		Notes:     req.Notes,
		Status:    models.AppointmentScheduled,
	}
	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}
	utils.Created(c, "Appointment created successfully", appointment)
}

// RescheduleAppointment moves one of the patient's own appointments.
func (h *PatientHandler) RescheduleAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.profile(c)
	if !ok {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if appointment.PatientID != patient.ID {
		utils.Forbidden(c, "You are not authorized to update this appointment")
		return
	}

	conflict, err := h.hasConflict(appointment.DoctorID, req.Date, appointment.ID)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if conflict {
		utils.Conflict(c, "This time slot is already booked.")
		return
	}

	appointment.Date = req.Date
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to reschedule appointment: "+err.Error())
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

func (h *PatientHandler) hasConflict(doctorID string, date time.Time, excludeID string) (bool, error) {
	query := h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status <> ?", doctorID, models.AppointmentCancelled).
		Where("date >= ? AND date < ?",
			date.Add(-models.ConflictWindow), date.Add(models.ConflictWindow))
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CancelAppointment marks one of the patient's own appointments as cancelled.
func (h *PatientHandler) CancelAppointment(c *gin.Context) {
	patient, ok := h.profile(c)
	if !ok {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if appointment.PatientID != patient.ID {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}

	appointment.Status = models.AppointmentCancelled
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to cancel appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// UploadReport accepts a medical report file and records its path on the
// patient profile. Files are served from the configured upload directory.
func (h *PatientHandler) UploadReport(c *gin.Context) {
	patient, ok := h.profile(c)
	if !ok {
		return
	}

	file, err := c.FormFile("report")
	if err != nil {
		utils.BadRequest(c, "No report file provided")
		return
	}
	if file.Size > maxReportSize {
		utils.BadRequest(c, "Report file must be 5MB or smaller")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedReportExtensions[ext] {
		utils.BadRequest(c, "Only PDF, JPG, JPEG and PNG reports are accepted")
		return
	}

	filename := fmt.Sprintf("%s-%s%s", patient.ID, uuid.New().String(), ext)
	dest := filepath.Join(h.Cfg.UploadDir, filename)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		utils.InternalServerError(c, "Failed to save report: "+err.Error())
		return
	}

	patient.Reports = append(patient.Reports, filepath.ToSlash(filepath.Join("uploads", filename)))
	if err := h.DB.Save(patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to record report: "+err.Error())
		return
	}

	utils.Created(c, "Report uploaded successfully", gin.H{"reports": patient.Reports})
}
