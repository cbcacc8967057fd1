package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/middleware"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/utils"
)

const noteDateFormat = "Jan 2, 2006 3:04 PM"

// DoctorHandler handles the doctor-facing patient and appointment routes.
// The registry is used to push chat notifications about appointments the
// doctor creates or cancels directly.
type DoctorHandler struct {
	DB       *gorm.DB
	Registry *chat.Registry
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, registry *chat.Registry) *DoctorHandler {
	return &DoctorHandler{DB: db, Registry: registry}
}

// GetPatients returns all patients assigned to the logged-in doctor.
func (h *DoctorHandler) GetPatients(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var patients []models.Patient
	if err := h.DB.Where("doctor_id = ?", doctorID).Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}
	utils.Success(c, "Patients fetched successfully", patients)
}

// GetPatientByID returns a single assigned patient with their records.
func (h *DoctorHandler) GetPatientByID(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Preload("Diagnoses").Preload("Prescriptions").
		First(&patient, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if patient.DoctorID != doctorID {
		utils.Forbidden(c, "You are not assigned to this patient")
		return
	}

	utils.Success(c, "Patient fetched successfully", patient)
}

// AddPatientRequest represents the request body for adding a patient.
type AddPatientRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
}

// AddPatient assigns an existing patient to the logged-in doctor, creating
// the user account and patient profile first if the email is unknown.
func (h *DoctorHandler) AddPatient(c *gin.Context) {
	var req AddPatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, _ := middleware.GetUserIDFromContext(c)

	var user models.User
	err := h.DB.Where("email = ?", req.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{Email: req.Email, Name: req.Name, Role: models.RolePatient}
		if err := user.SetPassword("defaultPassword123"); err != nil {
			utils.InternalServerError(c, "Failed to hash password: "+err.Error())
			return
		}
		if err := h.DB.Create(&user).Error; err != nil {
			utils.InternalServerError(c, "Failed to create user: "+err.Error())
			return
		}
	} else if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	var patient models.Patient
	err = h.DB.First(&patient, "user_id = ?", user.ID).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		patient = models.Patient{
			UserID:   user.ID,
			DoctorID: doctorID,
			Name:     user.Name,
			Email:    user.Email,
		}
		if err := h.DB.Create(&patient).Error; err != nil {
			utils.InternalServerError(c, "Failed to create patient: "+err.Error())
			return
		}
	case err != nil:
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	default:
		if patient.DoctorID != "" && patient.DoctorID != doctorID {
			utils.BadRequest(c, "This patient is already assigned to another doctor.")
			return
		}
		patient.DoctorID = doctorID
		if err := h.DB.Save(&patient).Error; err != nil {
			utils.InternalServerError(c, "Failed to update patient: "+err.Error())
			return
		}
	}

	utils.Created(c, "Patient added successfully", patient)
}

// UpdatePatientRequest represents the medical details a doctor can edit.
type UpdatePatientRequest struct {
	Name              string     `json:"name"`
	DateOfBirth       *time.Time `json:"dateOfBirth"`
	Gender            string     `json:"gender"`
	Phone             string     `json:"phone"`
	BloodType         string     `json:"bloodType"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronicConditions"`
	LastCheckup       *time.Time `json:"lastCheckup"`
}

// UpdatePatient updates the medical details of an assigned patient.
func (h *DoctorHandler) UpdatePatient(c *gin.Context) {
	var req UpdatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.assignedPatient(c)
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
	if req.LastCheckup != nil {
		patient.LastCheckup = req.LastCheckup
	}

	if err := h.DB.Save(patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to update patient: "+err.Error())
		return
	}
	utils.Success(c, "Patient updated successfully", patient)
}

// GetAppointments returns all appointments for the logged-in doctor.
func (h *DoctorHandler) GetAppointments(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var appointments []models.Appointment
	if err := h.DB.Preload("Patient").Where("doctor_id = ?", doctorID).
		Order("date asc").Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", appointments)
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PatientID string    `json:"patientId" binding:"required,uuid"`
	Date      time.Time `json:"date" binding:"required"`
	Notes     string    `json:"notes"`
}

// CreateAppointment books an appointment directly, enforcing the 30 minute
// conflict window, and notifies the patient through the chat channel.
func (h *DoctorHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, _ := middleware.GetUserIDFromContext(c)

	conflict, err := h.hasConflict(doctorID, req.Date, "")
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if conflict {
		utils.Conflict(c, "This time slot is already booked.")
		return
	}

	appointment := models.Appointment{
		DoctorID:  doctorID,
		PatientID: req.PatientID,
		Date:      req.Date,
		Notes:     req.Notes,
		Status:    models.AppointmentScheduled,
	}
	if err := h.DB.Create(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		return
	}

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", req.PatientID).Error; err == nil {
		h.sendChatNotice(doctorID, patient.UserID, models.MessageAppointmentResponse,
			fmt.Sprintf("A new appointment has been scheduled for you on %s.",
				req.Date.Format(noteDateFormat)))
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
type RescheduleAppointmentRequest struct {
	Date time.Time `json:"date" binding:"required"`
}

// RescheduleAppointment moves an appointment to a new date, enforcing the
// conflict window and excluding the appointment being moved.
func (h *DoctorHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, _ := middleware.GetUserIDFromContext(c)
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if appointment.DoctorID != doctorID {
		utils.Forbidden(c, "You are not authorized to update this appointment")
		return
	}

	conflict, err := h.hasConflict(doctorID, req.Date, appointmentID)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if conflict {
		utils.Conflict(c, "This time slot is already booked.")
		return
	}

	appointment.Date = req.Date
	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to reschedule appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

// DeleteAppointment cancels an appointment outright. The patient is told
// through a chat message before the record is removed.
func (h *DoctorHandler) DeleteAppointment(c *gin.Context) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if appointment.DoctorID != doctorID {
		utils.Forbidden(c, "You are not authorized to delete this appointment")
		return
	}

	h.sendChatNotice(doctorID, appointment.Patient.UserID, models.MessageCancellationResponse,
		fmt.Sprintf("Your appointment on %s has been cancelled by the doctor.",
			appointment.Date.Format(noteDateFormat)))

	if err := h.DB.Delete(&models.Appointment{}, "id = ?", appointment.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}

// AddDiagnosisRequest represents the request body for recording a diagnosis.
type AddDiagnosisRequest struct {
	AppointmentID    string   `json:"appointmentId" binding:"required,uuid"`
	ClinicalFindings []string `json:"clinicalFindings" binding:"required"`
	Diagnosis        []string `json:"diagnosis" binding:"required"`
	Plan             []string `json:"plan" binding:"required"`
}

// AddDiagnosis records a diagnosis for one of the doctor's patients.
func (h *DoctorHandler) AddDiagnosis(c *gin.Context) {
	var req AddDiagnosisRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.assignedPatient(c)
	if !ok {
		return
	}

	diagnosis := models.Diagnosis{
		PatientID:        patient.ID,
		AppointmentID:    req.AppointmentID,
		Date:             time.Now(),
		ClinicalFindings: req.ClinicalFindings,
		Diagnosis:        req.Diagnosis,
		Plan:             req.Plan,
	}
	if err := h.DB.Create(&diagnosis).Error; err != nil {
		utils.InternalServerError(c, "Failed to add diagnosis: "+err.Error())
		return
	}

	utils.Created(c, "Diagnosis added successfully", diagnosis)
}

// GetDiagnoses returns all diagnoses for one of the doctor's patients.
func (h *DoctorHandler) GetDiagnoses(c *gin.Context) {
	patient, ok := h.assignedPatient(c)
	if !ok {
		return
	}

	var diagnoses []models.Diagnosis
	if err := h.DB.Where("patient_id = ?", patient.ID).
		Order("date desc").Find(&diagnoses).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch diagnoses: "+err.Error())
		return
	}
	utils.Success(c, "Diagnoses fetched successfully", diagnoses)
}

// AddPrescriptionRequest represents the request body for a new prescription.
type AddPrescriptionRequest struct {
	AppointmentID  string                 `json:"appointmentId" binding:"required,uuid"`
	Medicines      []models.Medicine      `json:"medicines" binding:"required"`
	Investigations []models.Investigation `json:"investigations"`
}

// AddPrescription records a prescription for one of the doctor's patients.
func (h *DoctorHandler) AddPrescription(c *gin.Context) {
	var req AddPrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patient, ok := h.assignedPatient(c)
	if !ok {
		return
	}

	prescription := models.Prescription{
		PatientID:      patient.ID,
		AppointmentID:  req.AppointmentID,
		Date:           time.Now(),
		Medicines:      req.Medicines,
		Investigations: req.Investigations,
	}
	if err := h.DB.Create(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to add prescription: "+err.Error())
		return
	}

	utils.Created(c, "Prescription added successfully", prescription)
}

// GetPrescriptions returns all prescriptions for one of the doctor's patients.
func (h *DoctorHandler) GetPrescriptions(c *gin.Context) {
	patient, ok := h.assignedPatient(c)
	if !ok {
		return
	}

	var prescriptions []models.Prescription
	if err := h.DB.Where("patient_id = ?", patient.ID).
		Order("date desc").Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}

// assignedPatient loads the :id patient and checks assignment to the
// logged-in doctor, writing the error response itself on failure.
func (h *DoctorHandler) assignedPatient(c *gin.Context) (*models.Patient, bool) {
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.First(&patient, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	if patient.DoctorID != doctorID {
		utils.Forbidden(c, "You are not assigned to this patient")
		return nil, false
	}
	return &patient, true
}

// hasConflict checks the doctor's calendar for a non-cancelled appointment
// starting inside the conflict window around date.
func (h *DoctorHandler) hasConflict(doctorID string, date time.Time, excludeID string) (bool, error) {
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

// sendChatNotice persists a system chat message and pushes it live when the
// receiver is connected.
func (h *DoctorHandler) sendChatNotice(senderID, receiverID string, messageType models.MessageType, text string) {
	message := models.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     text,
		MessageType: messageType,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		return
	}
	h.Registry.Send(receiverID, chat.OutEnvelope{
		Event: chat.EventReceiveMessage,
		Data:  &message,
	})
}
