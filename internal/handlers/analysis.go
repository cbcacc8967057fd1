package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"doctor-portal-server/internal/analysis"
	"doctor-portal-server/internal/middleware"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/utils"
)

// AnalysisHandler generates AI health summaries for a doctor's patients.
type AnalysisHandler struct {
	DB         *gorm.DB
	Summarizer analysis.Summarizer
	Reports    analysis.ReportReader
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(db *gorm.DB, summarizer analysis.Summarizer, reports analysis.ReportReader) *AnalysisHandler {
	return &AnalysisHandler{DB: db, Summarizer: summarizer, Reports: reports}
}

// HealthSummary builds a structured health summary for one of the doctor's
// patients from their profile, records, reports and chat history.
func (h *AnalysisHandler) HealthSummary(c *gin.Context) {
	if h.Summarizer == nil {
		utils.InternalServerError(c, "Health summaries are not configured")
		return
	}

	doctorID, _ := middleware.GetUserIDFromContext(c)

	var patient models.Patient
	if err := h.DB.Preload("Diagnoses").Preload("Prescriptions").
		First(&patient, "id = ?", c.Param("patientId")).Error; err != nil {
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

	var messages []models.Message
	if err := h.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			doctorID, patient.UserID, patient.UserID, doctorID).
		Order("created_at asc").Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	patientData := analysis.FormatPatientData(&patient, messages, h.Reports)
	summary, err := h.Summarizer.Summarize(c.Request.Context(), patientData)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate health summary: "+err.Error())
		return
	}

	utils.Success(c, "Health summary generated successfully", summary)
}
