package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/middleware"
	"doctor-portal-server/internal/models"
	"doctor-portal-server/internal/utils"
)

// ChatHandler exposes the message history and the HTTP entry points for
// appointment requests. The negotiation itself lives in chat.Service.
type ChatHandler struct {
	DB      *gorm.DB
	Service *chat.Service
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(db *gorm.DB, service *chat.Service) *ChatHandler {
	return &ChatHandler{DB: db, Service: service}
}

// GetHistory returns the full conversation between two users, oldest first.
// Messages addressed to the requesting user are marked read.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	a := c.Param("userId1")
	b := c.Param("userId2")

	if userID != a && userID != b {
		utils.Forbidden(c, "You are not part of this conversation")
		return
	}

	var messages []models.Message
	if err := h.DB.
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at asc").Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	if err := h.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND `read` = ?", userID, other(userID, a, b), false).
		Update("read", true).Error; err != nil {
		utils.InternalServerError(c, "Failed to mark messages read: "+err.Error())
		return
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

func other(userID, a, b string) string {
	if userID == a {
		return b
	}
	return a
}

// AppointmentRequestBody represents the request body for a new appointment request.
type AppointmentRequestBody struct {
	ReceiverID string    `json:"receiverId"`
	Date       time.Time `json:"date" binding:"required"`
	Message    string    `json:"message"`
}

// RequestAppointment submits a new appointment request into the chat.
func (h *ChatHandler) RequestAppointment(c *gin.Context) {
	var req AppointmentRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	message, err := h.Service.SubmitRequest(chat.RequestNew, userID, req.ReceiverID, &req.Date, "", req.Message)
	if err != nil {
		writeChatError(c, err)
		return
	}
	utils.Created(c, "Appointment request sent", message)
}

// RescheduleRequestBody represents the request body for a reschedule request.
type RescheduleRequestBody struct {
	ReceiverID    string    `json:"receiverId"`
	AppointmentID string    `json:"appointmentId" binding:"required,uuid"`
	Date          time.Time `json:"date" binding:"required"`
	Message       string    `json:"message"`
}

// RequestReschedule submits a reschedule request for an existing appointment.
func (h *ChatHandler) RequestReschedule(c *gin.Context) {
	var req RescheduleRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	message, err := h.Service.SubmitRequest(chat.RequestReschedule, userID, req.ReceiverID, &req.Date, req.AppointmentID, req.Message)
	if err != nil {
		writeChatError(c, err)
		return
	}
	utils.Created(c, "Reschedule request sent", message)
}

// CancellationRequestBody represents the request body for a cancellation request.
type CancellationRequestBody struct {
	ReceiverID    string `json:"receiverId"`
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	Message       string `json:"message"`
}

// RequestCancellation submits a cancellation request for an existing appointment.
func (h *ChatHandler) RequestCancellation(c *gin.Context) {
	var req CancellationRequestBody
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	message, err := h.Service.SubmitRequest(chat.RequestCancellation, userID, req.ReceiverID, nil, req.AppointmentID, req.Message)
	if err != nil {
		writeChatError(c, err)
		return
	}
	utils.Created(c, "Cancellation request sent", message)
}

// writeChatError maps the chat package's typed errors onto HTTP responses.
func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, chat.ErrNotAuthorized):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, chat.ErrConflict):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalServerError(c, err.Error())
	}
}
