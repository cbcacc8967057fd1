package models

import (
	"time"
)

// MessageType distinguishes plain chat text from the typed negotiation
// messages exchanged during the appointment-request workflow.
type MessageType string

const (
	MessageText                 MessageType = "text"
	MessageAppointmentRequest   MessageType = "appointment_request"
	MessageAppointmentResponse  MessageType = "appointment_response"
	MessageAppointmentCounter   MessageType = "appointment_counter"
	MessageRescheduleRequest    MessageType = "appointment_reschedule_request"
	MessageCancellationRequest  MessageType = "appointment_cancellation_request"
	MessageCancellationResponse MessageType = "appointment_cancellation_response"
)

// IsRequest reports whether the type is a negotiable request that carries a
// lifecycle status.
func (t MessageType) IsRequest() bool {
	switch t {
	case MessageAppointmentRequest, MessageAppointmentCounter,
		MessageRescheduleRequest, MessageCancellationRequest:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a request-type message. It only
// moves forward: pending -> accepted | denied | countered | cancelled.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusDenied    RequestStatus = "denied"
	StatusCountered RequestStatus = "countered"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s RequestStatus) Terminal() bool {
	return s != StatusPending
}

// Message represents a chat message between two users. Request-type messages
// additionally carry a status, the proposed date and, for reschedule or
// cancellation requests, the targeted appointment.
type Message struct {
	BaseModel
	SenderID      string        `gorm:"size:36;index;not null" json:"senderId"`
	ReceiverID    string        `gorm:"size:36;index;not null" json:"receiverId"`
	Content       string        `gorm:"type:text;not null" json:"message"`
	MessageType   MessageType   `gorm:"size:40;default:'text'" json:"messageType"`
	Status        RequestStatus `gorm:"size:20;default:'pending'" json:"status"`
	RequestedDate *time.Time    `json:"requestedDate,omitempty"`
	AppointmentID string        `gorm:"size:36" json:"appointmentId,omitempty"`
	IsEdited      bool          `gorm:"default:false" json:"isEdited"`
	Read          bool          `gorm:"default:false" json:"read"`
	Notified      bool          `gorm:"default:false" json:"notified"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}
