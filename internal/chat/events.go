package chat

import (
	"encoding/json"
	"time"
)

// Client -> server event names.
const (
	EventSendMessage    = "sendMessage"
	EventEditMessage    = "editMessage"
	EventDeleteMessage  = "deleteMessage"
	EventUpdateRequest  = "updateAppointmentRequest"
	EventCounterRequest = "counterAppointmentRequest"
)

// Server -> client event names.
const (
	EventReceiveMessage  = "receiveMessage"
	EventMessageEdited   = "messageEdited"
	EventMessageDeleted  = "messageDeleted"
	EventRequestUpdated  = "requestUpdated"
	EventNewNotification = "newNotification"
	EventRequestError    = "requestError"
)

// Envelope is the wire frame for every socket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutEnvelope pairs an event name with an already-materialized payload for
// the server -> client direction.
type OutEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SendMessagePayload carries a plain chat message.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// EditMessagePayload carries an edit to an existing text message.
type EditMessagePayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// DeleteMessagePayload carries a deletion of an own message.
type DeleteMessagePayload struct {
	MessageID  string `json:"messageId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// UpdateRequestPayload carries the receiver's decision on a pending request.
// SenderID/ReceiverID mirror the original request message, so SenderID is the
// requesting party and ReceiverID the deciding party.
type UpdateRequestPayload struct {
	MessageID  string `json:"messageId"`
	Status     string `json:"status"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// CounterRequestPayload carries a doctor's counter-proposal for a pending
// appointment request.
type CounterRequestPayload struct {
	OriginalMessageID string    `json:"originalMessageId"`
	NewDate           time.Time `json:"newDate"`
	SenderID          string    `json:"senderId"`
	ReceiverID        string    `json:"receiverId"`
}

// MessageDeletedPayload is broadcast after a successful delete.
type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

// RequestErrorPayload is sent back to the initiating connection when an
// inbound event fails, so realtime callers are not left guessing.
type RequestErrorPayload struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
