package chat

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"doctor-portal-server/internal/models"
)

// RequestKind identifies which negotiation flow a submitted request starts.
type RequestKind string

const (
	RequestNew          RequestKind = "new"
	RequestReschedule   RequestKind = "reschedule"
	RequestCancellation RequestKind = "cancellation"
)

// dateFormat renders proposed dates inside human-readable response messages.
const dateFormat = "Jan 2, 2006 3:04 PM"

// MessageEditedPayload wraps the updated message for the messageEdited event.
type MessageEditedPayload struct {
	UpdatedMessage *models.Message `json:"updatedMessage"`
}

// Service implements the appointment-negotiation state machine. It validates
// inbound events, mutates Message and Appointment records through the
// injected Store, and fans results out to connected sessions through the
// presence Registry. Multi-document effects of a single decision run inside
// one store transaction.
type Service struct {
	store    Store
	registry *Registry
	log      zerolog.Logger
}

// NewService creates a negotiation service over the given store and registry.
func NewService(store Store, registry *Registry, log zerolog.Logger) *Service {
	return &Service{store: store, registry: registry, log: log}
}

func (s *Service) emit(userID, event string, data interface{}) {
	s.registry.Send(userID, OutEnvelope{Event: event, Data: data})
}

func (s *Service) emitBoth(a, b, event string, data interface{}) {
	s.emit(a, event, data)
	s.emit(b, event, data)
}

// SubmitRequest creates a pending request-type message. When the sender is a
// patient the receiver is their assigned doctor; a doctor sender must name a
// patient user assigned to them. The message is always persisted; live
// delivery to the receiver happens only if they are currently connected.
func (s *Service) SubmitRequest(kind RequestKind, senderID, receiverID string, requestedDate *time.Time, appointmentID, text string) (*models.Message, error) {
	patient, err := s.store.PatientByUserID(senderID)
	if err != nil {
		return nil, err
	}
	if patient != nil {
		if patient.DoctorID == "" {
			return nil, ValidationError("you must be assigned to a doctor to make a request")
		}
		receiverID = patient.DoctorID
	} else {
		// Doctor-initiated request toward one of their patients.
		if receiverID == "" {
			return nil, ValidationError("a receiver is required")
		}
		counterpart, err := s.store.PatientByUserID(receiverID)
		if err != nil {
			return nil, err
		}
		if counterpart == nil {
			return nil, NotFoundError("patient profile for user %s not found", receiverID)
		}
		if counterpart.DoctorID != senderID {
			return nil, AuthorizationError("patient is not assigned to you")
		}
	}

	var messageType models.MessageType
	switch kind {
	case RequestNew:
		messageType = models.MessageAppointmentRequest
	case RequestReschedule:
		messageType = models.MessageRescheduleRequest
	case RequestCancellation:
		messageType = models.MessageCancellationRequest
	default:
		return nil, ValidationError("unknown request kind %q", kind)
	}

	if kind != RequestCancellation && requestedDate == nil {
		return nil, ValidationError("a requested date is required")
	}
	if kind != RequestNew {
		if appointmentID == "" {
			return nil, ValidationError("an appointment id is required")
		}
		appointment, err := s.store.AppointmentByID(appointmentID)
		if err != nil {
			return nil, err
		}
		if appointment == nil {
			return nil, NotFoundError("appointment %s not found", appointmentID)
		}
	}

	if text == "" {
		switch kind {
		case RequestNew:
			text = fmt.Sprintf("Appointment request for %s", requestedDate.Format(dateFormat))
		case RequestReschedule:
			text = fmt.Sprintf("I would like to reschedule my appointment to %s.", requestedDate.Format(dateFormat))
		case RequestCancellation:
			text = "I would like to cancel my appointment."
		}
	}

	request := &models.Message{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Content:       text,
		MessageType:   messageType,
		Status:        models.StatusPending,
		RequestedDate: requestedDate,
		AppointmentID: appointmentID,
	}
	if err := s.store.CreateMessage(request); err != nil {
		return nil, err
	}

	s.emit(receiverID, EventReceiveMessage, request)
	return request, nil
}

// Respond applies the receiver's decision to a pending request. On accept the
// side effect depends on the request type: a new appointment is created for a
// chat or counter request, the linked appointment is moved for a reschedule
// request, and nothing is mutated for a cancellation request (cancelling the
// appointment itself remains an explicit doctor action). The status update,
// any appointment write and the response message commit atomically; on a
// calendar conflict nothing is applied and the request stays pending.
func (s *Service) Respond(messageID string, decision models.RequestStatus, actingUserID string) (*models.Message, *models.Message, error) {
	if decision != models.StatusAccepted && decision != models.StatusDenied {
		return nil, nil, ValidationError("decision must be accepted or denied, got %q", decision)
	}

	request, err := s.store.MessageByID(messageID)
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, NotFoundError("message %s not found", messageID)
	}
	if !request.MessageType.IsRequest() {
		return nil, nil, ValidationError("message %s is not a request", messageID)
	}
	if request.Status.Terminal() {
		return nil, nil, ValidationError("request %s is already %s", messageID, request.Status)
	}
	if actingUserID != request.ReceiverID {
		return nil, nil, AuthorizationError("only the receiving party may respond to this request")
	}

	response := &models.Message{
		SenderID:    request.ReceiverID,
		ReceiverID:  request.SenderID,
		MessageType: models.MessageAppointmentResponse,
	}
	if request.MessageType == models.MessageCancellationRequest {
		response.MessageType = models.MessageCancellationResponse
	}

	err = s.store.Transaction(func(tx Store) error {
		if decision == models.StatusAccepted {
			if err := s.applyAccept(tx, request, response); err != nil {
				return err
			}
		} else {
			response.Content = deniedText(request)
		}

		request.Status = decision
		if err := tx.SaveMessage(request); err != nil {
			return err
		}
		return tx.CreateMessage(response)
	})
	if err != nil {
		return nil, nil, err
	}

	s.emitBoth(request.SenderID, request.ReceiverID, EventRequestUpdated, request)
	s.emitBoth(request.SenderID, request.ReceiverID, EventReceiveMessage, response)
	return request, response, nil
}

// applyAccept performs the appointment side effect of an accepted request and
// fills in the response text. Runs inside the caller's transaction.
func (s *Service) applyAccept(tx Store, request, response *models.Message) error {
	switch request.MessageType {
	case models.MessageAppointmentRequest, models.MessageAppointmentCounter:
		if request.RequestedDate == nil {
			return ValidationError("request %s has no requested date", request.ID)
		}
		doctorID, patient, err := resolveParties(tx, request)
		if err != nil {
			return err
		}
		conflict, err := tx.HasConflict(doctorID, *request.RequestedDate, "")
		if err != nil {
			return err
		}
		if conflict {
			return ConflictError("this time slot is already booked")
		}
		appointment := &models.Appointment{
			DoctorID:  doctorID,
			PatientID: patient.ID,
			Date:      *request.RequestedDate,
			Notes:     fmt.Sprintf("Booked via chat request on %s", time.Now().Format("Jan 2, 2006")),
			Status:    models.AppointmentScheduled,
		}
		if err := tx.CreateAppointment(appointment); err != nil {
			return err
		}
		response.Content = fmt.Sprintf("Your appointment for %s has been CONFIRMED.",
			request.RequestedDate.Format(dateFormat))

	case models.MessageRescheduleRequest:
		if request.RequestedDate == nil {
			return ValidationError("request %s has no requested date", request.ID)
		}
		appointment, err := tx.AppointmentByID(request.AppointmentID)
		if err != nil {
			return err
		}
		if appointment == nil {
			return NotFoundError("appointment %s no longer exists", request.AppointmentID)
		}
		conflict, err := tx.HasConflict(appointment.DoctorID, *request.RequestedDate, appointment.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ConflictError("this time slot is already booked")
		}
		appointment.Date = *request.RequestedDate
		if err := tx.SaveAppointment(appointment); err != nil {
			return err
		}
		response.Content = fmt.Sprintf("Your reschedule request was approved. Your appointment is now at %s.",
			request.RequestedDate.Format(dateFormat))

	case models.MessageCancellationRequest:
		// Accepting a cancellation request does not touch the appointment;
		// the doctor cancels it explicitly through their own routes.
		response.Content = "Your cancellation request has been accepted."

	default:
		return ValidationError("message type %s cannot be accepted", request.MessageType)
	}
	return nil
}

// resolveParties determines which side of the request is the doctor and which
// is the patient by profile lookup instead of inferring the roles from the
// message type.
func resolveParties(tx Store, request *models.Message) (doctorID string, patient *models.Patient, err error) {
	patient, err = tx.PatientByUserID(request.SenderID)
	if err != nil {
		return "", nil, err
	}
	if patient != nil {
		return request.ReceiverID, patient, nil
	}
	patient, err = tx.PatientByUserID(request.ReceiverID)
	if err != nil {
		return "", nil, err
	}
	if patient != nil {
		return request.SenderID, patient, nil
	}
	return "", nil, NotFoundError("no patient profile found for either party of message %s", request.ID)
}

func deniedText(request *models.Message) string {
	if request.MessageType == models.MessageCancellationRequest {
		return "Your cancellation request was denied."
	}
	if request.RequestedDate != nil {
		return fmt.Sprintf("Your request for an appointment on %s was denied.",
			request.RequestedDate.Format(dateFormat))
	}
	return "Your appointment request was denied."
}

// Counter resolves a pending request with a counter-proposal: the original is
// marked countered (terminal) and a fresh pending appointment_counter message
// carries the proposed date back to the requester.
func (s *Service) Counter(originalMessageID string, newDate time.Time, senderID, receiverID string) (*models.Message, *models.Message, error) {
	original, err := s.store.MessageByID(originalMessageID)
	if err != nil {
		return nil, nil, err
	}
	if original == nil {
		return nil, nil, NotFoundError("message %s not found", originalMessageID)
	}
	if !original.MessageType.IsRequest() {
		return nil, nil, ValidationError("message %s is not a request", originalMessageID)
	}
	if original.Status.Terminal() {
		return nil, nil, ValidationError("request %s is already %s", originalMessageID, original.Status)
	}
	if senderID != original.ReceiverID {
		return nil, nil, AuthorizationError("only the receiving party may counter this request")
	}

	counter := &models.Message{
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Content:       "The requested time is unavailable. A new time has been proposed.",
		MessageType:   models.MessageAppointmentCounter,
		Status:        models.StatusPending,
		RequestedDate: &newDate,
	}

	err = s.store.Transaction(func(tx Store) error {
		original.Status = models.StatusCountered
		if err := tx.SaveMessage(original); err != nil {
			return err
		}
		return tx.CreateMessage(counter)
	})
	if err != nil {
		return nil, nil, err
	}

	s.emitBoth(senderID, receiverID, EventRequestUpdated, original)
	s.emitBoth(senderID, receiverID, EventReceiveMessage, counter)
	return original, counter, nil
}

// Edit changes the text of an own plain-text message. Request-type messages
// are immutable once sent.
func (s *Service) Edit(messageID, newText, actingUserID string) (*models.Message, error) {
	message, err := s.store.MessageByID(messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, NotFoundError("message %s not found", messageID)
	}
	if message.MessageType != models.MessageText {
		return nil, ValidationError("only text messages can be edited")
	}
	if actingUserID != message.SenderID {
		return nil, AuthorizationError("only the sender may edit a message")
	}

	message.Content = newText
	message.IsEdited = true
	if err := s.store.SaveMessage(message); err != nil {
		return nil, err
	}

	s.emitBoth(message.SenderID, message.ReceiverID, EventMessageEdited,
		MessageEditedPayload{UpdatedMessage: message})
	return message, nil
}

// Remove deletes an own message. Deleting a still-pending request first
// announces the withdrawal to the receiver with a synthesized response
// message, delivered before the delete is broadcast.
func (s *Service) Remove(messageID, actingUserID string) error {
	message, err := s.store.MessageByID(messageID)
	if err != nil {
		return err
	}
	if message == nil {
		return NotFoundError("message %s not found", messageID)
	}
	if actingUserID != message.SenderID {
		return AuthorizationError("only the sender may delete a message")
	}

	withdrawable := message.Status == models.StatusPending &&
		(message.MessageType == models.MessageAppointmentRequest ||
			message.MessageType == models.MessageAppointmentCounter ||
			message.MessageType == models.MessageRescheduleRequest)

	var announcement *models.Message
	err = s.store.Transaction(func(tx Store) error {
		if withdrawable {
			announcement = &models.Message{
				SenderID:    message.SenderID,
				ReceiverID:  message.ReceiverID,
				Content:     "An appointment request was cancelled.",
				MessageType: models.MessageAppointmentResponse,
			}
			if err := tx.CreateMessage(announcement); err != nil {
				return err
			}
		}
		return tx.DeleteMessage(message.ID)
	})
	if err != nil {
		return err
	}

	if announcement != nil {
		s.emit(message.ReceiverID, EventReceiveMessage, announcement)
	}
	s.emitBoth(message.SenderID, message.ReceiverID, EventMessageDeleted,
		MessageDeletedPayload{MessageID: message.ID})
	return nil
}

// SendText persists a plain chat message and echoes it to both parties, the
// sender included so their other devices stay in sync.
func (s *Service) SendText(senderID, receiverID, text string) (*models.Message, error) {
	if senderID == "" || receiverID == "" {
		return nil, ValidationError("sender and receiver are required")
	}
	if text == "" {
		return nil, ValidationError("message text is required")
	}

	message := &models.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     text,
		MessageType: models.MessageText,
	}
	if err := s.store.CreateMessage(message); err != nil {
		return nil, err
	}

	s.emitBoth(receiverID, senderID, EventReceiveMessage, message)
	return message, nil
}
