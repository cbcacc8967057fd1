package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor-portal-server/internal/models"
)

// fakeStore is an in-memory Store for exercising the negotiation service
// without a database.
type fakeStore struct {
	seq          int
	messages     map[string]*models.Message
	appointments map[string]*models.Appointment
	patients     map[string]*models.Patient // keyed by UserID
	users        map[string]*models.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:     make(map[string]*models.Message),
		appointments: make(map[string]*models.Appointment),
		patients:     make(map[string]*models.Patient),
		users:        make(map[string]*models.User),
	}
}

func (s *fakeStore) nextID() string {
	s.seq++
	return fmt.Sprintf("id-%d", s.seq)
}

func (s *fakeStore) Transaction(fn func(Store) error) error { return fn(s) }

func (s *fakeStore) MessageByID(id string) (*models.Message, error) {
	if m, ok := s.messages[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateMessage(m *models.Message) error {
	if m.ID == "" {
		m.ID = s.nextID()
	}
	copied := *m
	s.messages[m.ID] = &copied
	return nil
}

func (s *fakeStore) SaveMessage(m *models.Message) error {
	copied := *m
	s.messages[m.ID] = &copied
	return nil
}

func (s *fakeStore) DeleteMessage(id string) error {
	delete(s.messages, id)
	return nil
}

func (s *fakeStore) AppointmentByID(id string) (*models.Appointment, error) {
	if a, ok := s.appointments[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateAppointment(a *models.Appointment) error {
	if a.ID == "" {
		a.ID = s.nextID()
	}
	copied := *a
	s.appointments[a.ID] = &copied
	return nil
}

func (s *fakeStore) SaveAppointment(a *models.Appointment) error {
	copied := *a
	s.appointments[a.ID] = &copied
	return nil
}

func (s *fakeStore) HasConflict(doctorID string, date time.Time, excludeID string) (bool, error) {
	for _, a := range s.appointments {
		if a.DoctorID != doctorID || a.Status == models.AppointmentCancelled || a.ID == excludeID {
			continue
		}
		if !a.Date.Before(date.Add(-models.ConflictWindow)) && a.Date.Before(date.Add(models.ConflictWindow)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) PatientByUserID(userID string) (*models.Patient, error) {
	if p, ok := s.patients[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) PatientByID(id string) (*models.Patient, error) {
	for _, p := range s.patients {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UserByID(id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

// fakeConn records every payload written to it.
type fakeConn struct {
	mu     sync.Mutex
	writes []OutEnvelope
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(OutEnvelope))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for _, w := range c.writes {
		names = append(names, w.Event)
	}
	return names
}

const (
	doctorUserID  = "doctor-1"
	patientUserID = "patient-user-1"
	patientID     = "patient-1"
)

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeConn, *fakeConn) {
	t.Helper()
	store := newFakeStore()
	store.users[doctorUserID] = &models.User{BaseModel: models.BaseModel{ID: doctorUserID}, Name: "Dr. Grey", Role: models.RoleDoctor}
	store.users[patientUserID] = &models.User{BaseModel: models.BaseModel{ID: patientUserID}, Name: "John", Role: models.RolePatient}
	store.patients[patientUserID] = &models.Patient{
		BaseModel: models.BaseModel{ID: patientID},
		UserID:    patientUserID,
		DoctorID:  doctorUserID,
		Name:      "John",
		Email:     "john@example.com",
	}

	registry := NewRegistry()
	doctorConn := &fakeConn{}
	patientConn := &fakeConn{}
	registry.Connect(doctorUserID, doctorConn)
	registry.Connect(patientUserID, patientConn)

	return NewService(store, registry, zerolog.Nop()), store, doctorConn, patientConn
}

func TestSubmitRequestRoutesToAssignedDoctor(t *testing.T) {
	service, store, doctorConn, patientConn := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// The receiver argument is ignored for patient senders.
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "someone-else", &date, "", "")
	require.NoError(t, err)

	assert.Equal(t, doctorUserID, msg.ReceiverID)
	assert.Equal(t, models.MessageAppointmentRequest, msg.MessageType)
	assert.Equal(t, models.StatusPending, msg.Status)
	assert.Equal(t, "Appointment request for Mar 1, 2025 10:00 AM", msg.Content)
	require.NotNil(t, store.messages[msg.ID])

	assert.Equal(t, []string{EventReceiveMessage}, doctorConn.events())
	assert.Empty(t, patientConn.events())
}

func TestSubmitRequestUnassignedPatient(t *testing.T) {
	service, store, _, _ := newTestService(t)
	store.patients[patientUserID].DoctorID = ""
	date := time.Now()

	_, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, store.messages)
}

func TestSubmitRequestDoctorNeedsOwnPatient(t *testing.T) {
	service, store, _, _ := newTestService(t)
	store.patients[patientUserID].DoctorID = "other-doctor"
	date := time.Now()

	_, err := service.SubmitRequest(RequestNew, doctorUserID, patientUserID, &date, "", "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSubmitRescheduleRequiresExistingAppointment(t *testing.T) {
	service, _, _, _ := newTestService(t)
	date := time.Now()

	_, err := service.SubmitRequest(RequestReschedule, patientUserID, "", &date, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.SubmitRequest(RequestReschedule, patientUserID, "", &date, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRespondAcceptCreatesOneAppointmentAndResponse(t *testing.T) {
	service, store, doctorConn, patientConn := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	request, response, err := service.Respond(msg.ID, models.StatusAccepted, doctorUserID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, request.Status)
	assert.Equal(t, models.StatusAccepted, store.messages[msg.ID].Status)

	require.Len(t, store.appointments, 1)
	for _, a := range store.appointments {
		assert.Equal(t, doctorUserID, a.DoctorID)
		assert.Equal(t, patientID, a.PatientID)
		assert.True(t, a.Date.Equal(date))
		assert.Equal(t, models.AppointmentScheduled, a.Status)
	}

	assert.Equal(t, models.MessageAppointmentResponse, response.MessageType)
	assert.Equal(t, "Your appointment for Mar 1, 2025 10:00 AM has been CONFIRMED.", response.Content)
	assert.Equal(t, doctorUserID, response.SenderID)
	assert.Equal(t, patientUserID, response.ReceiverID)

	assert.Contains(t, patientConn.events(), EventRequestUpdated)
	assert.Contains(t, patientConn.events(), EventReceiveMessage)
	assert.Contains(t, doctorConn.events(), EventRequestUpdated)
}

func TestRespondAcceptConflictLeavesRequestPending(t *testing.T) {
	service, store, _, _ := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	// An existing appointment 15 minutes later falls inside the window.
	require.NoError(t, store.CreateAppointment(&models.Appointment{
		DoctorID:  doctorUserID,
		PatientID: patientID,
		Date:      date.Add(15 * time.Minute),
		Status:    models.AppointmentScheduled,
	}))

	_, _, err = service.Respond(msg.ID, models.StatusAccepted, doctorUserID)
	assert.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, models.StatusPending, store.messages[msg.ID].Status)
	assert.Len(t, store.appointments, 1)
	assert.Len(t, store.messages, 1)
}

func TestRespondDeny(t *testing.T) {
	service, store, _, _ := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	request, response, err := service.Respond(msg.ID, models.StatusDenied, doctorUserID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDenied, request.Status)
	assert.Equal(t, "Your request for an appointment on Mar 1, 2025 10:00 AM was denied.", response.Content)
	assert.Empty(t, store.appointments)
}

func TestRespondOnlyReceiverMayAct(t *testing.T) {
	service, _, _, _ := newTestService(t)
	date := time.Now()
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	_, _, err = service.Respond(msg.ID, models.StatusAccepted, patientUserID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRespondRejectsTerminalRequest(t *testing.T) {
	service, _, _, _ := newTestService(t)
	date := time.Now().Add(24 * time.Hour)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	_, _, err = service.Respond(msg.ID, models.StatusDenied, doctorUserID)
	require.NoError(t, err)

	_, _, err = service.Respond(msg.ID, models.StatusAccepted, doctorUserID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRespondRejectsBadDecision(t *testing.T) {
	service, _, _, _ := newTestService(t)

	_, _, err := service.Respond("whatever", models.StatusCountered, doctorUserID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCounterMarksOriginalAndProposesNewTime(t *testing.T) {
	service, store, doctorConn, patientConn := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)
	newDate := date.Add(2 * time.Hour)

	original, counter, err := service.Counter(msg.ID, newDate, doctorUserID, patientUserID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCountered, original.Status)
	assert.Equal(t, models.StatusCountered, store.messages[msg.ID].Status)

	assert.Equal(t, models.MessageAppointmentCounter, counter.MessageType)
	assert.Equal(t, models.StatusPending, counter.Status)
	require.NotNil(t, counter.RequestedDate)
	assert.True(t, counter.RequestedDate.Equal(newDate))

	assert.Contains(t, doctorConn.events(), EventRequestUpdated)
	assert.Contains(t, patientConn.events(), EventReceiveMessage)
}

func TestCounterOnlyReceiverMayCounter(t *testing.T) {
	service, _, _, _ := newTestService(t)
	date := time.Now()
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	_, _, err = service.Counter(msg.ID, date.Add(time.Hour), patientUserID, doctorUserID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAcceptedCounterCreatesAppointment(t *testing.T) {
	service, store, _, _ := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)
	newDate := date.Add(2 * time.Hour)

	_, counter, err := service.Counter(msg.ID, newDate, doctorUserID, patientUserID)
	require.NoError(t, err)

	// The patient accepts the doctor's counter-proposal.
	_, _, err = service.Respond(counter.ID, models.StatusAccepted, patientUserID)
	require.NoError(t, err)

	require.Len(t, store.appointments, 1)
	for _, a := range store.appointments {
		assert.True(t, a.Date.Equal(newDate))
		assert.Equal(t, doctorUserID, a.DoctorID)
		assert.Equal(t, patientID, a.PatientID)
	}
}

func TestAcceptedRescheduleMovesAppointment(t *testing.T) {
	service, store, _, _ := newTestService(t)
	originalDate := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	appointment := &models.Appointment{
		DoctorID:  doctorUserID,
		PatientID: patientID,
		Date:      originalDate,
		Status:    models.AppointmentScheduled,
	}
	require.NoError(t, store.CreateAppointment(appointment))

	// Moving by 15 minutes stays inside the appointment's own window; the
	// conflict check must exclude the appointment being moved.
	newDate := originalDate.Add(15 * time.Minute)
	msg, err := service.SubmitRequest(RequestReschedule, patientUserID, "", &newDate, appointment.ID, "")
	require.NoError(t, err)

	_, response, err := service.Respond(msg.ID, models.StatusAccepted, doctorUserID)
	require.NoError(t, err)

	assert.True(t, store.appointments[appointment.ID].Date.Equal(newDate))
	assert.Len(t, store.appointments, 1)
	assert.Contains(t, response.Content, "reschedule request was approved")
}

func TestAcceptedCancellationLeavesAppointmentUntouched(t *testing.T) {
	service, store, _, _ := newTestService(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	appointment := &models.Appointment{
		DoctorID:  doctorUserID,
		PatientID: patientID,
		Date:      date,
		Status:    models.AppointmentScheduled,
	}
	require.NoError(t, store.CreateAppointment(appointment))

	msg, err := service.SubmitRequest(RequestCancellation, patientUserID, "", nil, appointment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.MessageCancellationRequest, msg.MessageType)
	assert.Equal(t, "I would like to cancel my appointment.", msg.Content)

	_, response, err := service.Respond(msg.ID, models.StatusAccepted, doctorUserID)
	require.NoError(t, err)

	assert.Equal(t, models.MessageCancellationResponse, response.MessageType)
	assert.Equal(t, "Your cancellation request has been accepted.", response.Content)
	assert.Equal(t, models.AppointmentScheduled, store.appointments[appointment.ID].Status)
	assert.True(t, store.appointments[appointment.ID].Date.Equal(date))
}

func TestRemovePendingRequestAnnouncesBeforeDelete(t *testing.T) {
	service, store, doctorConn, _ := newTestService(t)
	date := time.Now().Add(48 * time.Hour)
	msg, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)
	doctorConn.reset()

	require.NoError(t, service.Remove(msg.ID, patientUserID))

	_, gone := store.messages[msg.ID]
	assert.False(t, gone)

	// One announcement message survives the delete.
	require.Len(t, store.messages, 1)
	for _, m := range store.messages {
		assert.Equal(t, "An appointment request was cancelled.", m.Content)
		assert.Equal(t, models.MessageAppointmentResponse, m.MessageType)
	}

	require.Equal(t, []string{EventReceiveMessage, EventMessageDeleted}, doctorConn.events())
}

func TestRemoveTextMessageSkipsAnnouncement(t *testing.T) {
	service, store, doctorConn, _ := newTestService(t)
	msg, err := service.SendText(patientUserID, doctorUserID, "hello")
	require.NoError(t, err)
	doctorConn.reset()

	require.NoError(t, service.Remove(msg.ID, patientUserID))

	assert.Empty(t, store.messages)
	assert.Equal(t, []string{EventMessageDeleted}, doctorConn.events())
}

func TestRemoveOnlySender(t *testing.T) {
	service, store, _, _ := newTestService(t)
	msg, err := service.SendText(patientUserID, doctorUserID, "hello")
	require.NoError(t, err)

	err = service.Remove(msg.ID, doctorUserID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Len(t, store.messages, 1)
}

func TestEditTextMessage(t *testing.T) {
	service, store, doctorConn, _ := newTestService(t)
	msg, err := service.SendText(patientUserID, doctorUserID, "helo")
	require.NoError(t, err)
	doctorConn.reset()

	edited, err := service.Edit(msg.ID, "hello", patientUserID)
	require.NoError(t, err)

	assert.Equal(t, "hello", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.Equal(t, "hello", store.messages[msg.ID].Content)
	assert.Equal(t, []string{EventMessageEdited}, doctorConn.events())
}

func TestEditRejectsRequestsAndStrangers(t *testing.T) {
	service, store, _, _ := newTestService(t)
	date := time.Now()
	request, err := service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	_, err = service.Edit(request.ID, "new text", patientUserID)
	assert.ErrorIs(t, err, ErrValidation)

	text, err := service.SendText(patientUserID, doctorUserID, "hello")
	require.NoError(t, err)

	_, err = service.Edit(text.ID, "hijacked", doctorUserID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, "hello", store.messages[text.ID].Content)
	assert.False(t, store.messages[text.ID].IsEdited)
}

func TestSendTextEchoesToBothParties(t *testing.T) {
	service, _, doctorConn, patientConn := newTestService(t)

	msg, err := service.SendText(patientUserID, doctorUserID, "hi there")
	require.NoError(t, err)

	assert.Equal(t, models.MessageText, msg.MessageType)
	assert.Equal(t, []string{EventReceiveMessage}, doctorConn.events())
	assert.Equal(t, []string{EventReceiveMessage}, patientConn.events())
}

func TestSendTextValidation(t *testing.T) {
	service, _, _, _ := newTestService(t)

	_, err := service.SendText("", doctorUserID, "hi")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.SendText(patientUserID, doctorUserID, "")
	assert.ErrorIs(t, err, ErrValidation)
}
