package chat

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor-portal-server/internal/models"
)

func newTestGateway(t *testing.T) (*Gateway, *fakeStore, *fakeConn, *fakeConn) {
	t.Helper()
	service, store, doctorConn, patientConn := newTestService(t)
	return NewGateway(service, service.registry, zerolog.Nop()), store, doctorConn, patientConn
}

func envelope(t *testing.T, event string, payload interface{}) Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Envelope{Event: event, Data: raw}
}

func TestDispatchSendMessage(t *testing.T) {
	gateway, store, doctorConn, _ := newTestGateway(t)

	err := gateway.dispatch(envelope(t, EventSendMessage, SendMessagePayload{
		SenderID:   patientUserID,
		ReceiverID: doctorUserID,
		Message:    "hello doctor",
	}))
	require.NoError(t, err)

	assert.Len(t, store.messages, 1)
	assert.Equal(t, []string{EventReceiveMessage}, doctorConn.events())
}

func TestDispatchUpdateRequestActsAsReceiver(t *testing.T) {
	gateway, store, _, _ := newTestGateway(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := gateway.service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	err = gateway.dispatch(envelope(t, EventUpdateRequest, UpdateRequestPayload{
		MessageID:  msg.ID,
		Status:     string(models.StatusAccepted),
		SenderID:   patientUserID,
		ReceiverID: doctorUserID,
	}))
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, store.messages[msg.ID].Status)
	assert.Len(t, store.appointments, 1)
}

func TestDispatchCounterRequest(t *testing.T) {
	gateway, store, _, _ := newTestGateway(t)
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := gateway.service.SubmitRequest(RequestNew, patientUserID, "", &date, "", "")
	require.NoError(t, err)

	err = gateway.dispatch(envelope(t, EventCounterRequest, CounterRequestPayload{
		OriginalMessageID: msg.ID,
		NewDate:           date.Add(time.Hour),
		SenderID:          doctorUserID,
		ReceiverID:        patientUserID,
	}))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCountered, store.messages[msg.ID].Status)
}

func TestDispatchEditAndDelete(t *testing.T) {
	gateway, store, _, _ := newTestGateway(t)
	msg, err := gateway.service.SendText(patientUserID, doctorUserID, "helo")
	require.NoError(t, err)

	err = gateway.dispatch(envelope(t, EventEditMessage, EditMessagePayload{
		MessageID:  msg.ID,
		NewContent: "hello",
		SenderID:   patientUserID,
		ReceiverID: doctorUserID,
	}))
	require.NoError(t, err)
	assert.Equal(t, "hello", store.messages[msg.ID].Content)

	err = gateway.dispatch(envelope(t, EventDeleteMessage, DeleteMessagePayload{
		MessageID:  msg.ID,
		SenderID:   patientUserID,
		ReceiverID: doctorUserID,
	}))
	require.NoError(t, err)
	assert.Empty(t, store.messages)
}

func TestDispatchUnknownEvent(t *testing.T) {
	gateway, _, _, _ := newTestGateway(t)

	err := gateway.dispatch(Envelope{Event: "selfDestruct", Data: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDispatchMalformedPayload(t *testing.T) {
	gateway, _, _, _ := newTestGateway(t)

	err := gateway.dispatch(Envelope{Event: EventSendMessage, Data: json.RawMessage(`"not an object"`)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDispatchSurfacesServiceErrors(t *testing.T) {
	gateway, _, _, _ := newTestGateway(t)

	err := gateway.dispatch(envelope(t, EventDeleteMessage, DeleteMessagePayload{
		MessageID: fmt.Sprintf("missing-%d", time.Now().Unix()),
		SenderID:  patientUserID,
	}))
	assert.ErrorIs(t, err, ErrNotFound)
}
