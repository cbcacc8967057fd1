package notify

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/models"
)

type fakeStore struct {
	seq           int
	messages      map[string]*models.Message
	users         map[string]*models.User
	notifications []*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[string]*models.Message),
		users:    make(map[string]*models.User),
	}
}

func (s *fakeStore) addMessage(senderID, receiverID string) *models.Message {
	s.seq++
	m := &models.Message{
		BaseModel:   models.BaseModel{ID: fmt.Sprintf("msg-%d", s.seq)},
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     "hello",
		MessageType: models.MessageText,
	}
	s.messages[m.ID] = m
	return m
}

func (s *fakeStore) UnnotifiedMessages() ([]models.Message, error) {
	var out []models.Message
	// Iterate in insertion order via the sequential IDs.
	for i := 1; i <= s.seq; i++ {
		m, ok := s.messages[fmt.Sprintf("msg-%d", i)]
		if !ok || m.Read || m.Notified {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *fakeStore) CreateNotification(n *models.Notification) error {
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeStore) MarkNotified(messageIDs []string) error {
	for _, id := range messageIDs {
		if m, ok := s.messages[id]; ok {
			m.Notified = true
		}
	}
	return nil
}

func (s *fakeStore) UserByID(id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, nil
}

type recordingConn struct {
	mu     sync.Mutex
	writes []chat.OutEnvelope
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(chat.OutEnvelope))
	return nil
}

func (c *recordingConn) Close() error { return nil }

func newTestBatcher(store *fakeStore) (*Batcher, *chat.Registry) {
	registry := chat.NewRegistry()
	return NewBatcher(store, registry, 0, zerolog.Nop()), registry
}

func TestSweepGroupsBySenderReceiverPair(t *testing.T) {
	store := newFakeStore()
	store.users["doc-1"] = &models.User{BaseModel: models.BaseModel{ID: "doc-1"}, Name: "Dr. Grey", Role: models.RoleDoctor}
	store.users["pat-1"] = &models.User{BaseModel: models.BaseModel{ID: "pat-1"}, Name: "John", Role: models.RolePatient}

	store.addMessage("pat-1", "doc-1")
	store.addMessage("pat-1", "doc-1")
	store.addMessage("doc-1", "pat-1")

	batcher, _ := newTestBatcher(store)
	require.NoError(t, batcher.Sweep())

	require.Len(t, store.notifications, 2)

	first := store.notifications[0]
	assert.Equal(t, "doc-1", first.UserID)
	assert.Equal(t, "New message from John", first.Title)
	assert.Equal(t, "You have 2 new messages.", first.Content)
	assert.Equal(t, "/doctor", first.Link)

	second := store.notifications[1]
	assert.Equal(t, "pat-1", second.UserID)
	assert.Equal(t, "New message from Dr. Grey", second.Title)
	assert.Equal(t, "You have 1 new message.", second.Content)
	assert.Equal(t, "/patient", second.Link)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.users["doc-1"] = &models.User{BaseModel: models.BaseModel{ID: "doc-1"}, Name: "Dr. Grey", Role: models.RoleDoctor}
	store.users["pat-1"] = &models.User{BaseModel: models.BaseModel{ID: "pat-1"}, Name: "John", Role: models.RolePatient}
	store.addMessage("pat-1", "doc-1")

	batcher, _ := newTestBatcher(store)
	require.NoError(t, batcher.Sweep())
	require.NoError(t, batcher.Sweep())

	assert.Len(t, store.notifications, 1)
}

func TestSweepSkipsReadMessages(t *testing.T) {
	store := newFakeStore()
	store.users["doc-1"] = &models.User{BaseModel: models.BaseModel{ID: "doc-1"}, Name: "Dr. Grey", Role: models.RoleDoctor}
	msg := store.addMessage("pat-1", "doc-1")
	msg.Read = true

	batcher, _ := newTestBatcher(store)
	require.NoError(t, batcher.Sweep())

	assert.Empty(t, store.notifications)
}

func TestSweepDeliversLiveNotification(t *testing.T) {
	store := newFakeStore()
	store.users["pat-1"] = &models.User{BaseModel: models.BaseModel{ID: "pat-1"}, Name: "John", Role: models.RolePatient}
	store.addMessage("pat-1", "doc-1")

	batcher, registry := newTestBatcher(store)
	conn := &recordingConn{}
	registry.Connect("doc-1", conn)

	require.NoError(t, batcher.Sweep())

	require.Len(t, conn.writes, 1)
	assert.Equal(t, chat.EventNewNotification, conn.writes[0].Event)
}

func TestSweepFlagsMessagesFromDeletedSender(t *testing.T) {
	store := newFakeStore()
	msg := store.addMessage("gone-user", "doc-1")

	batcher, _ := newTestBatcher(store)
	require.NoError(t, batcher.Sweep())

	assert.Empty(t, store.notifications)
	assert.True(t, store.messages[msg.ID].Notified)

	// A later sweep does not see the flagged message again.
	require.NoError(t, batcher.Sweep())
	assert.Empty(t, store.notifications)
}
