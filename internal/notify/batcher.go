// Package notify aggregates unread chat messages into persisted digest
// notifications on a fixed interval, independently of the realtime
// negotiation flow.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"doctor-portal-server/internal/chat"
	"doctor-portal-server/internal/models"
)

// Store is the persistence surface the batcher sweeps over.
type Store interface {
	// UnnotifiedMessages returns messages that are unread and not yet part of
	// any digest.
	UnnotifiedMessages() ([]models.Message, error)
	CreateNotification(n *models.Notification) error
	MarkNotified(messageIDs []string) error
	UserByID(id string) (*models.User, error)
}

// GormStore implements Store on the application's GORM connection.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore creates a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) UnnotifiedMessages() ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.Where("`read` = ? AND notified = ?", false, false).
		Order("created_at asc").Find(&messages).Error
	return messages, err
}

func (s *GormStore) CreateNotification(n *models.Notification) error {
	return s.DB.Create(n).Error
}

func (s *GormStore) MarkNotified(messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return s.DB.Model(&models.Message{}).
		Where("id IN ?", messageIDs).
		Update("notified", true).Error
}

func (s *GormStore) UserByID(id string) (*models.User, error) {
	var u models.User
	if err := s.DB.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Batcher periodically groups unread, undigested messages by (receiver,
// sender) pair and produces one Notification per pair. Swept messages are
// flagged so the next sweep never reprocesses them. The presence registry is
// only read, to push newNotification events to connected receivers.
type Batcher struct {
	store    Store
	registry *chat.Registry
	interval time.Duration
	log      zerolog.Logger
}

// NewBatcher creates a Batcher sweeping at the given interval.
func NewBatcher(store Store, registry *chat.Registry, interval time.Duration, log zerolog.Logger) *Batcher {
	return &Batcher{store: store, registry: registry, interval: interval, log: log}
}

// Run sweeps on a ticker until ctx is cancelled. Sweep failures are logged
// and the loop keeps going.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Sweep(); err != nil {
				b.log.Error().Err(err).Msg("notification sweep failed")
			}
		}
	}
}

type digestGroup struct {
	receiverID string
	senderID   string
	messageIDs []string
}

// Sweep runs one aggregation pass.
func (b *Batcher) Sweep() error {
	messages, err := b.store.UnnotifiedMessages()
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	groups := make(map[string]*digestGroup)
	var order []string
	for _, msg := range messages {
		key := msg.ReceiverID + "-" + msg.SenderID
		group, ok := groups[key]
		if !ok {
			group = &digestGroup{receiverID: msg.ReceiverID, senderID: msg.SenderID}
			groups[key] = group
			order = append(order, key)
		}
		group.messageIDs = append(group.messageIDs, msg.ID)
	}

	for _, key := range order {
		group := groups[key]
		sender, err := b.store.UserByID(group.senderID)
		if err != nil {
			return err
		}
		if sender == nil {
			// Sender account is gone; still flag the messages so they do not
			// pile up in every future sweep.
			if err := b.store.MarkNotified(group.messageIDs); err != nil {
				return err
			}
			continue
		}

		link := "/doctor"
		if sender.Role == models.RoleDoctor {
			link = "/patient"
		}
		plural := ""
		if len(group.messageIDs) > 1 {
			plural = "s"
		}
		notification := &models.Notification{
			UserID:  group.receiverID,
			Title:   fmt.Sprintf("New message from %s", sender.Name),
			Content: fmt.Sprintf("You have %d new message%s.", len(group.messageIDs), plural),
			Link:    link,
		}
		if err := b.store.CreateNotification(notification); err != nil {
			return err
		}

		b.registry.Send(group.receiverID, chat.OutEnvelope{
			Event: chat.EventNewNotification,
			Data:  notification,
		})

		if err := b.store.MarkNotified(group.messageIDs); err != nil {
			return err
		}
	}

	b.log.Debug().Int("groups", len(groups)).Int("messages", len(messages)).
		Msg("notification sweep complete")
	return nil
}
