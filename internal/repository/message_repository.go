package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/store"

	"github.com/google/uuid"
)

const DefaultHistoryLimit = 100

type MessageRepository interface {
	// Append assigns the message its id and timestamp, persists it at the
	// tail of the room's log and trims the log to the history limit.
	Append(ctx context.Context, m *models.Message) error
	// History returns the room's log oldest-to-newest.
	History(ctx context.Context, roomID string) ([]*models.Message, error)
}

type StoreMessageRepo struct {
	store        store.Store
	historyLimit int64
}

func NewMessageRepo(st store.Store, historyLimit int) MessageRepository {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &StoreMessageRepo{store: st, historyLimit: int64(historyLimit)}
}

func (r *StoreMessageRepo) Append(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().Truncate(time.Second)
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", m.ID, err)
	}

	key := store.RoomMessagesKey(m.RoomID)
	if err := r.store.ListPush(ctx, key, payload); err != nil {
		log.Printf("[REPO ERROR] Failed to save message %s in room %s: %v", m.ID, m.RoomID, err)
		return fmt.Errorf("append message: %w", err)
	}

	// Keep only the newest historyLimit entries. The push above and this
	// trim are each atomic store operations, so concurrent writers can at
	// worst leave the log momentarily over the limit, never unbounded.
	if err := r.store.ListTrim(ctx, key, -r.historyLimit, -1); err != nil {
		log.Printf("[REPO ERROR] Failed to trim log of room %s: %v", m.RoomID, err)
		return fmt.Errorf("trim message log: %w", err)
	}
	return nil
}

func (r *StoreMessageRepo) History(ctx context.Context, roomID string) ([]*models.Message, error) {
	entries, err := r.store.ListRange(ctx, store.RoomMessagesKey(roomID), 0, -1)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to read history of room %s: %v", roomID, err)
		return nil, fmt.Errorf("read history of room %s: %w", roomID, err)
	}

	messages := make([]*models.Message, 0, len(entries))
	for _, entry := range entries {
		m := &models.Message{}
		if err := json.Unmarshal(entry, m); err != nil {
			// One corrupt entry must not take the whole history down.
			log.Printf("[REPO ERROR] Skipping undecodable entry in room %s: %v", roomID, err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}
