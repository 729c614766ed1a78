package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/store"

	"github.com/google/uuid"
)

// ErrRoomNotFound is returned by mutations in strict mode when the target
// room has no metadata entry.
var ErrRoomNotFound = errors.New("room not found")

// MissingRoomPolicy decides what a membership mutation does when the room
// does not exist. Lenient preserves the historical silent no-op; strict
// fails fast with ErrRoomNotFound.
type MissingRoomPolicy string

const (
	PolicyLenient MissingRoomPolicy = "lenient"
	PolicyStrict  MissingRoomPolicy = "strict"
)

const timeLayout = time.RFC3339

type RoomRepository interface {
	CreateRoom(ctx context.Context, name, description string) (*models.Room, error)
	// GetRoom returns (nil, nil) when the room does not exist. Absence is a
	// normal outcome the caller branches on, not an error.
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ListRoomIDs(ctx context.Context) ([]string, error)
	DeleteRoom(ctx context.Context, roomID string) error
	AddUser(ctx context.Context, roomID, username string) error
	RemoveUser(ctx context.Context, roomID, username string) error
	GetUsers(ctx context.Context, roomID string) ([]string, error)
	GetUserCount(ctx context.Context, roomID string) (int64, error)
}

type StoreRoomRepo struct {
	store  store.Store
	policy MissingRoomPolicy
}

func NewRoomRepo(st store.Store, policy MissingRoomPolicy) RoomRepository {
	if policy == "" {
		policy = PolicyLenient
	}
	return &StoreRoomRepo{store: st, policy: policy}
}

func (r *StoreRoomRepo) CreateRoom(ctx context.Context, name, description string) (*models.Room, error) {
	now := time.Now().Truncate(time.Second)
	room := &models.Room{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		ActiveUsers:  []string{},
		CreatedAt:    now,
		LastActivity: now,
	}

	fields := map[string]string{
		"id":            room.ID,
		"name":          room.Name,
		"description":   room.Description,
		"created_at":    room.CreatedAt.Format(timeLayout),
		"last_activity": room.LastActivity.Format(timeLayout),
	}
	if err := r.store.HashSetAll(ctx, store.RoomKey(room.ID), fields); err != nil {
		log.Printf("[REPO ERROR] Failed to create room %s: %v", room.ID, err)
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

func (r *StoreRoomRepo) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	key := store.RoomKey(roomID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check room %s: %w", roomID, err)
	}
	if !exists {
		return nil, nil
	}

	fields, err := r.store.HashGetAll(ctx, key)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to read room %s: %v", roomID, err)
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	// The room can vanish between the existence check and the read.
	if len(fields) == 0 {
		return nil, nil
	}

	users, err := r.GetUsers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:          fields["id"],
		Name:        fields["name"],
		Description: fields["description"],
		ActiveUsers: users,
	}
	if room.CreatedAt, err = time.Parse(timeLayout, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("room %s has corrupt created_at: %w", roomID, err)
	}
	if room.LastActivity, err = time.Parse(timeLayout, fields["last_activity"]); err != nil {
		return nil, fmt.Errorf("room %s has corrupt last_activity: %w", roomID, err)
	}
	return room, nil
}

func (r *StoreRoomRepo) ListRoomIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.ScanKeys(ctx, store.RoomKeyPattern())
	if err != nil {
		log.Printf("[REPO ERROR] Failed to list rooms: %v", err)
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if id, ok := store.RoomIDFromKey(key); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRoom removes metadata, member set and message log in one atomic
// multi-key delete. Deleting a room that does not exist is a no-op.
func (r *StoreRoomRepo) DeleteRoom(ctx context.Context, roomID string) error {
	err := r.store.Delete(ctx,
		store.RoomKey(roomID),
		store.RoomMessagesKey(roomID),
		store.RoomUsersKey(roomID),
	)
	if err != nil {
		log.Printf("[REPO ERROR] Failed to delete room %s: %v", roomID, err)
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

func (r *StoreRoomRepo) AddUser(ctx context.Context, roomID, username string) error {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists && r.policy == PolicyStrict {
		return ErrRoomNotFound
	}

	if err := r.store.SetAdd(ctx, store.RoomUsersKey(roomID), username); err != nil {
		log.Printf("[REPO ERROR] Failed to add %s to room %s: %v", username, roomID, err)
		return fmt.Errorf("add user to room %s: %w", roomID, err)
	}
	return r.touchActivity(ctx, roomID, exists)
}

func (r *StoreRoomRepo) RemoveUser(ctx context.Context, roomID, username string) error {
	exists, err := r.roomExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists && r.policy == PolicyStrict {
		return ErrRoomNotFound
	}

	if err := r.store.SetRemove(ctx, store.RoomUsersKey(roomID), username); err != nil {
		log.Printf("[REPO ERROR] Failed to remove %s from room %s: %v", username, roomID, err)
		return fmt.Errorf("remove user from room %s: %w", roomID, err)
	}
	return r.touchActivity(ctx, roomID, exists)
}

func (r *StoreRoomRepo) GetUsers(ctx context.Context, roomID string) ([]string, error) {
	users, err := r.store.SetMembers(ctx, store.RoomUsersKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("get users of room %s: %w", roomID, err)
	}
	sort.Strings(users)
	return users, nil
}

func (r *StoreRoomRepo) GetUserCount(ctx context.Context, roomID string) (int64, error) {
	count, err := r.store.SetSize(ctx, store.RoomUsersKey(roomID))
	if err != nil {
		return 0, fmt.Errorf("count users of room %s: %w", roomID, err)
	}
	return count, nil
}

func (r *StoreRoomRepo) roomExists(ctx context.Context, roomID string) (bool, error) {
	exists, err := r.store.Exists(ctx, store.RoomKey(roomID))
	if err != nil {
		return false, fmt.Errorf("check room %s: %w", roomID, err)
	}
	return exists, nil
}

// touchActivity bumps last_activity on membership changes. Skipped when
// the metadata hash is gone so a lenient mutation cannot resurrect a
// partial room entry.
func (r *StoreRoomRepo) touchActivity(ctx context.Context, roomID string, exists bool) error {
	if !exists {
		return nil
	}
	fields := map[string]string{
		"last_activity": time.Now().Truncate(time.Second).Format(timeLayout),
	}
	if err := r.store.HashSetAll(ctx, store.RoomKey(roomID), fields); err != nil {
		return fmt.Errorf("touch room %s: %w", roomID, err)
	}
	return nil
}
