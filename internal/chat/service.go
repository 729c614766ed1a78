package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chat-relay/internal/models"
	"chat-relay/internal/repository"
	"chat-relay/internal/store"
)

// SystemSender is the display name synthetic JOIN/LEAVE messages carry.
const SystemSender = "System"

// Service is the fan-out broadcaster and the domain surface shared by the
// REST handlers and the websocket gateway. Publishing persists first, then
// delivers to local subscribers, then relays over the bus so peer
// instances can serve their own subscribers.
type Service struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	hub      *Hub
	bus      store.Bus
	serverID string
	policy   repository.MissingRoomPolicy
}

func NewService(rooms repository.RoomRepository, messages repository.MessageRepository, hub *Hub, bus store.Bus, serverID string, policy repository.MissingRoomPolicy) *Service {
	if policy == "" {
		policy = repository.PolicyLenient
	}
	return &Service{
		rooms:    rooms,
		messages: messages,
		hub:      hub,
		bus:      bus,
		serverID: serverID,
		policy:   policy,
	}
}

// Publish persists the message, fans it out to local subscribers and
// relays it to peer instances. Persistence comes first so anyone who sees
// the message can also read it back from history. Delivery is best-effort
// with no acknowledgment.
func (s *Service) Publish(ctx context.Context, m *models.Message) error {
	m.SenderServerID = s.serverID

	if err := s.messages.Append(ctx, m); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	s.deliverLocal(m)

	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message %s for bus: %w", m.ID, err)
	}
	if err := s.bus.Publish(ctx, store.RoomChannel(m.RoomID), payload); err != nil {
		log.Printf("[RELAY] Bus publish for room %s failed: %v", m.RoomID, err)
		return fmt.Errorf("publish to bus: %w", err)
	}
	return nil
}

func (s *Service) deliverLocal(m *models.Message) {
	select {
	case s.hub.Broadcast <- m:
	default:
		log.Printf("[RELAY] CRITICAL: Hub broadcast queue full, dropping local delivery for room %s", m.RoomID)
	}
}

// Run consumes the cross-instance relay channel and hands foreign
// messages to the local hub. Messages this instance published are dropped
// here; they were already delivered locally by Publish. Run returns when
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ch, err := s.bus.PSubscribe(ctx, store.RoomChannelPattern())
	if err != nil {
		return fmt.Errorf("subscribe to relay channels: %w", err)
	}
	log.Println("[RELAY] Listening for messages from peer instances")

	for bm := range ch {
		m := &models.Message{}
		if err := json.Unmarshal(bm.Payload, m); err != nil {
			log.Printf("[RELAY] Skipping undecodable payload on %s: %v", bm.Channel, err)
			continue
		}
		if m.SenderServerID == s.serverID {
			continue
		}
		s.deliverLocal(m)
	}
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, name, description string) (*models.Room, error) {
	return s.rooms.CreateRoom(ctx, name, description)
}

// GetRoom returns (nil, nil) when the room does not exist.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.rooms.GetRoom(ctx, roomID)
}

func (s *Service) ListRoomIDs(ctx context.Context) ([]string, error) {
	return s.rooms.ListRoomIDs(ctx)
}

func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	return s.rooms.DeleteRoom(ctx, roomID)
}

// JoinRoom records membership and announces it with a synthetic JOIN.
func (s *Service) JoinRoom(ctx context.Context, roomID, username string) error {
	if err := s.rooms.AddUser(ctx, roomID, username); err != nil {
		return err
	}
	return s.Publish(ctx, &models.Message{
		Content: username + " joined the room",
		Sender:  SystemSender,
		RoomID:  roomID,
		Type:    models.TypeJoin,
	})
}

// LeaveRoom removes membership and announces it with a synthetic LEAVE.
func (s *Service) LeaveRoom(ctx context.Context, roomID, username string) error {
	if err := s.rooms.RemoveUser(ctx, roomID, username); err != nil {
		return err
	}
	return s.Publish(ctx, &models.Message{
		Content: username + " left the room",
		Sender:  SystemSender,
		RoomID:  roomID,
		Type:    models.TypeLeave,
	})
}

// SendChat publishes a CHAT message and returns it with its assigned id
// and timestamp.
func (s *Service) SendChat(ctx context.Context, roomID, sender, content string) (*models.Message, error) {
	if s.policy == repository.PolicyStrict {
		room, err := s.rooms.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if room == nil {
			return nil, repository.ErrRoomNotFound
		}
	}

	m := &models.Message{
		Content: content,
		Sender:  sender,
		RoomID:  roomID,
		Type:    models.TypeChat,
	}
	if err := s.Publish(ctx, m); err != nil {
		return nil, err
	}
	return m.ForWire(), nil
}

func (s *Service) History(ctx context.Context, roomID string) ([]*models.Message, error) {
	messages, err := s.messages.History(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for i, m := range messages {
		messages[i] = m.ForWire()
	}
	return messages, nil
}

func (s *Service) RoomUsers(ctx context.Context, roomID string) ([]string, error) {
	return s.rooms.GetUsers(ctx, roomID)
}

func (s *Service) RoomUserCount(ctx context.Context, roomID string) (int64, error) {
	return s.rooms.GetUserCount(ctx, roomID)
}
