package chat

import (
	"encoding/json"
	"log"
	"sync"

	"chat-relay/internal/models"
)

// Hub tracks which locally-connected clients are subscribed to which room
// and fans published messages out to them. It is purely local state; the
// shared store never sees it.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	roomOf map[*Client]string

	Broadcast chan *models.Message
	Quit      chan struct{}
	done      chan struct{}
}

func NewHub() *Hub {
	log.Println("[HUB] Initializing new Hub instance...")
	return &Hub{
		rooms:     make(map[string]map[*Client]bool),
		roomOf:    make(map[*Client]string),
		Broadcast: make(chan *models.Message, 256),
		Quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run is the delivery loop. It must run in its own goroutine; it returns
// when Quit is closed, after closing every client connection.
func (h *Hub) Run() {
	defer close(h.done)
	log.Println("[HUB] Main loop started. Listening for events...")
	for {
		select {
		case <-h.Quit:
			log.Println("[HUB] Quit signal received. Shutting down all client connections...")
			for _, client := range h.snapshotAll() {
				client.close()
			}
			return

		case message := <-h.Broadcast:
			h.deliver(message)
		}
	}
}

// Subscribe attaches a client to a room. A client subscribes to at most
// one room at a time; subscribing again moves it.
func (h *Hub) Subscribe(c *Client, roomID string) {
	h.mu.Lock()
	if prev, ok := h.roomOf[c]; ok {
		delete(h.rooms[prev], c)
		if len(h.rooms[prev]) == 0 {
			delete(h.rooms, prev)
		}
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	h.roomOf[c] = roomID
	total := len(h.rooms[roomID])
	h.mu.Unlock()
	log.Printf("[HUB] Client %s subscribed to room %s. Local subscribers: %d", c.Name(), roomID, total)
}

func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	roomID, ok := h.roomOf[c]
	if ok {
		delete(h.roomOf, c)
		delete(h.rooms[roomID], c)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
	if ok {
		log.Printf("[HUB] Client %s unsubscribed from room %s", c.Name(), roomID)
	}
}

// SubscriberCount reports how many local clients are subscribed to roomID.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) deliver(message *models.Message) {
	payload, err := json.Marshal(message.ForWire())
	if err != nil {
		log.Printf("[HUB] Failed to encode message %s: %v", message.ID, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[message.RoomID]))
	for client := range h.rooms[message.RoomID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.Send <- payload:
		default:
			// A write failure or full buffer on one subscriber must never
			// stall delivery to the others.
			log.Printf("[HUB] WARNING: Client %s buffer full. Evicting slow consumer.", client.Name())
			go client.close()
		}
	}
}

func (h *Hub) snapshotAll() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.roomOf))
	for client := range h.roomOf {
		clients = append(clients, client)
	}
	return clients
}
