package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 10 * time.Second
	maxMessageSize = 512
	opTimeout      = 5 * time.Second
)

// Frame is the inbound wire format. Outbound traffic is the full Message
// entity, id and timestamp included.
type Frame struct {
	Type    string `json:"type"` // "join", "chat" or "leave"
	Sender  string `json:"sender,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
	Content string `json:"content,omitempty"`
}

const (
	FrameJoin  = "join"
	FrameChat  = "chat"
	FrameLeave = "leave"
)

// Client is one websocket session. It starts Connected, enters a room on
// a join frame and returns to Connected on leave. Disconnecting in any
// state runs the same leave cleanup exactly once.
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Service *Service
	Send    chan []byte

	mu     sync.Mutex
	name   string
	roomID string
	joined bool

	done chan struct{}
	once sync.Once
}

func NewClient(h *Hub, conn *websocket.Conn, svc *Service) *Client {
	return &Client{
		Hub:     h,
		Conn:    conn,
		Service: svc,
		Send:    make(chan []byte, 256),
		done:    make(chan struct{}),
	}
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) session() (name, roomID string, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name, c.roomID, c.joined
}

func (c *Client) ReadPump() {
	defer c.close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[CLIENT] Unexpected close: %v", err)
			}
			break
		}

		frame := &Frame{}
		if err := json.Unmarshal(data, frame); err != nil {
			// Malformed frames are dropped; they must not kill the session.
			continue
		}

		switch frame.Type {
		case FrameJoin:
			c.handleJoin(frame)
		case FrameChat:
			c.handleChat(frame)
		case FrameLeave:
			c.handleLeave()
		default:
			log.Printf("[CLIENT] Ignoring frame with unknown type %q", frame.Type)
		}
	}
}

func (c *Client) handleJoin(frame *Frame) {
	name := strings.TrimSpace(frame.Sender)
	roomID := strings.TrimSpace(frame.RoomID)
	if name == "" || roomID == "" {
		log.Println("[CLIENT] Join frame missing sender or roomId; ignoring")
		return
	}

	c.mu.Lock()
	if c.joined {
		c.mu.Unlock()
		log.Printf("[CLIENT] %s already in a room; leave first", c.name)
		return
	}
	c.name = name
	c.roomID = roomID
	c.joined = true
	c.mu.Unlock()

	// Subscribe before announcing so this session receives its own JOIN.
	c.Hub.Subscribe(c, roomID)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.Service.JoinRoom(ctx, roomID, name); err != nil {
		log.Printf("[CLIENT] Join of %s to room %s failed: %v", name, roomID, err)
		// Roll back so the session stays Connected and can join again.
		c.Hub.Unsubscribe(c)
		c.mu.Lock()
		c.name, c.roomID, c.joined = "", "", false
		c.mu.Unlock()
	}
}

func (c *Client) handleChat(frame *Frame) {
	name, roomID, joined := c.session()
	if !joined {
		log.Println("[CLIENT] Chat frame before join; ignoring")
		return
	}
	if strings.TrimSpace(frame.Content) == "" {
		return
	}

	// The room comes from the subscription, never from the frame.
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := c.Service.SendChat(ctx, roomID, name, frame.Content); err != nil {
		log.Printf("[CLIENT] Chat from %s in room %s failed: %v", name, roomID, err)
	}
}

func (c *Client) handleLeave() {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return
	}
	name, roomID := c.name, c.roomID
	c.joined = false
	c.name, c.roomID = "", ""
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.Service.LeaveRoom(ctx, roomID, name); err != nil {
		log.Printf("[CLIENT] Leave of %s from room %s failed: %v", name, roomID, err)
	}
	c.Hub.Unsubscribe(c)
}

// close tears the session down exactly once. An abrupt disconnect without
// a leave frame still publishes the LEAVE, so the shared membership set
// cannot go permanently stale.
func (c *Client) close() {
	c.once.Do(func() {
		c.mu.Lock()
		name, roomID, joined := c.name, c.roomID, c.joined
		c.joined = false
		c.mu.Unlock()

		if joined {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			if err := c.Service.LeaveRoom(ctx, roomID, name); err != nil {
				log.Printf("[CLIENT] Disconnect cleanup for %s in room %s failed: %v", name, roomID, err)
			}
			cancel()
		}
		c.Hub.Unsubscribe(c)
		close(c.done)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain whatever queued up while we held the writer.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
