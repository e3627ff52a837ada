package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/newsbreeze/news-gateway/internal/playback"
	"github.com/rs/zerolog"
)

const (
	// EventPlayback carries a playback state transition
	EventPlayback = "playback"
	// EventAlert carries a user-facing alert message
	EventAlert = "alert"

	sendBufferSize = 32
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	pongWait       = 2 * pingPeriod
)

var upgrader = websocket.Upgrader{
	// Front ends are served from other origins during development
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Event is one message on the event stream
type Event struct {
	Type     string             `json:"type"`
	ItemID   string             `json:"item_id"`
	Playback *playback.Snapshot `json:"playback,omitempty"`
	Message  string             `json:"message,omitempty"`
	Time     time.Time          `json:"time"`
}

// EventHub fans playback events out to WebSocket subscribers.
// A subscriber that cannot keep up misses events rather than slowing the sender.
type EventHub struct {
	logger zerolog.Logger

	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{
		logger:      observability.WithComponent("events"),
		subscribers: make(map[string]*subscriber),
	}
}

// Alert implements playback.Notifier
func (h *EventHub) Alert(itemID, message string) {
	h.Publish(Event{Type: EventAlert, ItemID: itemID, Message: message})
}

// PlaybackChanged publishes a playback transition
func (h *EventHub) PlaybackChanged(s playback.Snapshot) {
	h.Publish(Event{Type: EventPlayback, ItemID: s.ItemID, Playback: &s})
}

// Publish sends ev to every subscriber without blocking
func (h *EventHub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.send <- ev:
		default:
			h.logger.Warn().Str("subscriber", sub.id).Str("type", ev.Type).Msg("Subscriber too slow, dropping event")
		}
	}
}

// Len returns the number of connected subscribers
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscribers {
		sub.close()
		delete(h.subscribers, id)
	}
}

// Handle upgrades the request and streams events until the client goes away
func (h *EventHub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	sub := &subscriber{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Event, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()

	logger := h.logger.With().Str("subscriber", sub.id).Logger()
	logger.Info().Str("remote", c.Request.RemoteAddr).Msg("Event subscriber connected")

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, sub.id)
		h.mu.Unlock()
		sub.close()
		logger.Info().Msg("Event subscriber disconnected")
	}()

	go h.readLoop(sub, logger)
	h.writeLoop(sub, logger)
}

// readLoop discards client messages and detects disconnects
func (h *EventHub) readLoop(sub *subscriber, logger zerolog.Logger) {
	defer sub.close()

	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
	}
}

func (h *EventHub) writeLoop(sub *subscriber, logger zerolog.Logger) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(ev); err != nil {
				logger.Warn().Err(err).Msg("Failed to write event")
				return
			}
		case <-ping.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			sub.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
