package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"

	"github.com/makeasinger/studio/internal/generation"
	"github.com/makeasinger/studio/internal/model"
)

// AllJobs is the subscription key for clients following every job
const AllJobs = "*"

// WebSocket error codes
const (
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
)

// Client represents a WebSocket client
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub maintains active WebSocket connections and fans generation events out
// to them
type Hub struct {
	// Clients grouped by job ID, AllJobs for global subscribers
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	log zerolog.Logger
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID   string
	Message []byte
}

var _ generation.EventPublisher = (*Hub)(nil)

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		log:        logger.With().Str("component", "ws-hub").Logger(),
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			return

		case client := <-h.register:
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.log.Debug().Str("jobId", client.JobID).Msg("client registered")

		case client := <-h.unregister:
			h.drop(client)
			h.log.Debug().Str("jobId", client.JobID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.deliver(msg.JobID, msg.Message)
			if msg.JobID != AllJobs {
				h.deliver(AllJobs, msg.Message)
			}
		}
	}
}

func (h *Hub) deliver(key string, data []byte) {
	for client := range h.clients[key] {
		select {
		case client.Send <- data:
		default:
			h.log.Warn().Str("jobId", client.JobID).Msg("client too slow, dropping")
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.Send)
		if len(clients) == 0 {
			delete(h.clients, client.JobID)
		}
	}
}

// Register adds a new client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish converts a manager event into a WebSocket message
func (h *Hub) Publish(e generation.Event) {
	job := e.Job
	switch e.Type {
	case generation.EventProgress:
		h.send(job.ID, model.WSProgressMessage{
			Type:         model.WSMessageTypeProgress,
			JobID:        job.ID,
			Status:       string(job.Status),
			Progress:     job.Progress,
			ProgressText: job.ProgressText,
		})
	case generation.EventComplete:
		var outputs []string
		if job.Result != nil {
			outputs = job.Result.Outputs
		}
		h.send(job.ID, model.WSCompleteMessage{
			Type:    model.WSMessageTypeComplete,
			JobID:   job.ID,
			Outputs: outputs,
		})
	case generation.EventFailed:
		code := ErrCodeGenerationFailed
		if job.Error == generation.MsgCancelled {
			code = ErrCodeCancelled
		}
		h.send(job.ID, model.WSErrorMessage{
			Type:  model.WSMessageTypeError,
			JobID: job.ID,
			Error: model.WSError{Code: code, Message: job.Error},
		})
	}
}

// BroadcastTrack announces a stored track to the job's subscribers
func (h *Hub) BroadcastTrack(jobID string, track interface{}) {
	h.send(jobID, model.WSTrackMessage{
		Type:  model.WSMessageTypeTrack,
		JobID: jobID,
		Track: track,
	})
}

// send never blocks the publisher; a full queue drops the message.
func (h *Hub) send(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Str("jobId", jobID).Msg("failed to marshal message")
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}:
	default:
		h.log.Warn().Str("jobId", jobID).Msg("broadcast queue full, dropping message")
	}
}

// HandleConnection handles a WebSocket connection. jobID is AllJobs for a
// global subscription.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	if !h.Register(client) {
		return
	}
	defer h.Unregister(client)

	pongs := make(chan []byte, 1)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case pong := <-pongs:
				if err := c.WriteMessage(websocket.TextMessage, pong); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("jobId", jobID).Msg("websocket error")
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case pongs <- pong:
			default:
			}
		}
	}
}
