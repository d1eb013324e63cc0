package ws

import (
	"encoding/json"
	"sync"

	"lipa/internal/models"

	"go.uber.org/zap"
)

const (
	MessageSnapshot = "intent.snapshot"
	MessageUpdated  = "intent.updated"
)

type Message struct {
	Type   string                `json:"type"`
	Intent *models.PaymentIntent `json:"intent"`
}

// Client is one subscriber of a single payment intent.
type Client struct {
	IntentID string
	Send     chan []byte
	hub      *IntentHub
	mu       sync.Mutex
	closed   bool
}

// Close unregisters the client and closes Send. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.hub != nil {
		c.hub.unregister(c)
	}
}

// deliver queues data without blocking and closes the client after it when
// last is set. It reports whether a full buffer dropped the message.
func (c *Client) deliver(data []byte, last bool) (dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
	default:
		dropped = true
	}
	if last {
		c.closeLocked()
	}
	return dropped
}

// IntentHub fans intent updates out to websocket subscribers. Subscribers of
// an intent are closed once it reaches a terminal status.
type IntentHub struct {
	mu       sync.RWMutex
	byIntent map[string]map[*Client]struct{}
	buffer   int
	logger   *zap.Logger
}

func NewIntentHub(logger *zap.Logger) *IntentHub {
	return &IntentHub{
		byIntent: make(map[string]map[*Client]struct{}),
		buffer:   16,
		logger:   logger,
	}
}

// Subscribe registers a client for intentID and queues the current state
// from snapshot as its first message. Updates published after the snapshot
// was read always follow it.
func (h *IntentHub) Subscribe(intentID string, snapshot func() (*models.PaymentIntent, error)) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	intent, err := snapshot()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(Message{Type: MessageSnapshot, Intent: intent})
	if err != nil {
		return nil, err
	}
	c := &Client{IntentID: intentID, Send: make(chan []byte, h.buffer), hub: h}
	c.Send <- data
	if intent.Status.Terminal() {
		c.closed = true
		close(c.Send)
		return c, nil
	}
	if h.byIntent[intentID] == nil {
		h.byIntent[intentID] = make(map[*Client]struct{})
	}
	h.byIntent[intentID][c] = struct{}{}
	return c, nil
}

func (h *IntentHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byIntent[c.IntentID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byIntent, c.IntentID)
		}
	}
}

// IntentUpdated implements service.IntentNotifier.
func (h *IntentHub) IntentUpdated(intent *models.PaymentIntent) {
	h.mu.RLock()
	m := h.byIntent[intent.ID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(Message{Type: MessageUpdated, Intent: intent})
	if err != nil {
		h.logger.Error("encode intent update", zap.String("intent_id", intent.ID), zap.Error(err))
		return
	}
	last := intent.Status.Terminal()
	for _, c := range clients {
		if c.deliver(data, last) {
			h.logger.Warn("intent update dropped", zap.String("intent_id", intent.ID))
		}
	}
}

func (h *IntentHub) SubscriberCount(intentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byIntent[intentID])
}
