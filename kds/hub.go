package kds

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const DefaultBuffer = 32

// Subscriber is one connected kitchen display.
type Subscriber struct {
	Role    string
	ch      chan []byte
	dropped atomic.Uint64
	closed  bool
}

// Messages yields encoded Message frames. The channel is closed on Unsubscribe.
func (s *Subscriber) Messages() <-chan []byte { return s.ch }

// Dropped counts frames skipped because the subscriber fell behind.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Hub fans kitchen events out to every connected subscriber. Delivery is
// best-effort: a subscriber that is not connected, or whose buffer is full,
// misses the frame.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	log         logrus.FieldLogger
}

func NewHub(buffer int, log logrus.FieldLogger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
		log:         log,
	}
}

func (h *Hub) Subscribe(role string) *Subscriber {
	sub := &Subscriber{Role: role, ch: make(chan []byte, h.buffer)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	n := len(h.subscribers)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"role": role, "subscribers": n}).Info("kitchen display connected")
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		sub.closed = true
		close(sub.ch)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"role": sub.Role, "subscribers": n}).Info("kitchen display disconnected")
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Publish encodes the event once and hands it to every subscriber without
// blocking.
func (h *Hub) Publish(event string, data interface{}) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}
	h.Broadcast(frame)
	return nil
}

// Broadcast delivers an already encoded frame. Frames from a single caller
// reach each subscriber in call order.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- frame:
		default:
			sub.dropped.Add(1)
			h.log.WithFields(logrus.Fields{
				"role":    sub.Role,
				"dropped": sub.dropped.Load(),
			}).Warn("kitchen display is behind, dropping event")
		}
	}
}

// Send delivers a frame to one subscriber only, e.g. the initial snapshot.
func (h *Hub) Send(sub *Subscriber, event string, data interface{}) error {
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return nil
	}
	select {
	case sub.ch <- frame:
	default:
		sub.dropped.Add(1)
	}
	return nil
}
