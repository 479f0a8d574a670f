// Package events fans out stream lifecycle changes and log lines to
// websocket listeners. Nothing is retained: a listener only sees what
// happens while it is connected.
package events

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

const (
	TopicStream = "stream"
	TopicLog    = "log"
)

const (
	StateStarted   = "started"
	StateCompleted = "completed"
	StateAborted   = "aborted"
)

type StreamEvent struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	State     string    `json:"state"`
	Bytes     int64     `json:"bytes"`
	Size      string    `json:"size,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LogEvent struct {
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is the envelope written to websocket listeners.
type Message struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

type Hub struct {
	bus evbus.Bus

	mu        sync.RWMutex
	listeners map[uint64]func(Message)
	next      uint64
}

func NewHub() *Hub {
	h := &Hub{
		bus:       evbus.New(),
		listeners: make(map[uint64]func(Message)),
	}

	// a single bus handler per topic, listeners are tracked here since the
	// bus identifies handlers by code pointer
	h.bus.Subscribe(TopicStream, h.dispatch)
	h.bus.Subscribe(TopicLog, h.dispatch)

	return h
}

func (h *Hub) PublishStream(e StreamEvent) {
	if h == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	h.bus.Publish(TopicStream, Message{Topic: TopicStream, Data: e})
}

func (h *Hub) PublishLog(line string) {
	if h == nil {
		return
	}
	h.bus.Publish(TopicLog, Message{Topic: TopicLog, Data: LogEvent{Line: line, Timestamp: time.Now()}})
}

// Subscribe registers fn for every topic and returns the function that
// detaches it again. fn is called synchronously and must not block.
func (h *Hub) Subscribe(fn func(Message)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *Hub) dispatch(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, fn := range h.listeners {
		fn(m)
	}
}
