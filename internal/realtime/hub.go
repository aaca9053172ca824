package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const DefaultSubscriberBuffer = 16

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidTable   = errors.New("invalid_table")
)

// Hub fans changes out to in-process subscribers, one stream per table.
// Delivery is non-blocking: a subscriber whose buffer is full misses the
// change.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

type Subscription struct {
	hub    *Hub
	filter Filter
	id     uint64
	ch     chan Change
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(_ context.Context, change Change) {
	if h == nil {
		return
	}
	h.mu.RLock()
	stream := h.streams[change.Table]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	for _, sub := range stream.subs {
		if !sub.filter.Matches(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
}

func (h *Hub) Subscribe(filter Filter) (*Subscription, error) {
	if h == nil {
		return nil, ErrHubUnavailable
	}
	filter.Table = strings.TrimSpace(filter.Table)
	if filter.Table == "" {
		return nil, ErrInvalidTable
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.streams[filter.Table]
	if current == nil {
		current = &stream{subs: make(map[uint64]*Subscription)}
		h.streams[filter.Table] = current
	}

	current.mu.Lock()
	defer current.mu.Unlock()
	id := current.nextID
	current.nextID++
	sub := &Subscription{
		hub:    h,
		filter: filter,
		id:     id,
		ch:     make(chan Change, h.subscriberBuffer),
	}
	current.subs[id] = sub
	return sub, nil
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stream := h.streams[sub.filter.Table]
	if stream == nil {
		return
	}
	stream.mu.Lock()
	delete(stream.subs, sub.id)
	close(sub.ch)
	empty := len(stream.subs) == 0
	stream.mu.Unlock()

	if empty {
		delete(h.streams, sub.filter.Table)
	}
}

// SubscriberCount returns the number of open subscriptions on table.
func (h *Hub) SubscriberCount(table string) int {
	h.mu.RLock()
	stream := h.streams[table]
	h.mu.RUnlock()
	if stream == nil {
		return 0
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return len(stream.subs)
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Change {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close is idempotent.
func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}
