// Package events broadcasts session lifecycle changes to in-process listeners.
package events

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	SignedUp  Type = "signed_up"
	SignedIn  Type = "signed_in"
	SignedOut Type = "signed_out"
)

type SessionEvent struct {
	Type      Type         `json:"type"`
	AccountID snowflake.ID `json:"account_id"`
	At        time.Time    `json:"at"`
}

const subscriptionBuffer = 16

// Broker fans session events out to subscribers. Sends never block; a full
// subscriber misses the event.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*Subscription)}
}

type Subscription struct {
	id     uint64
	ch     chan SessionEvent
	broker *Broker
	once   sync.Once
}

func (s *Subscription) Events() <-chan SessionEvent {
	return s.ch
}

// Close unsubscribes and closes the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
		close(s.ch)
	})
}

func (b *Broker) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		ch:     make(chan SessionEvent, subscriptionBuffer),
		broker: b,
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Broker) Publish(evt SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
		}
	}
}
