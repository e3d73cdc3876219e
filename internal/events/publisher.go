// Package events publishes deploy milestones to in-process subscribers.
package events

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// Type names a deploy milestone.
type Type string

const (
	TypeDeploy     Type = "deploy"
	TypeFetched    Type = "fetched"
	TypeUpdated    Type = "updated"
	TypePublished  Type = "published"
	TypeCleaned    Type = "cleaned"
	TypeDeployed   Type = "deployed"
	TypeRollback   Type = "rollback"
	TypeRollbacked Type = "rollbacked"
)

// Event is one milestone of a deploy or rollback run.
type Event struct {
	Type        Type
	Environment string

	// Release is the release directory name, when known.
	Release string
	Time    time.Time
}

// Handler receives matching events synchronously.
type Handler func(event *Event)

// Filter selects events by type. An empty filter matches everything.
type Filter struct {
	Types []Type
}

// Matches reports whether event passes the filter.
func (f Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, event.Type)
}

// Publisher fans milestones out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *Event)
	Subscribe(id string, filter Filter, handler Handler) error
	Unsubscribe(id string) error
}

var (
	ErrEmptyID     = errors.New("subscription ID is required")
	ErrNilHandler  = errors.New("handler cannot be nil")
	ErrDuplicateID = errors.New("subscription with this ID already exists")
	ErrUnknownID   = errors.New("subscription not found")
)

type subscriber struct {
	id      string
	filter  Filter
	handler Handler
}

// InMemoryPublisher delivers events in the order subscribers registered.
type InMemoryPublisher struct {
	mu   sync.RWMutex
	subs []subscriber
}

// NewInMemoryPublisher returns a publisher with no subscribers.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish stamps event with the current time when unset and calls every
// matching handler. Handlers run without the lock held so they may
// subscribe or publish.
func (p *InMemoryPublisher) Publish(_ context.Context, event *Event) {
	if event == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	p.mu.RLock()
	var handlers []Handler
	for _, s := range p.subs {
		if s.filter.Matches(event) {
			handlers = append(handlers, s.handler)
		}
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// Subscribe registers handler under id.
func (p *InMemoryPublisher) Subscribe(id string, filter Filter, handler Handler) error {
	if id == "" {
		return ErrEmptyID
	}
	if handler == nil {
		return ErrNilHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.indexOf(id) >= 0 {
		return ErrDuplicateID
	}
	p.subs = append(p.subs, subscriber{id: id, filter: filter, handler: handler})
	return nil
}

// Unsubscribe removes the subscription registered under id.
func (p *InMemoryPublisher) Unsubscribe(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(id)
	if i < 0 {
		return ErrUnknownID
	}
	p.subs = slices.Delete(p.subs, i, i+1)
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (p *InMemoryPublisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

func (p *InMemoryPublisher) indexOf(id string) int {
	return slices.IndexFunc(p.subs, func(s subscriber) bool { return s.id == id })
}

// Recorder collects every event it is subscribed to.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Handle is a Handler appending a copy of event.
func (r *Recorder) Handle(event *Event) {
	r.mu.Lock()
	r.events = append(r.events, *event)
	r.mu.Unlock()
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
