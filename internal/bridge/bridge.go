package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tfufuu/nova/internal/logger"
)

// ErrClosed is returned when submitting to or receiving from a closed bridge.
var ErrClosed = errors.New("bridge closed")

// LaggedError reports that a subscriber fell behind the broadcast buffer.
// The oldest events were discarded; Missed counts them.
type LaggedError struct {
	Missed uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d events missed", e.Missed)
}

// Bridge couples the bounded inbound intent queue with the outbound
// broadcaster. One Bridge exists per compositor.
type Bridge struct {
	intents chan Intent

	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
	closed  bool
}

// New creates a bridge with the given inbound queue depth and per-subscriber
// outbound buffer size.
func New(queueDepth, subBuffer int) *Bridge {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	if subBuffer <= 0 {
		subBuffer = 64
	}
	return &Bridge{
		intents: make(chan Intent, queueDepth),
		subs:    make(map[*Subscription]struct{}),
		bufSize: subBuffer,
	}
}

// Submit enqueues an intent for the core thread. Intents are applied in
// submission order. Blocks while the queue is full until ctx is done.
func (b *Bridge) Submit(ctx context.Context, in Intent) error {
	select {
	case b.intents <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request submits an intent that expects a reply and waits for it.
func (b *Bridge) Request(ctx context.Context, in Intent) (Reply, error) {
	in.Reply = make(chan Reply, 1)
	if err := b.Submit(ctx, in); err != nil {
		return Reply{}, err
	}
	select {
	case r, ok := <-in.Reply:
		if !ok {
			return Reply{}, ErrClosed
		}
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Intents exposes the inbound queue for the core's select loop.
func (b *Bridge) Intents() <-chan Intent {
	return b.intents
}

// Drain applies fn to every intent already queued, without blocking. The
// core calls this at the start of each reactive iteration.
func (b *Bridge) Drain(fn func(Intent)) {
	for {
		select {
		case in := <-b.intents:
			fn(in)
		default:
			return
		}
	}
}

// Subscription is one consumer of outbound events.
type Subscription struct {
	bridge *Bridge

	mu     sync.Mutex
	queue  []Event
	missed uint64
	closed bool
	notify chan struct{}
}

// Subscribe registers a new outbound consumer. Events published after this
// call are visible to it.
func (b *Bridge) Subscribe() *Subscription {
	sub := &Subscription{
		bridge: b,
		notify: make(chan struct{}, 1),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closed = true
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish fans an event out to every subscriber. Never blocks: a full
// subscriber buffer discards its oldest event and records the gap.
func (b *Bridge) Publish(e Event) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.push(e, b.bufSize)
	}
}

func (s *Subscription) push(e Event, max int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= max {
		s.queue = s.queue[1:]
		s.missed++
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the next event for this subscriber, blocking until one is
// available or ctx is done. A subscriber that fell behind receives a
// *LaggedError exactly once for the gap before resuming with the oldest
// retained event.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if s.missed > 0 {
			n := s.missed
			s.missed = 0
			s.mu.Unlock()
			return Event{}, &LaggedError{Missed: n}
		}
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return e, nil
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close unregisters the subscriber.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.bridge.mu.Lock()
	delete(s.bridge.subs, s)
	s.bridge.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Close shuts the bridge down. Pending request intents receive ErrClosed via
// their closed reply channels; subscribers drain and then see ErrClosed.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}

	// Reject queued request intents so callers unblock.
	b.Drain(func(in Intent) {
		if in.Reply != nil {
			close(in.Reply)
		}
	})
	logger.Debug("Bridge.Close: bridge shut down")
}
