// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/gstrauss42/planning-poker/models"
)

const (
	// DefaultRetryDelay is how long after the primary send the
	// redundant copy goes out.
	DefaultRetryDelay = 2 * time.Second

	subscriberBuffer = 16
)

// Dispatcher fans out state-change notifications to all subscribers of
// the session channel. Delivery is fire-and-forget over buffered
// channels; a subscriber that cannot keep up loses messages and
// recovers from the next broadcast (state is a full snapshot, not a
// delta).
//
// Two compensations for unreliable delivery:
//   - duplicate suppression: identical consecutive payloads (by hash)
//     are not re-broadcast
//   - redundant delivery: every message is re-sent once after a short
//     delay, tagged Retry, to catch subscribers that connected in the
//     window between the primary send and persistence
type Dispatcher struct {
	retryDelay time.Duration

	mu         sync.Mutex
	subs       map[string]chan models.BroadcastMessage
	timers     map[*time.Timer]struct{}
	lastHash   uint64
	lastAction string
	closed     bool
}

// Config tunes the dispatcher. A zero RetryDelay takes the default; a
// negative one disables the redundant re-send.
type Config struct {
	RetryDelay time.Duration
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Dispatcher{
		retryDelay: cfg.RetryDelay,
		subs:       make(map[string]chan models.BroadcastMessage),
		timers:     make(map[*time.Timer]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its ID and receive
// channel. The channel is closed on Unsubscribe or dispatcher Close.
func (d *Dispatcher) Subscribe() (string, <-chan models.BroadcastMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan models.BroadcastMessage, subscriberBuffer)
	if d.closed {
		close(ch)
		return id, ch
	}
	d.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (d *Dispatcher) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the number of registered subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Publish sends a change notification to every subscriber. Identical
// consecutive states with the same change action are suppressed.
func (d *Dispatcher) Publish(changeAction string, state models.BroadcastState) {
	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("failed to marshal broadcast state", "error", err)
		return
	}
	hash := xxhash.Sum64(payload)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if hash == d.lastHash && changeAction == d.lastAction {
		slog.Debug("suppressing duplicate broadcast", "change_action", changeAction, "version", state.Version)
		return
	}
	d.lastHash = hash
	d.lastAction = changeAction

	msg := models.BroadcastMessage{
		Action:       "state_update",
		ChangeAction: changeAction,
		State:        state,
		Timestamp:    time.Now(),
		BroadcastID:  uuid.NewString(),
	}
	d.sendLocked(msg)

	if d.retryDelay > 0 {
		d.scheduleRetryLocked(msg)
	}
}

// scheduleRetryLocked arms the delayed redundant re-send. The timer is
// tracked so Close can cancel every pending re-send. Caller holds the
// mutex.
func (d *Dispatcher) scheduleRetryLocked(msg models.BroadcastMessage) {
	var timer *time.Timer
	timer = time.AfterFunc(d.retryDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		delete(d.timers, timer)
		if d.closed {
			return
		}
		retry := msg
		retry.Retry = true
		retry.Timestamp = time.Now()
		d.sendLocked(retry)
	})
	d.timers[timer] = struct{}{}
}

// sendLocked delivers to every subscriber without blocking. Caller
// holds the mutex.
func (d *Dispatcher) sendLocked(msg models.BroadcastMessage) {
	for id, ch := range d.subs {
		select {
		case ch <- msg:
		default:
			slog.Warn("subscriber channel full, dropping broadcast", "subscriber", id, "version", msg.State.Version)
		}
	}
}

// Close cancels all pending re-sends and closes every subscriber
// channel. Publish becomes a no-op afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for timer := range d.timers {
		timer.Stop()
		delete(d.timers, timer)
	}
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
}
