// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"sync"

	"github.com/gstrauss42/planning-poker/models"
)

// Applier enforces the subscriber-side application rule: state.Version
// is the source of truth, and any message whose version is not greater
// than the last applied one is discarded. That makes application
// idempotent and order-tolerant - redundant re-sends and out-of-order
// delivery are both absorbed here.
type Applier struct {
	mu          sync.Mutex
	lastVersion int64
	applied     bool
}

func NewApplier() *Applier {
	return &Applier{}
}

// Apply reports whether the message should be applied to the local
// view. The first message is always applied, including version 0 (the
// default session).
func (a *Applier) Apply(msg models.BroadcastMessage) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.applied && msg.State.Version <= a.lastVersion {
		return false
	}
	a.applied = true
	a.lastVersion = msg.State.Version
	return true
}

// LastVersion returns the version of the last applied message.
func (a *Applier) LastVersion() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastVersion
}
