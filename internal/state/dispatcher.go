// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"log"

	"github.com/jeranaias/deskchat-tui/internal/model"
)

// =============================================================================
// PERSISTENCE MIRROR
// =============================================================================

// Persister mirrors the durable session list. Implemented by the
// storage package; a nil Persister disables mirroring (tests, stateless
// subcommands).
type Persister interface {
	Save(sessions []*model.Session) error
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher owns the current State and routes every mutation through
// Apply. Durable transitions are mirrored to the store; a store failure
// is logged and swallowed - the client keeps working in memory for the
// rest of the run.
//
// Not safe for concurrent dispatch. All callers must dispatch from the
// same goroutine (the Bubble Tea update loop in the TUI).
type Dispatcher struct {
	state State
	store Persister
}

// NewDispatcher creates a dispatcher over the given initial state.
func NewDispatcher(initial State, store Persister) *Dispatcher {
	return &Dispatcher{state: initial, store: store}
}

// Dispatch applies the action and returns the resulting state.
func (d *Dispatcher) Dispatch(action Action) State {
	next, durable := Apply(d.state, action)
	d.state = next

	if durable && d.store != nil {
		if err := d.store.Save(next.Sessions); err != nil {
			log.Printf("session store save failed: %v", err)
		}
	}
	return next
}

// State returns the current state snapshot.
func (d *Dispatcher) State() State {
	return d.state
}

// ActiveSession returns the currently active session, or nil.
func (d *Dispatcher) ActiveSession() *model.Session {
	return d.state.ActiveSession()
}
