// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// PENDING ACTION TYPE
// =============================================================================

// ActionType identifies the kind of ITSM record a staged action creates.
type ActionType string

const (
	ActionIncidentCreate  ActionType = "INCIDENT_CREATE"
	ActionWorkOrderCreate ActionType = "WORK_ORDER_CREATE"
)

// ActionStatus is the lifecycle state of a staged action.
// PENDING is the only non-terminal state.
type ActionStatus string

const (
	ActionPending   ActionStatus = "PENDING"
	ActionConfirmed ActionStatus = "CONFIRMED"
	ActionCancelled ActionStatus = "CANCELLED"
	ActionExpired   ActionStatus = "EXPIRED"
)

// PendingAction is a ticketing operation the backend has staged and is
// waiting for the user to confirm. It is attached to the assistant
// message that proposed it.
type PendingAction struct {
	ActionID   string       `json:"actionId"`
	ActionType ActionType   `json:"actionType"`
	Preview    string       `json:"preview"`
	Status     ActionStatus `json:"status"`
	ExpiresAt  time.Time    `json:"expiresAt"`
}

// IsResolved reports whether the action has reached a terminal state.
// Resolved actions accept no further transitions.
func (a *PendingAction) IsResolved() bool {
	return a.Status != ActionPending
}

// IsExpired reports whether the action's confirmation window has passed.
func (a *PendingAction) IsExpired(now time.Time) bool {
	return a.Status == ActionPending && now.After(a.ExpiresAt)
}
