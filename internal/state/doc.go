// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state owns the client's application state.
//
// All mutation flows through a single pure transition function, Apply,
// over a tagged-union action set. The Dispatcher wraps Apply, mirrors
// durable transitions to the session store, and is the only holder of
// mutable state; everything else reads state snapshots or submits
// actions. Dispatch is expected to run on one goroutine (the UI event
// loop) - there is no internal locking by design.
package state
