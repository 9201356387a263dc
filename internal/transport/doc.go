// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport owns the realtime duplex connection to the
// assistant backend.
//
// It maintains at most one active connection, reconnects with linear
// backoff (base delay scaled by the attempt number) up to a bounded
// number of automatic attempts, and re-establishes the per-user
// response subscription after every reconnect. Fragment delivery is
// at-most-once: nothing is replayed across a disconnect boundary.
package transport
