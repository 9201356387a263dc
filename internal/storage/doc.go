// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the session collection.
//
// All sessions live in a single namespaced slot of a local SQLite
// database, serialized as one JSON document. Loading is failure-proof:
// a missing or corrupt slot yields an empty collection and a log line,
// never an error, so the client always starts.
package storage
