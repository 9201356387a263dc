// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions, messages,
// knowledge-base citations, staged ticketing actions, and the wire types
// exchanged with the assistant backend.
package model
