// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view: the Bubble Tea
// model that ties the reducer, stream assembler, transport, and REST
// client together behind a scrollable conversation viewport.
//
// All state mutations flow through the dispatcher on the Bubble Tea
// update goroutine. Transport callbacks never touch the model
// directly; they are bridged into the update loop as messages via
// tea.Program.Send.
package chat
