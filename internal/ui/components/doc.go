// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable rendering pieces of the
// chat interface: message bubbles, the status bar, and the thinking
// spinner. Components are pure renderers; state lives in the chat
// model.
package components
