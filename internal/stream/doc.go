// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns the ordered inbound chunk stream from the
// assistant backend into reducer actions.
//
// The assembler tracks at most one in-flight streaming message per
// session and assumes in-order delivery on a single logical stream; it
// never reorders or buffers fragments.
package stream
