// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the deskchat client:
// atomic file writes for exports, rune- and width-aware string
// truncation, and numeric formatting.
package util
