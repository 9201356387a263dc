// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles defines the color palette and pre-built Lip Gloss
// styles shared by all deskchat UI components. Colors adapt to light
// and dark terminal backgrounds automatically.
package styles
