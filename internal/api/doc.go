// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the assistant backend.
//
// It covers the request/response side of the protocol: session listing,
// history retrieval, staged-action confirmation, and feedback. The
// streaming side lives in package transport.
package api
