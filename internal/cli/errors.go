// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error.
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments.
	ExitUsageError = 2
	// ExitConfigError indicates a configuration error.
	ExitConfigError = 3
	// ExitNetworkError indicates a network or backend error.
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found.
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError represents invalid command usage.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}
	return ExitGeneralError
}
