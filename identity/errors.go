// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"fmt"
)

// AuthError represents a structured rejection from the identity
// provider. Callers can use errors.As to extract the structured
// information:
//
//	var authErr *identity.AuthError
//	if errors.As(err, &authErr) {
//	    if authErr.Code == identity.ErrCodeAliasTaken { ... }
//	}
type AuthError struct {
	// Code is the provider's reason code (e.g., "ALIAS_TAKEN").
	Code string `json:"errcode"`
	// Message is the human-readable description from the provider.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response, when the
	// error came from the relay provider. Zero otherwise.
	StatusCode int `json:"-"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("identity: %s: %s", e.Code, e.Message)
}

// Provider reason codes.
const (
	ErrCodeAliasTaken     = "ALIAS_TAKEN"
	ErrCodeBadCredentials = "BAD_CREDENTIALS"
	ErrCodeInvalidAlias   = "INVALID_ALIAS"
	ErrCodeUnknown        = "UNKNOWN"
)

// IsAuthError checks whether err is a *AuthError with the given code.
func IsAuthError(err error, code string) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code == code
	}
	return false
}
