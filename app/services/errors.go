package services

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted means no account in the pool has a free slot.
	ErrExhausted = errors.New("no account slot available")
	// ErrLimitReached means the user already owns the maximum number of
	// block policies.
	ErrLimitReached = errors.New("policy limit reached")
	ErrNotFound     = errors.New("not found")
	// ErrUnauthorized means the referenced object exists but belongs to a
	// different user.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidEmail = errors.New("invalid email address")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrLoginFailed  = errors.New("invalid credentials")
)

// RecomposeError reports that a policy mutation succeeded remotely and
// locally but the follow-up allow-all recomposition failed. The caller only
// needs to retry recomposition, not the original mutation.
type RecomposeError struct {
	Err error
}

func (e *RecomposeError) Error() string {
	return fmt.Sprintf("recompose allow-all policy: %v", e.Err)
}

func (e *RecomposeError) Unwrap() error { return e.Err }
