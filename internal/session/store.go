// Package session keeps ephemeral per-user conversation state.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no session exists for the key.
	ErrNotFound = errors.New("session not found")
	// ErrExpired means the session outlived its policy and was dropped.
	ErrExpired = errors.New("session expired")
)

// Clock returns the current instant.
type Clock func() time.Time

// Policy decides when a session is too old to continue.
// A zero TTL never expires.
type Policy struct {
	TTL time.Duration
}

// ExpiredGrace keeps an expired session around long enough for the next Get
// to report ErrExpired. Sweep only removes sessions past TTL plus this grace.
const ExpiredGrace = time.Hour

// Expired reports whether a session created at createdAt is past the TTL.
func (p Policy) Expired(createdAt, now time.Time) bool {
	return p.TTL > 0 && now.Sub(createdAt) > p.TTL
}

// Stale reports whether an expired session has also outlived the grace
// period, so its owner will not be told about it anymore.
func (p Policy) Stale(createdAt, now time.Time) bool {
	return p.TTL > 0 && now.Sub(createdAt) > p.TTL+ExpiredGrace
}

// Store holds sessions of type T keyed by user identity.
//
// Get drops and reports ErrExpired for a session past the policy, so callers
// can tell the user. Sweep removes stale sessions (see Policy.Stale) and
// returns how many, so a lazy Get still sees ErrExpired first.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T) error
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context) (int, error)
}

type entry[T any] struct {
	Value     T         `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
