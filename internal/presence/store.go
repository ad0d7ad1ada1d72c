package presence

import (
	"context"
	"fmt"
)

// Flag is one row of a presence snapshot.
type Flag struct {
	UserID string
	Online bool
}

// Store is the remote side of presence tracking.
type Store interface {
	WriteOnlineFlag(ctx context.Context, userID string, online bool) error
	ReadAllOnlineFlags(ctx context.Context) ([]Flag, error)
}

const (
	OpWrite = "write"
	OpRead  = "read"
)

// StoreError is returned by Store implementations on network, auth or backend failures.
type StoreError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StoreError) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("presence store %s (user %s): %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("presence store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WriteError wraps err as a StoreError for a write of userID. A nil err stays nil.
func WriteError(userID string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: OpWrite, UserID: userID, Err: err}
}

// ReadError wraps err as a StoreError for a snapshot read. A nil err stays nil.
func ReadError(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: OpRead, Err: err}
}
