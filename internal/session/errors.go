package session

import (
	"errors"
	"fmt"
)

// Error categories. Returned errors wrap one of these; test with errors.Is.
var (
	ErrNotInitialized    = errors.New("session not initialized")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrDecode            = errors.New("decode failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrContextExhausted  = errors.New("context exhausted")
	ErrAllocation        = errors.New("allocation failed")
	ErrStateSizeMismatch = errors.New("state size mismatch")
	ErrMissingCallback   = errors.New("missing token handler")
)

// ErrNoSnapshot is returned by SnapshotSlot.Restore before any Update.
var ErrNoSnapshot = errors.New("no snapshot taken")

// ErrContextTooLarge is returned by Open when the configured context length
// exceeds the model's trained context length.
var ErrContextTooLarge = fmt.Errorf("%w: context length exceeds trained context length", ErrInvalidArgument)

// IsContextExhausted reports whether err ended a query because the context
// ran out of positions.
func IsContextExhausted(err error) bool { return errors.Is(err, ErrContextExhausted) }

// IsNotInitialized reports whether err was caused by a closed or missing session.
func IsNotInitialized(err error) bool { return errors.Is(err, ErrNotInitialized) }

// IsInvalidArgument reports whether err was caused by caller input.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }
