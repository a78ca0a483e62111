package sandbox

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied is returned when a path falls outside the restricted root.
var ErrPermissionDenied = errors.New("permission denied")

// PermissionError describes a rejected path.
type PermissionError struct {
	Path   string
	Root   string
	Reason string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s: %s (root %s)", e.Path, e.Reason, e.Root)
}

// Unwrap lets errors.Is match ErrPermissionDenied.
func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// IsPermissionDenied reports whether err was caused by a rejected path.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
