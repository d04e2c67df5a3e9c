package tarriball

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrValidation is matched by errors caused by unsafe or malformed caller input.
	ErrValidation = errors.New("tarriball: validation failed")

	// ErrFormat is matched by errors caused by a stream that is not a well-formed UStar archive.
	ErrFormat = errors.New("tarriball: malformed archive")
)

// ValidationError reports caller input that cannot be archived or extracted
// safely. It is always returned before any bytes are written or consumed for
// the offending item.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "tarriball: " + e.Reason
	}
	return fmt.Sprintf("tarriball: %s: %s", e.Reason, e.Path)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FormatError reports data that does not follow the UStar block structure.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "tarriball: " + e.Reason }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// OpError wraps a failure of a filesystem collaborator with the operation
// and path that were being worked on.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
