// Package errs classifies the errors dicombids reports to its caller.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a coarse-grained categorization for errors.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindUnsorted        Kind = "unsorted"
	KindInvalidConfig   Kind = "invalid_config"
	KindMalformedLabel  Kind = "malformed_label"
	KindUnwritable      Kind = "unwritable"
	KindInvalidDocument Kind = "invalid_document"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind Kind
	Path string // Optional: relevant file path
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an OpError.
func New(op string, kind Kind, path string, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Path: path, Err: err}
}

// IsKind reports whether any OpError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
