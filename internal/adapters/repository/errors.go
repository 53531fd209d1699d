package repository

import (
	"errors"
	"fmt"

	"github.com/okian/huddle/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrClosed        = errors.New("store is closed")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, model.ErrNotFound)
}

func invalid(kind, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidRecord, kind, reason)
}
