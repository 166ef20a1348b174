package domain

import (
	"errors"
	"fmt"
)

// ValidationError blocks a write. Field names the offending input; PlayerID
// is set when the problem is attributable to a single participant.
type ValidationError struct {
	Field    string `json:"field"`
	PlayerID string `json:"playerId,omitempty"`
	Message  string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.PlayerID != "" {
		return fmt.Sprintf("validation failed on %s (player %s): %s", e.Field, e.PlayerID, e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ValidationErrors is the full set of blocking errors from one validation pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(e), e[0].Error())
}

// NotFoundError reports a missing referenced record.
type NotFoundError struct {
	Kind string // "player", "match", "participation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError for the given record kind and id.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// StorageError wraps an opaque backend I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// InconsistentStateError means recalculation saw data violating a model
// invariant, e.g. a participation referencing a nonexistent player. An empty
// team is the one tolerated case and is skipped, not reported.
type InconsistentStateError struct {
	MatchID string
	Reason  string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state in match %s: %s", e.MatchID, e.Reason)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
