// Package apperr defines the error taxonomy shared by the planning core.
// Every failure carries a kind, the operation that produced it and the id of
// the offending entity so callers can render a precise message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStateConflict Kind = "state_conflict"
	KindCollaborator  Kind = "collaborator"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTeamNotFound      = errors.New("team not found or inactive")
	ErrInvalidDateRange  = errors.New("end date must be after start date")
	ErrIneligibleTask    = errors.New("task is not eligible for planning")
	ErrInvalidStage      = errors.New("task stage does not permit planning")
	ErrInvalidEstimation = errors.New("estimation out of range")
	ErrVersionConflict   = errors.New("task was modified concurrently")
)

type Error struct {
	Kind Kind
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func TaskNotFound(op, taskID string) error {
	return New(KindNotFound, op, taskID, ErrTaskNotFound)
}

func TeamNotFound(op, teamID string) error {
	return New(KindNotFound, op, teamID, ErrTeamNotFound)
}

func InvalidDateRange(op, taskID string) error {
	return New(KindValidation, op, taskID, ErrInvalidDateRange)
}

// IneligibleTask reports a task that cannot be scored, with the reason such as
// a missing estimation or a finished stage.
func IneligibleTask(op, taskID, reason string) error {
	return New(KindValidation, op, taskID, fmt.Errorf("%w: %s", ErrIneligibleTask, reason))
}

func InvalidStage(op, taskID, stage string) error {
	return New(KindStateConflict, op, taskID, fmt.Errorf("%w: %s", ErrInvalidStage, stage))
}

func InvalidEstimation(op, taskID, detail string) error {
	return New(KindValidation, op, taskID, fmt.Errorf("%w: %s", ErrInvalidEstimation, detail))
}

func VersionConflict(op, taskID string) error {
	return New(KindStateConflict, op, taskID, ErrVersionConflict)
}

// KindOf reports the kind of err. Errors that do not come from this package
// are collaborator failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindCollaborator
}

// IDOf returns the offending entity id carried by err, if any.
func IDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.ID
	}

	return ""
}
