package domain

import (
	"errors"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a widget acts before starting a session.
	ErrSessionNotFound = errors.New("form session not found")
	// ErrFormNotFound indicates the form definition could not be loaded.
	ErrFormNotFound = errors.New("form not found")
	// ErrSessionCompleted is returned for actions on an already-submitted session.
	ErrSessionCompleted = errors.New("form session already completed")
)

// ValidationError lists required questions left unanswered on the current page.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "required questions unanswered: " + strings.Join(e.Missing, ", ")
}
