package engine

import (
	"errors"
	"fmt"
)

// modelUnavailableError signals that a configured model cannot be opened
// (missing on the engine, or its modules do not resolve).
type modelUnavailableError struct {
	name   string
	reason string
}

func (e modelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %s: %s", e.name, e.reason)
}

// ErrModelUnavailable constructs a modelUnavailableError.
func ErrModelUnavailable(name, reason string) error {
	return modelUnavailableError{name: name, reason: reason}
}

// IsModelUnavailable reports whether err indicates a model the engine cannot serve.
func IsModelUnavailable(err error) bool {
	var e modelUnavailableError
	return errors.As(err, &e)
}

// RemoteError is a failed call to the remote tracing service.
type RemoteError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote %s: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("remote %s: http %d: %s", e.Op, e.Status, e.Body)
}

// IsRemote reports whether err originates from the remote tracing service.
func IsRemote(err error) bool {
	var e *RemoteError
	return errors.As(err, &e)
}

// PositionError reports a token position outside the tokenized prompt.
type PositionError struct {
	Position int
	Length   int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("token position %d out of range for %d tokens", e.Position, e.Length)
}

// CheckPositions returns a *PositionError for the first position outside [0, length).
func CheckPositions(positions []int, length int) error {
	for _, p := range positions {
		if p < 0 || p >= length {
			return &PositionError{Position: p, Length: length}
		}
	}
	return nil
}

// InputError reports an invocation the engine refuses to run as given.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// IsInput reports whether err is an *InputError or a *PositionError.
func IsInput(err error) bool {
	var ie *InputError
	var pe *PositionError
	return errors.As(err, &ie) || errors.As(err, &pe)
}
