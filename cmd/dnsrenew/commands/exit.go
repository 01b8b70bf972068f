package commands

import (
	"errors"
	"fmt"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
)

// An error type that includes an exit code
type ExitError struct {
	Code int
	Err  error
}

// Implement the error interface
func (e *ExitError) Error() string {
	return e.Err.Error()
}
func (e *ExitError) Unwrap() error {
	return e.Err
}

func ExitWithCode(code int, err error) *ExitError {
	if err == nil {
		return nil
	}
	return &ExitError{
		Code: code,
		Err:  err,
	}
}

// UsageError marks bad arguments; main exits with status 2 for it
type UsageError struct{ error }

func (e *UsageError) Unwrap() error {
	return e.error
}

// Exit codes. 2 is reserved for usage errors.
const (
	exitFailure = 1
	// no zone at the provider covers the domain
	exitZoneNotFound = 3
	// nothing is published at the challenge name
	exitNoTXTRecord = 4
	// records exist but never carried the expected digest
	exitNotPropagated = 5
)

// challengeExitCode maps a challenge or verification error to an exit code
func challengeExitCode(err error) int {
	switch {
	case errors.Is(err, challenge.ErrZoneNotFound):
		return exitZoneNotFound
	case errors.Is(err, challenge.ErrNoTXTRecord):
		return exitNoTXTRecord
	case errors.Is(err, dnsverification.ErrPropagationTimeout),
		errors.Is(err, dnsverification.ErrContentNotFound):
		return exitNotPropagated
	}
	return exitFailure
}

// challengeExit wraps a failed challenge step with the exit code for its cause
func challengeExit(step string, err error) error {
	if err == nil {
		return nil
	}
	return ExitWithCode(challengeExitCode(err), fmt.Errorf("%s failed: %w", step, err))
}
