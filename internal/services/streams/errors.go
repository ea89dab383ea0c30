package streams

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccounts is returned when a bare stream id is given and no default account exists
	ErrNoAccounts = errors.New("You do not have any account. Please create one or add it to the Speckle Manager.")

	// ErrNoAccountsForServer is returned when no local account belongs to the wrapper's server
	ErrNoAccountsForServer = errors.New("no accounts for server")

	// ErrNoInternet is returned when the wrapper's server cannot be reached
	ErrNoInternet = errors.New("You are not connected to the internet.")

	// ErrUnsupportedURL is returned for well-formed urls this wrapper cannot represent
	ErrUnsupportedURL = errors.New("url is not supported")

	// ErrNoResolver is returned when account resolution is attempted on a parse-only wrapper
	ErrNoResolver = errors.New("stream wrapper has no account resolver")
)

// ParseError reports input that is not one of the recognised url shapes
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("Cannot parse %s into a stream wrapper: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("Cannot parse %s into a stream wrapper.", e.Input)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError explains why an account cannot be used for a stream
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
