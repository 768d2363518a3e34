package main

import "fmt"

// Exit codes for the kurir CLI
const (
	// ExitSuccess indicates a 2xx/3xx response
	ExitSuccess = 0

	// ExitHTTPError indicates the server answered with 4xx or 5xx
	ExitHTTPError = 1

	// ExitConfigError indicates an invalid config file or flag value
	ExitConfigError = 3

	// ExitNetworkError indicates a transport failure, timeout or cancellation
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }
