// Package errors defines application errors and exit code mapping.
package errors

import sterrors "errors"

var (
	// ErrUsage indicates a command usage failure.
	ErrUsage = sterrors.New("usage error")
	// ErrMismatch indicates at least one file did not match its listed digest.
	ErrMismatch = sterrors.New("checksum mismatch")
	// ErrIO indicates a file could not be read.
	ErrIO = sterrors.New("i/o failure")
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if sterrors.Is(err, ErrUsage) {
		return 2
	}

	return 1
}
