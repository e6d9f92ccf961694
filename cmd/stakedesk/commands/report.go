package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/moltbunker/stakedesk/internal/logging"
)

// shownError marks a failure the user has already seen as a status line.
// The cause stays reachable through Unwrap and goes to the log, never to the
// terminal.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// shown logs err and marks it as already presented.
func shown(cmd string, err error) error {
	logging.Debug("command failed", logging.Component(cmd), logging.Err(err))
	return &shownError{err: err}
}

// ReportError writes err to w unless its status line was already printed.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var s *shownError
	if errors.As(err, &s) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
