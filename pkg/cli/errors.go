package cli

import (
	"errors"

	"otp/pkg/client"
	"otp/pkg/session"
)

// UsageError reports bad command-line arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "usage: " + e.Msg }

// Exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitUnreachable covers both an unreachable server and a server with
	// the wrong identity.
	ExitUnreachable = 2
)

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		ce *client.ConnectError
		ae *session.AuthError
	)
	if errors.As(err, &ce) || errors.As(err, &ae) {
		return ExitUnreachable
	}
	return ExitFailure
}
