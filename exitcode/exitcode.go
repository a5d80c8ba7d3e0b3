// Package exitcode maps failures of jenkins-builder to process exit codes.
package exitcode

import "strconv"

// Process exit codes.
const (
	OK            = 0
	InvalidJSON   = 1
	MissingUser   = 2
	MissingToken  = 3
	Unreadable    = 5  // EIO
	Client        = 12 // ENOMEM
	InvalidConfig = 22 // EINVAL
	Usage         = 64
	Unavailable   = 69
)

// Error wraps an error with the exit code the process should terminate with.
// It satisfies cli.ExitCoder.
type Error struct {
	Code int
	Err  error
}

// New returns an *Error carrying code.
func New(code int, err error) *Error {
	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ExitCode returns the process exit code.
func (e *Error) ExitCode() int { return e.Code }
