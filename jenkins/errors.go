package jenkins

import (
	"fmt"

	"jenkins-builder/exitcode"
)

// BuildError reports a failed dispatch for one project.
type BuildError struct {
	Project string
	// Status is the HTTP status the server answered with, or 0 when the
	// request never completed.
	Status int
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("couldn't build project '%s': %v", e.Project, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ExitCode returns the HTTP status when one was received and
// exitcode.Unavailable otherwise.
func (e *BuildError) ExitCode() int {
	if e.Status > 0 {
		return e.Status
	}
	return exitcode.Unavailable
}
