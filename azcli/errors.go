package azcli

import (
	"fmt"
	"strings"
)

// ExecutionError reports a subprocess that exited non-zero or produced stdout
// that could not be parsed as JSON.
type ExecutionError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("command %q failed", e.Command)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// UnsupportedPlatformError reports a host OS the Azure CLI bootstrap does not
// know how to detect or install on.
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("platform %q is not supported; install the Azure CLI manually and retry", e.OS)
}
