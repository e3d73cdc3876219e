package ssh

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrInvalidRemote indicates a remote address that cannot be parsed.
	ErrInvalidRemote = errors.New("invalid remote")

	// ErrMissingHost indicates a remote without a host.
	ErrMissingHost = errors.New("ssh host is required")

	// ErrBufferOverflow indicates a command produced more output than allowed.
	ErrBufferOverflow = errors.New("max buffer exceeded")

	ErrPassphraseRequired  = errors.New("passphrase required for private key")
	ErrSSHAgentUnavailable = errors.New("ssh agent not available")
)

// ExecError wraps command failures with exit details and captured output.
type ExecError struct {
	Command  string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Child    *Process
	Err      error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	if errors.Is(e.Err, ErrBufferOverflow) {
		fmt.Fprintf(&b, "command output exceeded max buffer: %s", e.Command)
	} else {
		fmt.Fprintf(&b, "command failed (exit=%d): %s", e.ExitCode, e.Command)
	}
	if stderr := strings.TrimSpace(string(e.Stderr)); stderr != "" {
		fmt.Fprintf(&b, ": %s", stderr)
	}
	return b.String()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// PoolError reports the first failing connection of a pool operation.
type PoolError struct {
	Host string
	Err  error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Host, e.Err)
}

func (e *PoolError) Unwrap() error {
	return e.Err
}

func wrapExecError(err error, cmd string, child *Process, stdout, stderr []byte) error {
	execErr := &ExecError{
		Command:  cmd,
		ExitCode: -1,
		Stdout:   stdout,
		Stderr:   stderr,
		Child:    child,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	return execErr
}
