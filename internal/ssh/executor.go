// Package ssh runs commands and copies files on remote hosts by shelling
// out to the system ssh, scp, rsync and tar binaries.
package ssh

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// DefaultMaxBuffer is the default cap on combined stdout and stderr.
const DefaultMaxBuffer = 1000 * 1024

// waitDelay bounds how long output pipes are drained after a killed process.
const waitDelay = 5 * time.Second

// Executor runs one shell command string as a local child process.
type Executor interface {
	// Exec runs the command and returns its captured output. A non-zero exit
	// returns an *ExecError carrying whatever output was produced.
	Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error)
}

// ExecOptions configures a single Exec call.
type ExecOptions struct {
	// MaxBuffer caps combined stdout and stderr; DefaultMaxBuffer when zero.
	MaxBuffer int

	// Cwd is the working directory of the child process.
	Cwd string

	// Env entries are appended to the current environment.
	Env []string

	// Stdout and Stderr receive output while the process runs.
	Stdout io.Writer
	Stderr io.Writer
}

// Process describes a spawned child process.
type Process struct {
	Command  string
	Pid      int
	ExitCode int
}

// ExecResult is the outcome of one successful command.
type ExecResult struct {
	Stdout []byte
	Stderr []byte
	Child  *Process
}

// MultiExecResult aggregates the ordered steps of a multi-command operation.
type MultiExecResult struct {
	Stdout   []byte
	Stderr   []byte
	Children []*Process
}

// ShellExecutor runs commands through the platform shell.
type ShellExecutor struct {
	shell []string
}

// NewShellExecutor returns an executor using "sh -c", or "cmd /C" on Windows.
func NewShellExecutor() *ShellExecutor {
	if runtime.GOOS == "windows" {
		return &ShellExecutor{shell: []string{"cmd", "/C"}}
	}
	return &ShellExecutor{shell: []string{"sh", "-c"}}
}

// SetShell overrides the interpreter, e.g. []string{"bash", "-c"}.
func (e *ShellExecutor) SetShell(shell ...string) {
	if len(shell) > 0 {
		e.shell = shell
	}
}

// Exec runs command and waits for it to exit.
func (e *ShellExecutor) Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error) {
	maxBuffer := opts.MaxBuffer
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := append(append([]string{}, e.shell[1:]...), command)
	cmd := exec.CommandContext(ctx, e.shell[0], args...)
	cmd.Dir = opts.Cwd
	cmd.WaitDelay = waitDelay
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	limit := &outputLimit{remaining: maxBuffer, onOverflow: cancel}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = tee(stdout, opts.Stdout)
	cmd.Stderr = tee(stderr, opts.Stderr)

	child := &Process{Command: command, ExitCode: -1}
	if err := cmd.Start(); err != nil {
		return nil, wrapExecError(err, command, child, nil, nil)
	}
	child.Pid = cmd.Process.Pid

	err := cmd.Wait()
	if cmd.ProcessState != nil {
		child.ExitCode = cmd.ProcessState.ExitCode()
	}
	if limit.exceeded() {
		return nil, wrapExecError(ErrBufferOverflow, command, child, stdout.Bytes(), stderr.Bytes())
	}
	if err != nil {
		return nil, wrapExecError(err, command, child, stdout.Bytes(), stderr.Bytes())
	}
	return &ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Child: child}, nil
}

// outputLimit is shared by the stdout and stderr buffers of one process.
type outputLimit struct {
	mu         sync.Mutex
	remaining  int
	overflowed bool
	onOverflow func()
}

// take reserves up to n bytes and reports how many may be kept.
func (l *outputLimit) take(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= l.remaining {
		l.remaining -= n
		return n
	}
	kept := l.remaining
	l.remaining = 0
	if !l.overflowed {
		l.overflowed = true
		l.onOverflow()
	}
	return kept
}

func (l *outputLimit) exceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overflowed
}

type cappedBuffer struct {
	limit *outputLimit
	buf   bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	kept := b.limit.take(len(p))
	b.buf.Write(p[:kept])
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

// tee writes to buf and, best effort, to sink. Sink errors never fail the
// process.
func tee(buf io.Writer, sink io.Writer) io.Writer {
	if sink == nil {
		return buf
	}
	return io.MultiWriter(buf, bestEffort{sink})
}

type bestEffort struct {
	w io.Writer
}

func (b bestEffort) Write(p []byte) (int, error) {
	_, _ = b.w.Write(p)
	return len(p), nil
}
