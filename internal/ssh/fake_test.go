package ssh

import (
	"context"
	"sync"
)

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

// fakeExecutor records commands and answers from a handler.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	handler  func(cmd string) fakeResponse
}

func (f *fakeExecutor) Exec(ctx context.Context, cmd string, opts ExecOptions) (*ExecResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	var resp fakeResponse
	if f.handler != nil {
		resp = f.handler(cmd)
	}
	if opts.Stdout != nil && resp.stdout != "" {
		_, _ = opts.Stdout.Write([]byte(resp.stdout))
	}
	if opts.Stderr != nil && resp.stderr != "" {
		_, _ = opts.Stderr.Write([]byte(resp.stderr))
	}

	child := &Process{Command: cmd}
	if resp.err != nil {
		child.ExitCode = 1
		return nil, &ExecError{
			Command:  cmd,
			ExitCode: 1,
			Stdout:   []byte(resp.stdout),
			Stderr:   []byte(resp.stderr),
			Child:    child,
			Err:      resp.err,
		}
	}
	return &ExecResult{Stdout: []byte(resp.stdout), Stderr: []byte(resp.stderr), Child: child}, nil
}

func (f *fakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}
