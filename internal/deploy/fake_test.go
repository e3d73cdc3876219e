package deploy

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tOgg1/shipit/internal/ssh"
)

// fakeRemote answers every command with one stdout per host.
type fakeRemote struct {
	mu       sync.Mutex
	hosts    int
	commands []string
	copies   []string
	answer   func(cmd string) []string
	fail     string
}

func newFakeRemote(hosts int) *fakeRemote {
	return &fakeRemote{hosts: hosts}
}

func (f *fakeRemote) Run(_ context.Context, cmd string, _ ssh.RunOptions) ([]*ssh.ExecResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()

	if f.fail != "" && strings.Contains(cmd, f.fail) {
		return nil, &ssh.PoolError{Host: "web1", Err: errors.New("exit status 1")}
	}

	var outputs []string
	if f.answer != nil {
		outputs = f.answer(cmd)
	}
	results := make([]*ssh.ExecResult, f.hosts)
	for i := range results {
		out := ""
		if len(outputs) == 1 {
			out = outputs[0]
		} else if i < len(outputs) {
			out = outputs[i]
		}
		results[i] = &ssh.ExecResult{Stdout: []byte(out), Child: &ssh.Process{Command: cmd}}
	}
	return results, nil
}

func (f *fakeRemote) CopyToRemote(_ context.Context, src, dest string, opts ssh.CopyOptions) ([]*ssh.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, "rsync "+src+" "+dest+" "+strings.Join(opts.Rsync, ","))
	return make([]*ssh.ExecResult, f.hosts), nil
}

func (f *fakeRemote) ScpCopyToRemote(_ context.Context, src, dest string, _ ssh.CopyOptions) ([]*ssh.MultiExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, "scp "+src+" "+dest)
	return make([]*ssh.MultiExecResult, f.hosts), nil
}

func (f *fakeRemote) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

type localCall struct {
	cmd string
	cwd string
}

// fakeLocal records local commands and answers from a map of prefixes.
type fakeLocal struct {
	mu      sync.Mutex
	calls   []localCall
	outputs map[string]string
}

func (f *fakeLocal) Run(_ context.Context, cmd string, opts ssh.LocalOptions) (*ssh.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, localCall{cmd: cmd, cwd: opts.Cwd})
	out := ""
	for prefix, o := range f.outputs {
		if strings.HasPrefix(cmd, prefix) {
			out = o
		}
	}
	return &ssh.ExecResult{Stdout: []byte(out), Child: &ssh.Process{Command: cmd}}, nil
}

func (f *fakeLocal) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmds := make([]string, len(f.calls))
	for i, c := range f.calls {
		cmds[i] = c.cmd
	}
	return cmds
}
