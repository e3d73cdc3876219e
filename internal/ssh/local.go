package ssh

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/tOgg1/shipit/internal/logging"
)

// Local runs commands on the local machine with the same result contract
// as Connection.
type Local struct {
	Executor Executor
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *zerolog.Logger
}

// LocalOptions configures a single local command.
type LocalOptions struct {
	Cwd       string
	Env       []string
	Stdout    io.Writer
	Stderr    io.Writer
	MaxBuffer int
}

// Run executes cmd through the local shell.
func (l *Local) Run(ctx context.Context, cmd string, opts LocalOptions) (*ExecResult, error) {
	log := logging.Component("local")
	if l.Logger != nil {
		log = *l.Logger
	}
	log.Info().Msgf("Running \"%s\" on local.", logging.Redact(cmd))
	if len(opts.Env) > 0 {
		log.Debug().Strs("env", logging.RedactEnv(opts.Env)).Msg("extra environment")
	}

	exec := l.Executor
	if exec == nil {
		exec = NewShellExecutor()
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = l.Stdout
	}
	if stderr == nil {
		stderr = l.Stderr
	}
	s := newStreams(stdout, stderr, "@ ", "@ ")
	defer s.flush()

	execOpts := ExecOptions{MaxBuffer: opts.MaxBuffer, Cwd: opts.Cwd, Env: opts.Env}
	s.apply(&execOpts)
	return exec.Exec(ctx, cmd, execOpts)
}
