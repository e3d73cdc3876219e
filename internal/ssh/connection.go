package ssh

import (
	"bytes"
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/shipit/internal/command"
	"github.com/tOgg1/shipit/internal/deprecation"
	"github.com/tOgg1/shipit/internal/logging"
)

// DirectionRemoteToLocal makes Copy pull from the remote.
const DirectionRemoteToLocal = "remoteToLocal"

// Options configures a Connection.
type Options struct {
	// Key is the path of the private key passed to ssh and scp.
	Key string

	// Strict is the StrictHostKeyChecking value; omitted when empty.
	Strict string

	// TTY sets pseudo-terminal allocation for every Run. When nil, commands
	// starting with sudo get a terminal.
	TTY *bool

	// AsUser runs remote commands through "sudo -u".
	AsUser string

	VerbosityLevel int

	// Proxy is an ssh ProxyCommand.
	Proxy string

	// Stdout and Stderr receive prefixed output of every command.
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives command logs; the sshpool component logger when nil.
	Logger *zerolog.Logger

	// Executor runs the generated commands; a ShellExecutor when nil.
	Executor Executor

	// Probe decides the strategy of Copy; LookPathProbe when nil.
	Probe CapabilityProbe

	// ArchiveName names temporary tar archives.
	ArchiveName func() string
}

// RunOptions configures a single Run.
type RunOptions struct {
	// TTY overrides Options.TTY when non-nil.
	TTY *bool

	Cwd string

	// Proxy overrides the connection proxy.
	Proxy string

	Stdout    io.Writer
	Stderr    io.Writer
	MaxBuffer int
}

// CopyOptions configures copy operations.
type CopyOptions struct {
	// Direction is only read by Copy.
	Direction string

	// Ignores become --exclude entries.
	Ignores []string

	// Rsync holds extra rsync flags appended verbatim.
	Rsync []string

	// Proxy overrides the connection proxy.
	Proxy string

	Stdout    io.Writer
	Stderr    io.Writer
	MaxBuffer int
}

// Bool returns a pointer to b, for the TTY options.
func Bool(b bool) *bool {
	return &b
}

// Connection runs commands on one remote target. It holds no mutable state
// and is safe for concurrent use.
type Connection struct {
	remote Remote
	opts   Options
	exec   Executor
	probe  CapabilityProbe
	log    zerolog.Logger
}

// NewConnection parses remote and returns a connection to it.
func NewConnection(remote string, opts Options) (*Connection, error) {
	r, err := ParseRemote(remote)
	if err != nil {
		return nil, err
	}
	return NewConnectionFromRemote(r, opts)
}

// NewConnectionFromRemote returns a connection to an already parsed remote.
// The remote is used as given; only a missing user is defaulted.
func NewConnectionFromRemote(remote Remote, opts Options) (*Connection, error) {
	if remote.Host == "" {
		return nil, ErrMissingHost
	}
	c := &Connection{remote: remote, opts: opts, exec: opts.Executor, probe: opts.Probe}
	if c.remote.User == "" {
		c.remote.User = DefaultUser
	}
	if c.exec == nil {
		c.exec = NewShellExecutor()
	}
	if c.probe == nil {
		c.probe = LookPathProbe{}
	}
	if opts.Logger != nil {
		c.log = *opts.Logger
	} else {
		c.log = logging.Component("sshpool")
	}
	c.log = c.log.With().Str("host", remote.Host).Logger()
	return c, nil
}

// Remote returns the target address.
func (c *Connection) Remote() Remote {
	return c.remote
}

// Run executes command on the remote host over ssh.
func (c *Connection) Run(ctx context.Context, cmd string, opts RunOptions) (*ExecResult, error) {
	var tty bool
	switch {
	case opts.TTY != nil:
		tty = *opts.TTY
	case c.opts.TTY != nil:
		tty = *c.opts.TTY
	case strings.HasPrefix(cmd, "sudo"):
		deprecation.Warn(deprecation.V3, `You should set "tty" option explicitly when you use "sudo".`)
		tty = true
	}

	c.log.Info().Msgf("Running \"%s\" on host \"%s\".", logging.Redact(cmd), c.remote.Host)

	sshCmd := c.sshCommand(cmd, tty, opts.Cwd, c.proxy(opts.Proxy))
	return c.runLocally(ctx, sshCmd, opts.Stdout, opts.Stderr, opts.MaxBuffer)
}

// CopyToRemote copies src to dest on the remote with rsync.
func (c *Connection) CopyToRemote(ctx context.Context, src, dest string, opts CopyOptions) (*ExecResult, error) {
	return c.rsyncCopy(ctx, src, c.remote.String()+":"+dest, opts)
}

// CopyFromRemote copies src on the remote to the local dest with rsync.
func (c *Connection) CopyFromRemote(ctx context.Context, src, dest string, opts CopyOptions) (*ExecResult, error) {
	return c.rsyncCopy(ctx, c.remote.String()+":"+src, dest, opts)
}

// ScpCopyToRemote copies src to dest on the remote by archiving locally,
// transferring with scp and extracting remotely. Steps run in order and the
// first failure aborts the rest; nothing is rolled back.
func (c *Connection) ScpCopyToRemote(ctx context.Context, src, dest string, opts CopyOptions) (*MultiExecResult, error) {
	archive := c.archiveName()
	srcDir := filepath.Dir(src)

	b := &stepBuilder{}
	compress := b.chain(b.cd(srcDir), b.tar(command.TarOptions{
		Mode:     command.TarCompress,
		File:     filepath.Base(src),
		Archive:  archive,
		Excludes: opts.Ignores,
	}))
	mkdir := b.mkdir(dest)
	transfer := b.chain(b.cd(srcDir), b.scp(command.ScpOptions{
		Port:  c.remote.Port,
		Key:   c.opts.Key,
		Proxy: c.proxy(opts.Proxy),
		Src:   archive,
		Dest:  c.remote.String() + ":" + dest,
	}))
	cleanSrc := b.chain(b.cd(srcDir), b.rm(archive))
	extract := b.chain(b.cd(dest), b.extract(archive))
	cleanDest := b.chain(b.cd(dest), b.rm(archive))
	if b.err != nil {
		return nil, b.err
	}

	return c.aggregate(ctx, opts, []step{
		c.localStep(compress),
		c.remoteStep(mkdir),
		c.localStep(transfer),
		c.localStep(cleanSrc),
		c.remoteStep(extract),
		c.remoteStep(cleanDest),
	})
}

// ScpCopyFromRemote copies src on the remote to the local dest by archiving
// remotely, transferring with scp and extracting locally.
func (c *Connection) ScpCopyFromRemote(ctx context.Context, src, dest string, opts CopyOptions) (*MultiExecResult, error) {
	archive := c.archiveName()
	srcDir := path.Dir(src)

	b := &stepBuilder{}
	compress := b.chain(b.cd(srcDir), b.tar(command.TarOptions{
		Mode:     command.TarCompress,
		File:     path.Base(src),
		Archive:  archive,
		Excludes: opts.Ignores,
	}))
	mkdir := b.mkdir(dest)
	transfer := b.scp(command.ScpOptions{
		Port:  c.remote.Port,
		Key:   c.opts.Key,
		Proxy: c.proxy(opts.Proxy),
		Src:   c.remote.String() + ":" + path.Join(srcDir, archive),
		Dest:  dest,
	})
	cleanSrc := b.chain(b.cd(srcDir), b.rm(archive))
	extract := b.chain(b.cd(dest), b.extract(archive))
	cleanDest := b.chain(b.cd(dest), b.rm(archive))
	if b.err != nil {
		return nil, b.err
	}

	return c.aggregate(ctx, opts, []step{
		c.remoteStep(compress),
		c.localStep(mkdir),
		c.localStep(transfer),
		c.remoteStep(cleanSrc),
		c.localStep(extract),
		c.localStep(cleanDest),
	})
}

// Copy picks rsync when available and falls back to tar and scp.
//
// Deprecated: use CopyToRemote, CopyFromRemote, ScpCopyToRemote or
// ScpCopyFromRemote.
func (c *Connection) Copy(ctx context.Context, src, dest string, opts CopyOptions) (*MultiExecResult, error) {
	deprecation.Warn(deprecation.V5, `"copy" method is deprecated, please use "copyToRemote", "copyFromRemote", "scpCopyToRemote" or "scpCopyFromRemote".`)

	fromRemote := opts.Direction == DirectionRemoteToLocal
	if SelectStrategy(ctx, c.probe) == StrategyTarScp {
		if fromRemote {
			return c.ScpCopyFromRemote(ctx, src, dest, opts)
		}
		return c.ScpCopyToRemote(ctx, src, dest, opts)
	}

	var (
		res *ExecResult
		err error
	)
	if fromRemote {
		res, err = c.CopyFromRemote(ctx, src, dest, opts)
	} else {
		res, err = c.CopyToRemote(ctx, src, dest, opts)
	}
	if err != nil {
		return nil, err
	}
	return &MultiExecResult{Stdout: res.Stdout, Stderr: res.Stderr, Children: []*Process{res.Child}}, nil
}

func (c *Connection) rsyncCopy(ctx context.Context, src, dest string, opts CopyOptions) (*ExecResult, error) {
	c.log.Info().Msgf("Copy \"%s\" to \"%s\" via rsync", src, dest)

	cmd, err := command.Rsync(command.RsyncOptions{
		Src:            src,
		Dest:           dest,
		Excludes:       opts.Ignores,
		AdditionalArgs: opts.Rsync,
		RemoteShell:    c.sshCommand("", c.opts.TTY != nil && *c.opts.TTY, "", c.proxy(opts.Proxy)),
	})
	if err != nil {
		return nil, err
	}
	return c.runLocally(ctx, cmd, opts.Stdout, opts.Stderr, opts.MaxBuffer)
}

// sshCommand builds the ssh invocation; an empty cmd yields the bare
// "ssh [flags]" used as rsync's remote shell.
func (c *Connection) sshCommand(cmd string, tty bool, cwd, proxy string) string {
	opts := command.SSHOptions{
		Port:           c.remote.Port,
		Key:            c.opts.Key,
		Strict:         c.opts.Strict,
		TTY:            tty,
		Proxy:          proxy,
		VerbosityLevel: c.opts.VerbosityLevel,
	}
	if cmd != "" {
		opts.Remote = c.remote.String()
		opts.Command = command.Raw(command.RawOptions{Command: cmd, AsUser: c.opts.AsUser})
		opts.Cwd = cwd
	}
	return command.SSH(opts)
}

func (c *Connection) proxy(override string) string {
	if override != "" {
		return override
	}
	return c.opts.Proxy
}

func (c *Connection) archiveName() string {
	if c.opts.ArchiveName != nil {
		return c.opts.ArchiveName()
	}
	return "shipit-" + uuid.NewString() + ".tar.gz"
}

func (c *Connection) runLocally(ctx context.Context, cmd string, stdout, stderr io.Writer, maxBuffer int) (*ExecResult, error) {
	if stdout == nil {
		stdout = c.opts.Stdout
	}
	if stderr == nil {
		stderr = c.opts.Stderr
	}
	s := newStreams(stdout, stderr, "@"+c.remote.Host+" ", "@"+c.remote.Host+"-err ")
	defer s.flush()

	execOpts := ExecOptions{MaxBuffer: maxBuffer}
	s.apply(&execOpts)
	return c.exec.Exec(ctx, cmd, execOpts)
}

type step func(ctx context.Context, opts CopyOptions) (*ExecResult, error)

func (c *Connection) localStep(cmd string) step {
	return func(ctx context.Context, opts CopyOptions) (*ExecResult, error) {
		return c.runLocally(ctx, cmd, opts.Stdout, opts.Stderr, opts.MaxBuffer)
	}
}

func (c *Connection) remoteStep(cmd string) step {
	return func(ctx context.Context, opts CopyOptions) (*ExecResult, error) {
		return c.Run(ctx, cmd, RunOptions{
			Proxy:     opts.Proxy,
			Stdout:    opts.Stdout,
			Stderr:    opts.Stderr,
			MaxBuffer: opts.MaxBuffer,
		})
	}
}

// aggregate runs steps in order and concatenates their output.
func (c *Connection) aggregate(ctx context.Context, opts CopyOptions, steps []step) (*MultiExecResult, error) {
	var stdout, stderr bytes.Buffer
	children := make([]*Process, 0, len(steps))
	for _, run := range steps {
		res, err := run(ctx, opts)
		if err != nil {
			return nil, err
		}
		stdout.Write(res.Stdout)
		stderr.Write(res.Stderr)
		children = append(children, res.Child)
	}
	return &MultiExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Children: children}, nil
}

// stepBuilder formats commands, keeping the first error.
type stepBuilder struct {
	err error
}

func (b *stepBuilder) keep(cmd string, err error) string {
	if b.err == nil && err != nil {
		b.err = err
	}
	return cmd
}

func (b *stepBuilder) cd(folder string) string {
	return b.keep(command.Cd(folder))
}

func (b *stepBuilder) mkdir(folder string) string {
	return b.keep(command.Mkdir(command.MkdirOptions{Folder: folder}))
}

func (b *stepBuilder) rm(file string) string {
	return b.keep(command.Rm(command.RmOptions{File: file}))
}

func (b *stepBuilder) tar(opts command.TarOptions) string {
	return b.keep(command.Tar(opts))
}

func (b *stepBuilder) extract(archive string) string {
	return b.tar(command.TarOptions{Mode: command.TarExtract, Archive: archive, StripComponents: 1})
}

func (b *stepBuilder) scp(opts command.ScpOptions) string {
	return b.keep(command.Scp(opts))
}

func (b *stepBuilder) chain(commands ...string) string {
	return command.Chain(commands...)
}
