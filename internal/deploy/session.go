// Package deploy implements the release tasks run against a server pool:
// fetching the repository, uploading a release, switching the current
// symlink, pruning old releases and rolling back.
package deploy

import (
	"context"
	"io"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/shipit/internal/config"
	"github.com/tOgg1/shipit/internal/events"
	"github.com/tOgg1/shipit/internal/logging"
	"github.com/tOgg1/shipit/internal/ssh"
)

// Remote is the server side of a deploy. *ssh.Pool implements it.
type Remote interface {
	Run(ctx context.Context, cmd string, opts ssh.RunOptions) ([]*ssh.ExecResult, error)
	CopyToRemote(ctx context.Context, src, dest string, opts ssh.CopyOptions) ([]*ssh.ExecResult, error)
	ScpCopyToRemote(ctx context.Context, src, dest string, opts ssh.CopyOptions) ([]*ssh.MultiExecResult, error)
}

// Local runs commands on the deploying machine. *ssh.Local implements it.
type Local interface {
	Run(ctx context.Context, cmd string, opts ssh.LocalOptions) (*ssh.ExecResult, error)
}

// Session carries the configuration, transports and run state shared by
// the tasks of one deploy, rollback or pending run.
type Session struct {
	Config *config.Config
	Remote Remote
	Local  Local

	// Ops answers release queries; backed by Remote when nil.
	Ops RemoteOps

	// Events receives milestones; discarded when nil.
	Events events.Publisher

	// Strategy selects how releases are uploaded.
	Strategy ssh.CopyStrategy

	// Out receives the pending commits report.
	Out io.Writer

	Now func() time.Time

	log zerolog.Logger

	workspace          string
	releaseDirname     string
	releasePath        string
	previousRelease    string
	previousRevision   string
	currentRevision    string
	prevReleaseDirname string
	prevReleasePath    string
}

// NewSession returns a session for cfg.
func NewSession(cfg *config.Config, remote Remote, local Local) *Session {
	return &Session{
		Config: cfg,
		Remote: remote,
		Local:  local,
		Out:    os.Stdout,
		Now:    time.Now,
		log:    logging.Deploy(cfg.Environment),
	}
}

// CurrentPath is the symlink pointing at the live release.
func (s *Session) CurrentPath() string {
	return path.Join(s.Config.DeployTo, "current")
}

// ReleasesPath is the directory holding every release.
func (s *Session) ReleasesPath() string {
	return path.Join(s.Config.DeployTo, "releases")
}

// Workspace is the local checkout of the current run.
func (s *Session) Workspace() string {
	return s.workspace
}

// ReleaseDirname is the release created or targeted by the current run.
func (s *Session) ReleaseDirname() string {
	return s.releaseDirname
}

// ReleasePath is the remote path of ReleaseDirname.
func (s *Session) ReleasePath() string {
	return s.releasePath
}

// PreviousRelease is the release that was current before the update.
func (s *Session) PreviousRelease() string {
	return s.previousRelease
}

// PreviousRevision is the REVISION of PreviousRelease.
func (s *Session) PreviousRevision() string {
	return s.previousRevision
}

// CurrentRevision is the commit uploaded by the update.
func (s *Session) CurrentRevision() string {
	return s.currentRevision
}

func (s *Session) ops() RemoteOps {
	if s.Ops != nil {
		return s.Ops
	}
	return &remoteOps{s: s}
}

func (s *Session) emit(ctx context.Context, t events.Type) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, &events.Event{
		Type:        t,
		Environment: s.Config.Environment,
		Release:     s.releaseDirname,
	})
}

func (s *Session) remote(ctx context.Context, cmd string) ([]*ssh.ExecResult, error) {
	return s.Remote.Run(ctx, cmd, ssh.RunOptions{})
}

func (s *Session) local(ctx context.Context, cmd, cwd string) (*ssh.ExecResult, error) {
	return s.Local.Run(ctx, cmd, ssh.LocalOptions{Cwd: cwd})
}
