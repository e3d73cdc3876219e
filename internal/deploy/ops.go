package deploy

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ErrNotSynced is returned when servers disagree on release state.
var ErrNotSynced = errors.New("remote servers are not synced")

// RemoteOps answers questions about the releases present on the servers.
type RemoteOps interface {
	// GetCurrentRelease returns the release the current symlink points
	// at, or "" when there is none.
	GetCurrentRelease(ctx context.Context) (string, error)

	// GetReleases lists release directory names, newest first.
	GetReleases(ctx context.Context) ([]string, error)

	// GetRevision reads the REVISION file of release on the first server.
	GetRevision(ctx context.Context, release string) (string, error)

	// GetPendingCommits returns the log of commits fetched into the
	// workspace but not yet deployed, or "" when there are none.
	GetPendingCommits(ctx context.Context) (string, error)
}

type remoteOps struct {
	s *Session
}

func (o *remoteOps) GetCurrentRelease(ctx context.Context) (string, error) {
	current := o.s.CurrentPath()
	results, err := o.s.remote(ctx, fmt.Sprintf("if [ -h %s ]; then readlink %s; fi", current, current))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	dirnames := make([]string, len(results))
	for i, res := range results {
		target := strings.TrimRight(string(res.Stdout), "\n")
		if target != "" {
			dirnames[i] = path.Base(target)
		}
	}
	for _, d := range dirnames[1:] {
		if d != dirnames[0] {
			return "", ErrNotSynced
		}
	}
	if dirnames[0] == "" {
		o.s.log.Info().Msg("No current release found.")
	}
	return dirnames[0], nil
}

func (o *remoteOps) GetReleases(ctx context.Context) ([]string, error) {
	results, err := o.s.remote(ctx, "ls -r1 "+o.s.ReleasesPath())
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	lists := make([][]string, len(results))
	for i, res := range results {
		lists[i] = splitLines(string(res.Stdout))
	}
	for _, l := range lists[1:] {
		if !slices.Equal(l, lists[0]) {
			return nil, ErrNotSynced
		}
	}
	return lists[0], nil
}

func (o *remoteOps) GetRevision(ctx context.Context, release string) (string, error) {
	file := path.Join(o.s.ReleasesPath(), release, "REVISION")
	results, err := o.s.remote(ctx, fmt.Sprintf("if [ -f %s ]; then cat %s 2>/dev/null; fi;", file, file))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return strings.TrimSpace(string(results[0].Stdout)), nil
}

func (o *remoteOps) GetPendingCommits(ctx context.Context) (string, error) {
	current, err := o.GetCurrentRelease(ctx)
	if err != nil || current == "" {
		return "", err
	}
	revision, err := o.GetRevision(ctx, current)
	if err != nil || revision == "" {
		return "", err
	}

	workspace := o.s.workspace
	if workspace == "" {
		workspace = o.s.Config.Workspace
	}

	res, err := o.s.local(ctx, "git remote", workspace)
	if err != nil {
		return "", err
	}
	remotes := strings.Fields(string(res.Stdout))
	if len(remotes) == 0 {
		return "", nil
	}

	cmd := fmt.Sprintf("git log --pretty=format:\"%s\" %s..%s/%s",
		o.s.Config.GitLogFormat, revision, remotes[0], o.s.Config.Branch)
	res, err = o.s.local(ctx, cmd, workspace)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

var _ RemoteOps = (*remoteOps)(nil)
