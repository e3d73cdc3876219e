package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/tOgg1/shipit/internal/events"
	"github.com/tOgg1/shipit/internal/ssh"
	"github.com/tOgg1/shipit/internal/task"
)

// Task names.
const (
	TaskDeploy         = "deploy"
	TaskInit           = "deploy:init"
	TaskFetch          = "deploy:fetch"
	TaskUpdate         = "deploy:update"
	TaskPublish        = "deploy:publish"
	TaskClean          = "deploy:clean"
	TaskFinish         = "deploy:finish"
	TaskRollback       = "rollback"
	TaskRollbackInit   = "rollback:init"
	TaskRollbackFinish = "rollback:finish"
	TaskPending        = "pending"
	TaskPendingLog     = "pending:log"
)

// releaseTimeLayout names release directories; lexical order is age order.
const releaseTimeLayout = "20060102150405"

var (
	ErrWorkspaceIsCwd     = errors.New("workspace should be a temporary directory")
	ErrNoCurrentRelease   = errors.New("cannot find current release dirname")
	ErrNoReleases         = errors.New("cannot read releases")
	ErrRollbackNotFound   = errors.New("cannot rollback, release not found")
	ErrNoReleaseToDelete  = errors.New("can't find release to delete")
	ErrNoReleaseToPublish = errors.New("no release to publish")
)

// Printed by the publish command when current is a real directory.
const symlinkNotMadeMarker = "could not make symlink"

// Register adds every deploy, rollback and pending task to r.
func Register(r *task.Runner, s *Session) {
	r.Add(TaskInit, nil, s.Init)
	r.Add(TaskFetch, nil, s.Fetch)
	r.Add(TaskUpdate, nil, s.Update)
	r.Add(TaskPublish, nil, s.Publish)
	r.Add(TaskClean, nil, s.Clean)
	r.Add(TaskFinish, nil, s.Finish)
	r.Add(TaskDeploy, []string{TaskInit, TaskFetch, TaskUpdate, TaskPublish, TaskClean, TaskFinish}, nil)

	r.Add(TaskRollbackInit, nil, s.RollbackInit)
	r.Add(TaskRollbackFinish, nil, s.RollbackFinish)
	r.Add(TaskRollback, []string{TaskRollbackInit, TaskPublish, TaskClean, TaskRollbackFinish}, nil)

	r.Add(TaskPendingLog, nil, s.PendingLog)
	r.Add(TaskPending, []string{TaskPendingLog}, nil)
}

// Init announces the start of a deploy.
func (s *Session) Init(ctx context.Context) error {
	s.emit(ctx, events.TypeDeploy)
	return nil
}

// Fetch prepares the local workspace and, when a repository is
// configured, fetches and checks out the configured branch into it.
func (s *Session) Fetch(ctx context.Context) error {
	if err := s.createWorkspace(); err != nil {
		return err
	}

	if s.Config.RepositoryURL == "" {
		s.log.Warn().Msg("Skip fetching repo. No repositoryUrl provided")
		s.emit(ctx, events.TypeFetched)
		return nil
	}

	steps := []func(context.Context) error{
		s.initRepository,
		s.setGitConfig,
		s.addRemote,
		s.fetchRepository,
		s.checkout,
		s.reset,
		s.merge,
		s.updateSubmodules,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	s.emit(ctx, events.TypeFetched)
	return nil
}

func (s *Session) createWorkspace() error {
	s.log.Info().Msg("Create workspace...")
	if s.Config.ShallowClone {
		dir, err := os.MkdirTemp("", "shipit-")
		if err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		if err := os.Chmod(dir, 0o755); err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		s.workspace = dir
	} else {
		s.workspace = s.Config.Workspace
		abs, err := filepath.Abs(s.workspace)
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
		if abs == cwd {
			return ErrWorkspaceIsCwd
		}
	}
	s.log.Info().Msgf("Workspace created: \"%s\"", s.workspace)
	return nil
}

func (s *Session) git(ctx context.Context, cmd string) (*ssh.ExecResult, error) {
	return s.local(ctx, cmd, s.workspace)
}

func (s *Session) initRepository(ctx context.Context) error {
	s.log.Info().Msgf("Initialize local repository in \"%s\"", s.workspace)
	_, err := s.git(ctx, "git init")
	return err
}

func (s *Session) setGitConfig(ctx context.Context) error {
	if len(s.Config.GitConfig) == 0 {
		return nil
	}
	s.log.Info().Msgf("Set custom git config options for \"%s\"", s.workspace)

	keys := make([]string, 0, len(s.Config.GitConfig))
	for k := range s.Config.GitConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// git locks .git/config for every write, so keys are set one at a time.
	for _, key := range keys {
		cmd := fmt.Sprintf("git config %s \"%s\"", key, s.Config.GitConfig[key])
		if _, err := s.git(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) addRemote(ctx context.Context) error {
	res, err := s.git(ctx, "git remote")
	if err != nil {
		return err
	}
	method := "add"
	if slices.Contains(strings.Fields(string(res.Stdout)), "shipit") {
		method = "set-url"
	}
	s.log.Info().Msgf("Update remote \"%s\" to local repository \"%s\"", s.Config.RepositoryURL, s.workspace)
	_, err = s.git(ctx, fmt.Sprintf("git remote %s shipit %s", method, s.Config.RepositoryURL))
	return err
}

func (s *Session) fetchRepository(ctx context.Context) error {
	fetch := "git fetch shipit --prune"
	depth := ""
	if s.Config.ShallowClone {
		depth = " --depth=1"
	}
	// Branches and tags are fetched separately.
	cmd := fmt.Sprintf("%s%s && %s \"refs/tags/*:refs/tags/*\"", fetch, depth, fetch)

	s.log.Info().Msgf("Fetching repository \"%s\"", s.Config.RepositoryURL)
	_, err := s.git(ctx, cmd)
	return err
}

func (s *Session) checkout(ctx context.Context) error {
	s.log.Info().Msgf("Checking out commit-ish \"%s\"", s.Config.Branch)
	_, err := s.git(ctx, "git checkout "+s.Config.Branch)
	return err
}

func (s *Session) reset(ctx context.Context) error {
	_, err := s.git(ctx, "git reset --hard HEAD")
	return err
}

func (s *Session) merge(ctx context.Context) error {
	res, err := s.git(ctx, "git branch --list "+s.Config.Branch)
	if err != nil {
		return err
	}
	if len(res.Stdout) == 0 {
		s.log.Info().Msg("No branch, no merge.")
		return nil
	}
	_, err = s.git(ctx, "git merge shipit/"+s.Config.Branch)
	return err
}

func (s *Session) updateSubmodules(ctx context.Context) error {
	if !s.Config.UpdateSubmodules {
		return nil
	}
	s.log.Info().Msg("Updating submodules.")
	_, err := s.git(ctx, "git submodule update --init --recursive")
	return err
}

// Update creates a new release directory on every server, seeds it from
// the previous release, uploads the workspace and writes its REVISION.
func (s *Session) Update(ctx context.Context) error {
	ops := s.ops()

	current, err := ops.GetCurrentRelease(ctx)
	if err != nil {
		return err
	}
	s.previousRelease = current
	s.previousRevision = ""
	if current != "" {
		s.log.Info().Msg("Previous release found.")
		rev, err := ops.GetRevision(ctx, current)
		if err != nil {
			return err
		}
		s.previousRevision = rev
	}

	s.releaseDirname = s.Now().UTC().Format(releaseTimeLayout)
	s.releasePath = path.Join(s.ReleasesPath(), s.releaseDirname)
	s.log.Info().Msgf("Create release path \"%s\"", s.releasePath)
	if _, err := s.remote(ctx, "mkdir -p "+s.releasePath); err != nil {
		return err
	}

	if s.previousRelease != "" && s.Config.Copy != "" {
		s.log.Info().Msgf("Copy previous release to \"%s\"", s.releasePath)
		cmd := fmt.Sprintf("cp %s %s/. %s", s.Config.Copy, path.Join(s.ReleasesPath(), s.previousRelease), s.releasePath)
		if _, err := s.remote(ctx, cmd); err != nil {
			return err
		}
	}

	if err := s.uploadRelease(ctx); err != nil {
		return err
	}

	if err := s.writeRevision(ctx); err != nil {
		return err
	}

	if s.Config.ShallowClone && s.workspace != "" {
		s.log.Info().Msgf("Removing workspace \"%s\"", s.workspace)
		if err := os.RemoveAll(s.workspace); err != nil {
			return fmt.Errorf("remove workspace: %w", err)
		}
	}

	s.emit(ctx, events.TypeUpdated)
	return nil
}

func (s *Session) uploadRelease(ctx context.Context) error {
	from := s.Config.RsyncFrom
	if from == "" {
		from = s.workspace
	}
	src, err := filepath.Abs(filepath.Join(from, s.Config.DirToCopy))
	if err != nil {
		return fmt.Errorf("resolve upload directory: %w", err)
	}

	opts := ssh.CopyOptions{Ignores: s.Config.Ignores, Rsync: s.Config.RsyncArgs()}
	s.log.Info().Str("strategy", s.Strategy.String()).Msg("Copy project to remote servers.")

	if s.Strategy == ssh.StrategyTarScp {
		_, err = s.Remote.ScpCopyToRemote(ctx, src, s.releasePath, opts)
	} else {
		_, err = s.Remote.CopyToRemote(ctx, src+"/", s.releasePath, opts)
	}
	return err
}

func (s *Session) writeRevision(ctx context.Context) error {
	res, err := s.git(ctx, "git rev-parse "+s.Config.Branch)
	if err != nil {
		return err
	}
	s.currentRevision = strings.TrimSpace(string(res.Stdout))
	file := path.Join(s.releasePath, "REVISION")
	_, err = s.remote(ctx, fmt.Sprintf("echo \"%s\" > %s", s.currentRevision, file))
	return err
}

// Publish points the current symlink at the selected release.
func (s *Session) Publish(ctx context.Context) error {
	if s.releaseDirname == "" {
		return ErrNoReleaseToPublish
	}
	s.log.Info().Msgf("Publishing release \"%s\"", s.releasePath)

	rel := path.Join("releases", s.releaseDirname)
	cmd := "cd " + s.Config.DeployTo + " && " +
		"if [ -d current ] && [ ! -L current ]; then " +
		"echo \"ERR: " + symlinkNotMadeMarker + "\"; " +
		"else " +
		"ln -nfs " + rel + " current_tmp && " +
		"mv -f current_tmp current; " +
		"fi"

	results, err := s.remote(ctx, cmd)
	if err != nil {
		return err
	}
	for _, res := range results {
		if strings.Contains(string(res.Stdout), symlinkNotMadeMarker) {
			s.log.Warn().Msgf("Symbolic link at remote not made, as something already exists at %s", s.CurrentPath())
			break
		}
	}

	s.emit(ctx, events.TypePublished)
	return nil
}

// Clean removes every release except the KeepReleases newest.
func (s *Session) Clean(ctx context.Context) error {
	s.log.Info().Msgf("Keeping \"%d\" last releases, cleaning others", s.Config.KeepReleases)
	releases := s.ReleasesPath()
	cmd := fmt.Sprintf("(ls -rd %s/*|head -n %d;ls -d %s/*)|sort|uniq -u|xargs rm -rf",
		releases, s.Config.KeepReleases, releases)
	if _, err := s.remote(ctx, cmd); err != nil {
		return err
	}
	s.emit(ctx, events.TypeCleaned)
	return nil
}

// Finish announces a completed deploy.
func (s *Session) Finish(ctx context.Context) error {
	s.emit(ctx, events.TypeDeployed)
	return nil
}

// RollbackInit selects the release preceding the current one.
func (s *Session) RollbackInit(ctx context.Context) error {
	ops := s.ops()

	current, err := ops.GetCurrentRelease(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return ErrNoCurrentRelease
	}
	s.log.Info().Msgf("Current release dirname : %s.", current)

	releases, err := ops.GetReleases(ctx)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		return ErrNoReleases
	}

	idx := slices.Index(releases, current)
	if idx < 0 || idx+1 >= len(releases) {
		return ErrRollbackNotFound
	}

	s.prevReleaseDirname = current
	s.prevReleasePath = path.Join(s.ReleasesPath(), current)
	s.releaseDirname = releases[idx+1]
	s.releasePath = path.Join(s.ReleasesPath(), s.releaseDirname)
	s.log.Info().Msgf("Will rollback to %s.", s.releaseDirname)

	s.emit(ctx, events.TypeRollback)
	return nil
}

// RollbackFinish deletes the abandoned release when DeleteOnRollback is set.
func (s *Session) RollbackFinish(ctx context.Context) error {
	if s.Config.DeleteOnRollback {
		if s.prevReleaseDirname == "" || s.prevReleasePath == "" {
			return ErrNoReleaseToDelete
		}
		if _, err := s.remote(ctx, "rm -rf "+s.prevReleasePath); err != nil {
			return err
		}
	}
	s.emit(ctx, events.TypeRollbacked)
	return nil
}

// PendingLog prints the commits that the next deploy would ship.
func (s *Session) PendingLog(ctx context.Context) error {
	commits, err := s.ops().GetPendingCommits(ctx)
	if err != nil {
		return err
	}
	if commits == "" {
		_, err = fmt.Fprint(s.Out, "\nNo pending commits.\n")
		return err
	}
	_, err = fmt.Fprintf(s.Out, "\nPending commits:\n%s\n", commits)
	return err
}
