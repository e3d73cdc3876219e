package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleShipitfile = `
default:
  workspace: /tmp/workspace
  deployTo: /var/apps/app
  repositoryUrl: https://github.com/user/app.git
  ignores: [".git", "node_modules"]
  keepReleases: 2
  shallowClone: true
  gitConfig:
    user.name: Deploy Bot
    core.autocrlf: false
staging:
  servers: deploy@staging.example.com
  strict: false
production:
  servers:
    - deploy@web1.example.com
    - deploy@web2.example.com:2222
  branch: release
  rsync: "--delete-after"
  copy: false
  logging:
    level: debug
`

func writeShipitfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shipitfile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMergesDefaultSection(t *testing.T) {
	path := writeShipitfile(t, sampleShipitfile)

	cfg, err := LoadFromFile(path, "production")
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, []string{"deploy@web1.example.com", "deploy@web2.example.com:2222"}, cfg.Servers)
	require.Equal(t, "/var/apps/app", cfg.DeployTo)
	require.Equal(t, "/tmp/workspace", cfg.Workspace)
	require.Equal(t, "release", cfg.Branch)
	require.Equal(t, 2, cfg.KeepReleases)
	require.True(t, cfg.ShallowClone)
	require.Equal(t, []string{".git", "node_modules"}, cfg.Ignores)
	require.Equal(t, []string{"--delete-after"}, cfg.Rsync)
	require.Equal(t, []string{"--delete-after"}, cfg.RsyncArgs())
	require.Empty(t, cfg.Copy)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Format)
	require.Equal(t, map[string]string{"user.name": "Deploy Bot", "core.autocrlf": "false"}, cfg.GitConfig)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeShipitfile(t, sampleShipitfile)

	cfg, err := LoadFromFile(path, "staging")
	require.NoError(t, err)

	require.Equal(t, []string{"deploy@staging.example.com"}, cfg.Servers)
	require.Equal(t, "master", cfg.Branch)
	require.Equal(t, "-a", cfg.Copy)
	require.Equal(t, "%h: %s - %an", cfg.GitLogFormat)
	require.Equal(t, "false", cfg.Strict)
	require.Equal(t, []string{"--del"}, cfg.RsyncArgs())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeShipitfile(t, sampleShipitfile)
	t.Setenv("SHIPIT_BRANCH", "hotfix")
	t.Setenv("SHIPIT_SERVERS", "a@one, b@two")

	cfg, err := LoadFromFile(path, "staging")
	require.NoError(t, err)
	require.Equal(t, "hotfix", cfg.Branch)
	require.Equal(t, []string{"a@one", "b@two"}, cfg.Servers)
}

func TestLoadKeepsCommasInRsyncAndIgnores(t *testing.T) {
	path := writeShipitfile(t, `
staging:
  servers: deploy@web1.example.com, deploy@web2.example.com
  deployTo: /srv/app
  rsync: "--chmod=Du=rwx,Dgo=rx,Fu=rw,Fgo=r"
  ignores: "*.{log,tmp}"
production:
  servers: [deploy@web1.example.com]
  deployTo: /srv/app
  rsync: ["--chmod=Du=rwx,Dgo=rx", "--delete-after"]
`)

	cfg, err := LoadFromFile(path, "staging")
	require.NoError(t, err)
	require.Equal(t, []string{"--chmod=Du=rwx,Dgo=rx,Fu=rw,Fgo=r"}, cfg.RsyncArgs())
	require.Equal(t, []string{"*.{log,tmp}"}, cfg.Ignores)
	require.Equal(t, []string{"deploy@web1.example.com", "deploy@web2.example.com"}, cfg.Servers)

	cfg, err = LoadFromFile(path, "production")
	require.NoError(t, err)
	require.Equal(t, []string{"--chmod=Du=rwx,Dgo=rx", "--delete-after"}, cfg.RsyncArgs())
}

func TestLoadUnknownEnvironment(t *testing.T) {
	path := writeShipitfile(t, sampleShipitfile)

	_, err := LoadFromFile(path, "qa")
	var notFound *EnvironmentNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.EqualError(t, err, `Environment "qa" not found in config`)

	_, err = LoadFromFile(path, "default")
	require.True(t, errors.As(err, &notFound))
}

func TestLoadValidates(t *testing.T) {
	path := writeShipitfile(t, "default:\n  deployTo: /srv/app\nstaging:\n  branch: main\n")

	_, err := LoadFromFile(path, "staging")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "servers"), err.Error())
}

func TestLoadExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeShipitfile(t, "staging:\n  servers: [u@h]\n  deployTo: /srv\n  key: ~/.ssh/deploy\n")

	cfg, err := LoadFromFile(path, "staging")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".ssh", "deploy"), cfg.Key)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"), "staging")
	require.Error(t, err)
}

func TestEnvironments(t *testing.T) {
	loader := NewLoader()
	loader.SetConfigFile(writeShipitfile(t, sampleShipitfile))

	envs, err := loader.Environments()
	require.NoError(t, err)
	require.Equal(t, []string{"production", "staging"}, envs)
	require.NotEmpty(t, loader.ConfigFileUsed())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate())

	cfg.Servers = []string{"u@h"}
	require.Error(t, cfg.Validate())

	cfg.DeployTo = "/srv"
	require.NoError(t, cfg.Validate())

	cfg.KeepReleases = 0
	require.Error(t, cfg.Validate())
}
