// Package config loads shipit deploy files.
package config

import "fmt"

// Config is the resolved configuration of one deploy environment.
type Config struct {
	// Environment is the name of the selected section.
	Environment string `yaml:"environment" mapstructure:"-"`

	// Servers are "[user@]host[:port]" remotes.
	Servers []string `yaml:"servers" mapstructure:"servers"`

	// Key is the private key passed to ssh and scp.
	Key string `yaml:"key,omitempty" mapstructure:"key"`

	// Strict is the StrictHostKeyChecking value.
	Strict string `yaml:"strict,omitempty" mapstructure:"strict"`

	// AsUser runs remote commands through sudo -u.
	AsUser string `yaml:"asUser,omitempty" mapstructure:"asUser"`

	VerbosityLevel int `yaml:"verbosityLevel,omitempty" mapstructure:"verbosityLevel"`

	// Proxy is an ssh ProxyCommand.
	Proxy string `yaml:"proxy,omitempty" mapstructure:"proxy"`

	// DeployTo is the remote application root holding releases/ and current.
	DeployTo string `yaml:"deployTo" mapstructure:"deployTo"`

	// Workspace is the local checkout used when ShallowClone is off.
	Workspace string `yaml:"workspace,omitempty" mapstructure:"workspace"`

	RepositoryURL    string `yaml:"repositoryUrl,omitempty" mapstructure:"repositoryUrl"`
	Branch           string `yaml:"branch" mapstructure:"branch"`
	KeepReleases     int    `yaml:"keepReleases" mapstructure:"keepReleases"`
	ShallowClone     bool   `yaml:"shallowClone" mapstructure:"shallowClone"`
	UpdateSubmodules bool   `yaml:"updateSubmodules" mapstructure:"updateSubmodules"`
	DeleteOnRollback bool   `yaml:"deleteOnRollback" mapstructure:"deleteOnRollback"`

	// GitConfig entries are written with "git config" before fetching.
	GitConfig map[string]string `yaml:"gitConfig,omitempty" mapstructure:"-"`

	// GitLogFormat is the --pretty format of pending commits.
	GitLogFormat string `yaml:"gitLogFormat" mapstructure:"gitLogFormat"`

	// DirToCopy is the directory, relative to the workspace, sent to servers.
	DirToCopy string `yaml:"dirToCopy,omitempty" mapstructure:"dirToCopy"`

	// RsyncFrom replaces the workspace as the copy source.
	RsyncFrom string `yaml:"rsyncFrom,omitempty" mapstructure:"rsyncFrom"`

	Ignores []string `yaml:"ignores,omitempty" mapstructure:"ignores"`

	// Rsync holds extra rsync flags; "--del" when unset.
	Rsync []string `yaml:"rsync,omitempty" mapstructure:"rsync"`

	// Copy holds the cp flags used to seed a release from the previous
	// one. Empty disables the copy.
	Copy string `yaml:"copy" mapstructure:"copy"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// EnvironmentNotFoundError names the missing environment.
type EnvironmentNotFoundError struct {
	Environment string
}

func (e *EnvironmentNotFoundError) Error() string {
	return fmt.Sprintf("Environment \"%s\" not found in config", e.Environment)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Branch:       "master",
		KeepReleases: 5,
		ShallowClone: true,
		GitLogFormat: "%h: %s - %an",
		Copy:         "-a",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks if the configuration is usable for a deploy.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("servers must list at least one remote")
	}
	for i, server := range c.Servers {
		if server == "" {
			return fmt.Errorf("servers[%d] is empty", i)
		}
	}
	if c.DeployTo == "" {
		return fmt.Errorf("deployTo is required")
	}
	if c.KeepReleases < 1 {
		return fmt.Errorf("keepReleases must be at least 1")
	}
	if c.VerbosityLevel < 0 {
		return fmt.Errorf("verbosityLevel must not be negative")
	}
	return nil
}

// RsyncArgs returns the extra rsync flags for the release copy.
func (c *Config) RsyncArgs() []string {
	if len(c.Rsync) == 0 {
		return []string{"--del"}
	}
	return c.Rsync
}
