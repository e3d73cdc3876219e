package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// defaultSection holds values shared by every environment.
const defaultSection = "default"

// Loader handles deploy file loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load resolves env with precedence:
// defaults < default section < environment section < SHIPIT_* env vars
func (l *Loader) Load(env string) (*Config, error) {
	if err := l.read(); err != nil {
		return nil, err
	}
	if !l.v.IsSet(env) || env == defaultSection {
		return nil, &EnvironmentNotFoundError{Environment: env}
	}

	cfg := DefaultConfig()
	merged := viper.New()
	setDefaults(merged, cfg)

	gitConfig := map[string]string{}
	for _, section := range []string{defaultSection, env} {
		values, git := splitGitConfig(l.v.GetStringMap(section))
		if err := merged.MergeConfigMap(values); err != nil {
			return nil, fmt.Errorf("failed to merge %s section: %w", section, err)
		}
		for k, val := range git {
			gitConfig[k] = val
		}
	}
	bindEnvVars(merged)
	normalize(merged)

	if err := merged.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Environment = env
	if len(gitConfig) > 0 {
		cfg.GitConfig = gitConfig
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Environments lists the environment sections of the deploy file.
func (l *Loader) Environments() ([]string, error) {
	if err := l.read(); err != nil {
		return nil, err
	}
	var envs []string
	for key := range l.v.AllSettings() {
		if key != defaultSection {
			envs = append(envs, key)
		}
	}
	sort.Strings(envs)
	return envs, nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// read loads the deploy file once.
func (l *Loader) read() error {
	if l.v.ConfigFileUsed() != "" {
		return nil
	}

	v := l.v
	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("shipitfile")
		v.AddConfigPath(".")
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "shipit"))
		}
		if homeDir, _ := os.UserHomeDir(); homeDir != "" {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "shipit"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	return nil
}

// setDefaults sets all default values in Viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("branch", cfg.Branch)
	v.SetDefault("keepReleases", cfg.KeepReleases)
	v.SetDefault("shallowClone", cfg.ShallowClone)
	v.SetDefault("gitLogFormat", cfg.GitLogFormat)
	v.SetDefault("copy", cfg.Copy)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)
}

// envBindings maps config keys to SHIPIT_* variable suffixes.
var envBindings = map[string]string{
	"servers":          "SERVERS",
	"key":              "KEY",
	"strict":           "STRICT",
	"asUser":           "AS_USER",
	"verbosityLevel":   "VERBOSITY_LEVEL",
	"proxy":            "PROXY",
	"deployTo":         "DEPLOY_TO",
	"workspace":        "WORKSPACE",
	"repositoryUrl":    "REPOSITORY_URL",
	"branch":           "BRANCH",
	"keepReleases":     "KEEP_RELEASES",
	"shallowClone":     "SHALLOW_CLONE",
	"updateSubmodules": "UPDATE_SUBMODULES",
	"deleteOnRollback": "DELETE_ON_ROLLBACK",
	"dirToCopy":        "DIR_TO_COPY",
	"rsyncFrom":        "RSYNC_FROM",
	"logging.level":    "LOG_LEVEL",
	"logging.format":   "LOG_FORMAT",
}

// bindEnvVars binds SHIPIT_* environment variables.
func bindEnvVars(v *viper.Viper) {
	for key, suffix := range envBindings {
		_ = v.BindEnv(key, "SHIPIT_"+suffix)
	}
}

// normalize rewrites values the deploy file accepts in several shapes.
func normalize(v *viper.Viper) {
	// SHIPIT_SERVERS is a comma separated list. Host addresses never contain
	// commas, so a deploy file string is split the same way.
	if raw := v.Get("servers"); raw != nil {
		v.Set("servers", splitList(raw))
	}
	// rsync flags and ignore globs may contain commas (--chmod=Du=rwx,Dgo=rx,
	// {a,b}); a string is one entry.
	if raw := v.Get("ignores"); raw != nil {
		v.Set("ignores", stringList(raw))
	}
	if raw := v.Get("rsync"); raw != nil {
		v.Set("rsync", stringList(raw))
	}

	if strict, ok := v.Get("strict").(bool); ok {
		v.Set("strict", strconv.FormatBool(strict))
	}

	// copy: false disables the previous release copy, copy: true keeps cp -a.
	if cp, ok := v.Get("copy").(bool); ok {
		if cp {
			v.Set("copy", "-a")
		} else {
			v.Set("copy", "")
		}
	}
}

// splitGitConfig separates gitConfig from a section. Its keys contain dots,
// which Viper would otherwise read as nesting.
func splitGitConfig(section map[string]interface{}) (map[string]interface{}, map[string]string) {
	values := make(map[string]interface{}, len(section))
	var git map[string]string
	for key, value := range section {
		if !strings.EqualFold(key, "gitConfig") {
			values[key] = value
			continue
		}
		entries, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		git = make(map[string]string, len(entries))
		for k, v := range entries {
			git[k] = fmt.Sprint(v)
		}
	}
	return values, git
}

// stringList accepts a list or a single value, kept verbatim.
func stringList(raw interface{}) []string {
	switch value := raw.(type) {
	case []string:
		return value
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, item := range value {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if value == "" {
			return nil
		}
		return []string{value}
	default:
		return []string{fmt.Sprint(value)}
	}
}

// splitList accepts a list or a comma separated string.
func splitList(raw interface{}) []string {
	value, ok := raw.(string)
	if !ok {
		return stringList(raw)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all local path fields.
func expandPaths(cfg *Config) {
	cfg.Key = expandTilde(cfg.Key)
	cfg.Workspace = expandTilde(cfg.Workspace)
	cfg.RsyncFrom = expandTilde(cfg.RsyncFrom)
}

// LoadFromFile loads env from a specific file.
func LoadFromFile(path, env string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load(env)
}
