package cli

import (
	"context"
	"io"
	"os"

	"github.com/tOgg1/shipit/internal/config"
	"github.com/tOgg1/shipit/internal/deploy"
	"github.com/tOgg1/shipit/internal/events"
	"github.com/tOgg1/shipit/internal/logging"
	"github.com/tOgg1/shipit/internal/ssh"
	"github.com/tOgg1/shipit/internal/task"
)

// loadConfig resolves env from the deploy file and re-initializes logging
// from its logging section. Flags keep precedence.
func (o *globalOptions) loadConfig(env string) (*config.Config, error) {
	loader := config.NewLoader()
	if o.configFile != "" {
		loader.SetConfigFile(o.configFile)
	}
	cfg, err := loader.Load(env)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = firstNonEmpty(o.logLevel, cfg.Logging.Level, logCfg.Level)
	logCfg.Format = firstNonEmpty(o.logFormat, cfg.Logging.Format, logCfg.Format)
	logCfg.EnableCaller = cfg.Logging.EnableCaller
	logging.Init(logCfg)

	logger := logging.Component("config")
	logger.Debug().
		Str("file", loader.ConfigFileUsed()).
		Str("environment", env).
		Msg("deploy file loaded")
	return cfg, nil
}

// connectionOptions maps the ssh settings of cfg onto pool options.
func connectionOptions(cfg *config.Config, stdout, stderr io.Writer) ssh.Options {
	return ssh.Options{
		Key:            cfg.Key,
		Strict:         cfg.Strict,
		AsUser:         cfg.AsUser,
		VerbosityLevel: cfg.VerbosityLevel,
		Proxy:          cfg.Proxy,
		Stdout:         stdout,
		Stderr:         stderr,
	}
}

// newSession wires a pool, a local shell and a milestone publisher for cfg.
func newSession(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*deploy.Session, error) {
	pool, err := ssh.NewPoolFromRemotes(cfg.Servers, connectionOptions(cfg, stdout, stderr))
	if err != nil {
		return nil, err
	}
	local := &ssh.Local{Stdout: stdout, Stderr: stderr}

	s := deploy.NewSession(cfg, pool, local)
	s.Out = stdout
	s.Strategy = ssh.SelectStrategy(ctx, ssh.LookPathProbe{})

	pub := events.NewInMemoryPublisher()
	if err := pub.Subscribe("log", events.Filter{}, logMilestone); err != nil {
		return nil, err
	}
	s.Events = pub
	return s, nil
}

func logMilestone(e *events.Event) {
	logger := logging.Component("events")
	ev := logger.Debug().
		Str("event", string(e.Type)).
		Str("environment", e.Environment)
	if e.Release != "" {
		ev = ev.Str("release", e.Release)
	}
	ev.Msg("milestone")
}

// runTasks loads env and runs the named tasks against its servers.
func (o *globalOptions) runTasks(ctx context.Context, out io.Writer, env string, names ...string) error {
	cfg, err := o.loadConfig(env)
	if err != nil {
		return err
	}
	s, err := newSession(ctx, cfg, out, os.Stderr)
	if err != nil {
		return err
	}

	runner := task.NewRunner(task.NewConsoleObserver(out))
	deploy.Register(runner, s)
	return runner.Run(ctx, names...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
