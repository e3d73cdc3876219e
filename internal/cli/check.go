package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tOgg1/shipit/internal/config"
	"github.com/tOgg1/shipit/internal/ssh"
)

// maxParallelChecks bounds concurrent connection checks.
const maxParallelChecks = 8

// ErrCheckFailed is returned when at least one server is unreachable.
var ErrCheckFailed = errors.New("check failed")

// checker verifies that an environment can be deployed to.
type checker struct {
	probe     ssh.CapabilityProbe
	checkKey  func(path string) (string, error)
	agentKeys func() (int, error)

	// executor replaces the shell for connection checks when set.
	executor ssh.Executor
}

func newChecker() *checker {
	var prompt ssh.PassphrasePrompt
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = ssh.TerminalPassphrasePrompt
	}
	return &checker{
		probe:     ssh.LookPathProbe{},
		checkKey:  func(path string) (string, error) { return ssh.CheckPrivateKey(path, prompt) },
		agentKeys: ssh.AgentKeyCount,
	}
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "check <environment>",
		Short: "Check servers, key and copy strategy",
		Long: "Validate the server list of an environment, parse the private key, report the copy strategy " +
			"and, with --connect, run a no-op command on every server.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(args[0])
			if err != nil {
				return err
			}
			return newChecker().run(cmd.Context(), cmd.OutOrStdout(), cfg, connect)
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "run a no-op command on every server")
	return cmd
}

type serverStatus struct {
	remote ssh.Remote
	err    error
	state  string
}

func (c *checker) run(ctx context.Context, out io.Writer, cfg *config.Config, connect bool) error {
	style := lipgloss.NewRenderer(out)
	okStyle := style.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle := style.NewStyle().Foreground(lipgloss.Color("1"))

	fmt.Fprintf(out, "Environment: %s\n", cfg.Environment)
	fmt.Fprintf(out, "Copy strategy: %s\n", ssh.SelectStrategy(ctx, c.probe))

	if cfg.Key != "" {
		fingerprint, err := c.checkKey(cfg.Key)
		if err != nil {
			return fmt.Errorf("key %s: %w", cfg.Key, err)
		}
		fmt.Fprintf(out, "Key: %s (%s)\n", cfg.Key, fingerprint)
	} else if n, err := c.agentKeys(); err != nil {
		fmt.Fprintf(out, "Agent: %s\n", failStyle.Render("unavailable"))
	} else {
		fmt.Fprintf(out, "Agent: %d keys\n", n)
	}
	fmt.Fprintln(out)

	statuses := make([]serverStatus, len(cfg.Servers))
	for i, server := range cfg.Servers {
		remote, err := ssh.ParseRemote(server)
		if err != nil {
			return err
		}
		statuses[i] = serverStatus{remote: remote, state: "parsed"}
	}

	if connect {
		connOpts := connectionOptions(cfg, nil, nil)
		connOpts.Executor = c.executor

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelChecks)
		for i := range statuses {
			st := &statuses[i]
			g.Go(func() error {
				conn, err := ssh.NewConnectionFromRemote(st.remote, connOpts)
				if err != nil {
					return err
				}
				// A failing host is reported in the table, not returned.
				if _, err := conn.Run(gctx, "true", ssh.RunOptions{}); err != nil {
					st.err = err
					st.state = "unreachable"
				} else {
					st.state = "ok"
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(statuses))
	failed := 0
	for _, st := range statuses {
		port := "-"
		if st.remote.Port > 0 {
			port = strconv.Itoa(st.remote.Port)
		}
		state := st.state
		switch {
		case st.err != nil:
			failed++
			state = failStyle.Render(state)
		case state == "ok":
			state = okStyle.Render(state)
		}
		rows = append(rows, []string{st.remote.Host, st.remote.User, port, state})
	}
	if err := writeTable(out, []string{"HOST", "USER", "PORT", "STATUS"}, rows); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d servers unreachable", ErrCheckFailed, failed, len(statuses))
	}
	return nil
}
