package cli

import (
	"github.com/spf13/cobra"

	"github.com/tOgg1/shipit/internal/deploy"
)

func newDeployCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <environment>",
		Short: "Deploy a new release",
		Long:  "Fetch the repository, upload a new release to every server, publish it and clean old releases.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runTasks(cmd.Context(), cmd.OutOrStdout(), args[0], deploy.TaskDeploy)
		},
	}
}

func newRollbackCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <environment>",
		Short: "Roll back to the previous release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runTasks(cmd.Context(), cmd.OutOrStdout(), args[0], deploy.TaskRollback)
		},
	}
}

func newPendingCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending <environment>",
		Short: "List commits not yet deployed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runTasks(cmd.Context(), cmd.OutOrStdout(), args[0], deploy.TaskPending)
		},
	}
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <environment> <task>...",
		Short: "Run named tasks",
		Long:  "Run one or more tasks, such as deploy:fetch or rollback:init, with their dependencies.",
		Example: "  shipit run staging deploy:update deploy:publish\n" +
			"  shipit run production pending:log",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runTasks(cmd.Context(), cmd.OutOrStdout(), args[0], args[1:]...)
		},
	}
}
