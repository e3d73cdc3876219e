package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/shipit/internal/logging"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config <environment>",
		Short: "Print the resolved configuration",
		Long:  "Print the configuration of an environment after merging the default section, the environment section and SHIPIT_* variables.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), logging.Redact(string(data)))
			return err
		},
	}
}
