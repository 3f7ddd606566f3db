package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd prints a tournament config, validated.
func ConfigCmd() *cobra.Command {
	var flags configFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective tournament config as YAML",
		Args:  cobra.NoArgs,

		// No datadir or logging needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			fmt.Fprintf(cmd.OutOrStdout(), "# %d tables, %d chips in play\n", cfg.InitialTables(), cfg.TotalChips())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
