package cli

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

func newConfigCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after defaults and flag or DOCQA_* environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := s.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n\n", path)
			_, err = pp.Fprintln(out, cfg)
			return err
		},
	}
}
