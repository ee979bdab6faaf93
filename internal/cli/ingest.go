package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ingest and remove only make sense with a persistent vector store such
// as qdrant; with the memory store the corpus is gone when the command exits.

func newIngestCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file or glob>...",
		Short: "Ingest .txt and .md files into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), s, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.svc.IngestFiles(cmd.Context(), args)
			out := cmd.OutOrStdout()
			for _, f := range report.Files {
				line := fmt.Sprintf("%s  stored=%d", f.Path, f.Report.Stored)
				if f.Report.Failed > 0 {
					line += warnColor(fmt.Sprintf(" failed=%d %v", f.Report.Failed, f.Report.FailedOrdinals))
				}
				fmt.Fprintln(out, line)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %d chunks stored, %d failed\n", headerColor("Total:"), report.Stored(), report.Failed())
			if report.Summary != "" {
				fmt.Fprintf(out, "\n%s\n%s\n", headerColor("Summary:"), report.Summary)
			}
			return nil
		},
	}
}

func newRemoveCmd(s *settings) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "remove <file>... | --all",
		Short: "Remove the chunks of previously ingested files",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all takes no file arguments")
			}
			if !all && len(args) == 0 {
				return errors.New("requires at least 1 file or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), s, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				if err := a.svc.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "vector store cleared")
				return nil
			}
			for _, p := range args {
				n, err := a.svc.RemoveFile(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  removed=%d\n", p, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "drop every stored chunk")
	return cmd
}
