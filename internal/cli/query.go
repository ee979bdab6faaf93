package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	scoreColor  = color.New(color.FgGreen).SprintFunc()
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
)

func newAskCmd(s *settings) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			a, err := newApp(cmd.Context(), s, true)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, sources, err := a.svc.Answer(cmd.Context(), question, a.svc.TopK())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.TrimSpace(answer))
			if showSources {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerColor("Sources:"))
				printResults(out, sources)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the chunks used as context")
	return cmd
}

func newSearchCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "List the chunks most similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query is required")
			}
			a, err := newApp(cmd.Context(), s, true)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Retrieve(cmd.Context(), query, a.svc.TopK())
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func newChatCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message straight to the chat model, without retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), s, false)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.svc.Chat(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func printResults(out io.Writer, res []domain.SearchResult) {
	if len(res) == 0 {
		fmt.Fprintln(out, warnColor("No results."))
		return
	}
	for i, r := range res {
		fmt.Fprintf(out, "%d. [%s] %s#%d  %s\n", i+1, scoreColor(fmt.Sprintf("%.3f", r.Score)), r.Chunk.DocumentID, r.Chunk.Ordinal, r.Chunk.Text)
	}
}
