package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/tui"
)

func newTUICmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive question answering and search",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), s, true)
			if err != nil {
				return err
			}
			defer a.Close()

			m := tui.New(cmd.Context(), a.svc, a.svc.TopK(), a.summary)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
