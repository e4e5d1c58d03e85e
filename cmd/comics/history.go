package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/comics/pkg/services"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [comic]",
	Short: "Show recorded downloads",
	Long:  "Display the archives recorded by past runs, newest first, optionally for one comic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var comic string
		if len(args) == 1 {
			comic = args[0]
		}

		controller := services.NewController(settings, logger)
		defer controller.Close()

		records, err := controller.History(comic)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("📚 Nothing recorded yet. Use 'comics download' to fetch a comic.")
			return nil
		}

		columns := []table.Column{
			{Title: "When", Width: 16},
			{Title: "Comic", Width: 24},
			{Title: "Issue", Width: 10},
			{Title: "State", Width: 18},
			{Title: "Pages", Width: 6},
			{Title: "Detail", Width: 40},
		}

		rows := []table.Row{}
		for _, r := range records {
			detail := r.Path
			if r.Error != "" {
				detail = r.Error
			}
			rows = append(rows, table.Row{
				r.RecordedAt.Local().Format("2006-01-02 15:04"),
				truncateString(r.Comic, 22),
				r.Issue,
				string(r.State),
				fmt.Sprintf("%d", r.Pages),
				truncateString(detail, 38),
			})
		}

		t := table.New(
			table.WithColumns(columns),
			table.WithRows(rows),
			table.WithFocused(false),
			table.WithHeight(len(rows)),
		)

		s := table.DefaultStyles()
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
		s.Selected = s.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(s)

		fmt.Printf("\n📚 History (%d archives)\n\n", len(records))
		fmt.Println(t.View())
		return nil
	},
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
