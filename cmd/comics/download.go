package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/kerbaras/comics/pkg/app"
	"github.com/kerbaras/comics/pkg/app/styles"
	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/services"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download [comic-url]",
	Short: "Download every issue of a comic",
	Long:  "Download the issues of a comic from a supported site, one archive per issue. Archives that already exist are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := services.DownloadRequest{URL: args[0]}
		req.Threads, _ = cmd.Flags().GetInt("threads")
		req.OutputDir, _ = cmd.Flags().GetString("output")
		req.Format, _ = cmd.Flags().GetString("format")
		req.SkipFirst, _ = cmd.Flags().GetInt("skip-first")
		req.SkipLast, _ = cmd.Flags().GetInt("skip-last")
		req.FailFast, _ = cmd.Flags().GetBool("fail-fast")
		req.StrictPages, _ = cmd.Flags().GetBool("strict-pages")
		useTUI, _ := cmd.Flags().GetBool("tui")

		if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
			disabled := false
			settings.History = &disabled
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var (
			summary *services.Summary
			err     error
		)
		if useTUI {
			// the screen owns the terminal, logs go to a file
			logFile, logErr := openLogFile()
			if logErr != nil {
				return logErr
			}
			defer logFile.Close()
			logger = newLogger(logFile)

			controller := services.NewController(settings, logger)
			defer controller.Close()
			summary, err = app.NewApp(controller).Download(ctx, args[0], req)
		} else {
			controller := services.NewController(settings, logger)
			defer controller.Close()
			summary, err = controller.Download(ctx, req)
		}
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		printSummary(summary)
		if failed := summary.Failed(); failed > 0 {
			return fmt.Errorf("%d of %d issues failed", failed, len(summary.Results))
		}
		return nil
	},
}

func init() {
	downloadCmd.Flags().IntP("threads", "j", 0, "Issues downloaded in parallel (default from config, 1)")
	downloadCmd.Flags().StringP("output", "o", "", "Output directory (default from config, current directory)")
	downloadCmd.Flags().StringP("format", "f", "", "Archive format: cbz, pdf or epub")
	downloadCmd.Flags().Int("skip-first", 0, "Skip the first N issues")
	downloadCmd.Flags().Int("skip-last", 0, "Skip the last N issues")
	downloadCmd.Flags().Bool("fail-fast", false, "Stop starting new issues after the first failure")
	downloadCmd.Flags().Bool("strict-pages", false, "Fail an issue when any of its pages is missing")
	downloadCmd.Flags().Bool("tui", false, "Follow the download in an interactive view")
	downloadCmd.Flags().Bool("no-history", false, "Do not record this run")
}

func openLogFile() (*os.File, error) {
	dir := filepath.Dir(settings.HistoryDB)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "comics.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

func printSummary(summary *services.Summary) {
	if len(summary.Results) == 0 {
		fmt.Println("No issues selected.")
		return
	}

	var (
		headerStyle = lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true).Align(lipgloss.Center)
		cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	)

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && row < len(summary.Results):
				return styles.StatusStyle(summary.Results[row].State).Padding(0, 1)
			default:
				return cellStyle
			}
		}).
		Headers("Issue", "State", "Pages", "Dropped", "Archive")

	for _, r := range summary.Results {
		detail := r.ArchivePath
		if r.Err != nil {
			detail = truncateString(r.Err.Error(), 60)
		}
		t.Row(r.Issue.Name, string(r.State), fmt.Sprintf("%d", r.Pages), fmt.Sprintf("%d", r.Dropped), detail)
	}

	fmt.Println(t)
	fmt.Printf("%s: %d downloaded, %d already present, %d failed\n",
		summary.Comic,
		summary.Count(data.StateDone),
		summary.Count(data.StateAlreadyComplete),
		summary.Failed())
}
