package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/comics/pkg/app/components"
	"github.com/kerbaras/comics/pkg/app/styles"
	"github.com/kerbaras/comics/pkg/services"
)

// downloadFinishedMsg is sent once the progress channel is closed.
type downloadFinishedMsg struct{}

// DownloadScreen follows one running download. It quits by itself when the
// download ends; q cancels the download first. Exactly one listen on the
// progress channel is pending at a time, re-issued only after an update.
type DownloadScreen struct {
	title           string
	progress        <-chan services.DownloadProgress
	cancel          func()
	spinner         spinner.Model
	progressTracker *components.ProgressTracker
	finished        bool
	cancelled       bool
	width           int
}

func NewDownloadScreen(title string, progress <-chan services.DownloadProgress, cancel func()) *DownloadScreen {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.StatusDownloading

	return &DownloadScreen{
		title:           title,
		progress:        progress,
		cancel:          cancel,
		spinner:         s,
		progressTracker: components.NewProgressTracker(80),
	}
}

func (s *DownloadScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.listenForProgress)
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.progressTracker.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !s.cancelled {
				s.cancelled = true
				s.cancel()
			}
			// the pending listen reports the end once in-flight issues stop
			return s, nil
		}

	case services.DownloadProgress:
		s.progressTracker.Update(msg)
		return s, s.listenForProgress

	case downloadFinishedMsg:
		s.finished = true
		return s, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

func (s *DownloadScreen) View() string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(fmt.Sprintf("📚 %s", s.title)))
	b.WriteString("\n")

	tracker := s.progressTracker.View()
	if tracker == "" {
		tracker = styles.MutedStyle.Render("Listing issues...")
	}
	b.WriteString(styles.CardStyle.Render(tracker))
	b.WriteString("\n")

	switch {
	case s.finished:
		b.WriteString(styles.StatusCompleted.Render("Done"))
	case s.cancelled:
		b.WriteString(s.spinner.View() + styles.StatusError.Render(" Cancelling..."))
	default:
		b.WriteString(s.spinner.View() + styles.SubtitleStyle.Render(" Downloading"))
	}
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("q: cancel"))
	return b.String() + "\n"
}

// Cancelled reports whether the user aborted the download.
func (s *DownloadScreen) Cancelled() bool {
	return s.cancelled
}

func (s *DownloadScreen) listenForProgress() tea.Msg {
	progress, ok := <-s.progress
	if !ok {
		return downloadFinishedMsg{}
	}
	return progress
}
