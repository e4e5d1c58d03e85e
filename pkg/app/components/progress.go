package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/comics/pkg/app/styles"
	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/services"
)

// ProgressTracker keeps the latest update of every issue seen so far, in the
// order the issues first reported.
type ProgressTracker struct {
	issues map[string]*services.DownloadProgress
	order  []string
	width  int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		issues: make(map[string]*services.DownloadProgress),
		width:  width,
	}
}

func (p *ProgressTracker) Update(progress services.DownloadProgress) {
	if _, ok := p.issues[progress.Issue]; !ok {
		p.order = append(p.order, progress.Issue)
	}
	prog := progress // Copy
	p.issues[progress.Issue] = &prog
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

// Finished counts issues in a terminal state.
func (p *ProgressTracker) Finished() int {
	n := 0
	for _, progress := range p.issues {
		if progress.Status.Terminal() {
			n++
		}
	}
	return n
}

func (p *ProgressTracker) Total() int {
	return len(p.order)
}

// HasActive reports whether an issue is still being worked on.
func (p *ProgressTracker) HasActive() bool {
	return p.Finished() < p.Total()
}

func (p *ProgressTracker) View() string {
	if len(p.order) == 0 {
		return ""
	}

	var b strings.Builder
	for _, name := range p.order {
		progress := p.issues[name]

		line := fmt.Sprintf("%-12s %s", name, styles.StatusStyle(progress.Status).Render(string(progress.Status)))
		if progress.Pages > 0 {
			line += styles.MutedStyle.Render(fmt.Sprintf(" %d pages", progress.Pages))
		}
		b.WriteString(styles.TextStyle.Render(line))
		b.WriteString("\n")

		if progress.Error != nil && progress.Status == data.StateFailed {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %s", progress.Error)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(renderProgressBar(p.Finished(), p.Total(), p.width-4))
	b.WriteString(fmt.Sprintf(" %d/%d", p.Finished(), p.Total()))
	return b.String()
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
