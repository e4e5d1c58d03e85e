package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/comics/pkg/app/screens"
	"github.com/kerbaras/comics/pkg/services"
)

type App struct {
	controller *services.Controller
}

func NewApp(controller *services.Controller) *App {
	return &App{controller: controller}
}

// Download runs the request while the progress screen follows it.
func (a *App) Download(ctx context.Context, title string, req services.DownloadRequest) (*services.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		summary *services.Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := a.controller.Download(ctx, req)
		done <- outcome{summary, err}
	}()

	model := screens.NewDownloadScreen(title, a.controller.Progress(), cancel)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		<-done
		return nil, err
	}

	result := <-done
	return result.summary, result.err
}
