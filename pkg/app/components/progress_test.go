package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/services"
)

func TestNewProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(80)

	if tracker == nil {
		t.Fatal("Expected tracker to be created")
	}

	if tracker.width != 80 {
		t.Errorf("Expected width 80, got %d", tracker.width)
	}

	if tracker.Total() != 0 {
		t.Errorf("Expected 0 issues, got %d", tracker.Total())
	}
}

func TestUpdateKeepsLatestState(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.DownloadProgress{Comic: "c", Issue: "001", Status: data.StatePagesFetching})
	tracker.Update(services.DownloadProgress{Comic: "c", Issue: "001", Status: data.StatePagesFetching, Page: 1, Pages: 1})

	if tracker.Total() != 1 {
		t.Errorf("Expected 1 issue, got %d", tracker.Total())
	}
	if tracker.issues["001"].Pages != 1 {
		t.Errorf("Expected 1 page, got %d", tracker.issues["001"].Pages)
	}
	if !tracker.HasActive() {
		t.Error("Expected tracker to have active downloads")
	}

	tracker.Update(services.DownloadProgress{Comic: "c", Issue: "001", Status: data.StateDone, Pages: 1})

	if tracker.HasActive() {
		t.Error("Expected no active downloads after completion")
	}
	if tracker.Finished() != 1 {
		t.Errorf("Expected 1 finished issue, got %d", tracker.Finished())
	}
}

func TestUpdateKeepsOrder(t *testing.T) {
	tracker := NewProgressTracker(80)

	for _, name := range []string{"003", "001", "002", "001"} {
		tracker.Update(services.DownloadProgress{Issue: name, Status: data.StatePagesFetching})
	}

	want := []string{"003", "001", "002"}
	if strings.Join(tracker.order, ",") != strings.Join(want, ",") {
		t.Errorf("Expected order %v, got %v", want, tracker.order)
	}

	view := tracker.View()
	if strings.Index(view, "003") > strings.Index(view, "002") {
		t.Error("Expected issues to be rendered in arrival order")
	}
}

func TestViewEmpty(t *testing.T) {
	tracker := NewProgressTracker(80)

	if view := tracker.View(); view != "" {
		t.Errorf("Expected empty view, got: %s", view)
	}
}

func TestViewWithProgress(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.DownloadProgress{Issue: "005", Status: data.StatePagesFetching, Pages: 10})
	tracker.Update(services.DownloadProgress{Issue: "006", Status: data.StateAlreadyComplete})

	view := tracker.View()

	if !strings.Contains(view, "005") {
		t.Error("Expected issue name in view")
	}
	if !strings.Contains(view, "downloading") {
		t.Error("Expected status in view")
	}
	if !strings.Contains(view, "10 pages") {
		t.Error("Expected page count in view")
	}
	if !strings.Contains(view, "1/2") {
		t.Error("Expected overall progress in view")
	}
}

func TestProgressWithError(t *testing.T) {
	tracker := NewProgressTracker(80)

	tracker.Update(services.DownloadProgress{
		Issue:  "001",
		Status: data.StateFailed,
		Error:  errors.New("download failed"),
	})

	view := tracker.View()

	if !strings.Contains(view, "Error:") {
		t.Error("Expected error message in view")
	}
	if !strings.Contains(view, "download failed") {
		t.Error("Expected error details in view")
	}
}

func TestRenderProgressBar(t *testing.T) {
	bar := renderProgressBar(50, 100, 20)

	if strings.Count(bar, "█") != 10 {
		t.Errorf("Expected 10 filled chars, got %d", strings.Count(bar, "█"))
	}
	if strings.Count(bar, "░") != 10 {
		t.Errorf("Expected 10 empty chars, got %d", strings.Count(bar, "░"))
	}
}

func TestRenderProgressBarZeroTotal(t *testing.T) {
	if bar := renderProgressBar(0, 0, 20); bar != "" {
		t.Errorf("Expected empty string for zero total, got: %s", bar)
	}
	if bar := renderProgressBar(1, 2, 0); bar != "" {
		t.Errorf("Expected empty string for zero width, got: %s", bar)
	}
}

func TestRenderProgressBarFull(t *testing.T) {
	bar := renderProgressBar(100, 100, 20)

	if actual := strings.Count(bar, "█"); actual != 20 {
		t.Errorf("Expected 20 filled chars, got %d", actual)
	}
}
