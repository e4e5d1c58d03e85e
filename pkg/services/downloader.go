package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/integrations"
	"github.com/kerbaras/comics/pkg/sources"
	"github.com/rs/zerolog"
)

// ErrNotStarted marks issues that were never admitted because the run was
// aborted (fail-fast or cancellation).
var ErrNotStarted = errors.New("not started")

// DownloadProgress represents the progress of one issue
type DownloadProgress struct {
	Comic  string
	Issue  string
	Page   int // page just written, 0 for state changes
	Pages  int // pages written so far
	Status data.IssueState
	Error  error
}

// History records runs. The duckdb repository implements it.
type History interface {
	StartRun(comic, source string) (string, error)
	RecordIssue(runID, comic string, result data.IssueResult) error
	FinishRun(runID string, issues, failed int) error
}

// Downloader is the download coordinator: it lists a comic's issues, slices
// them and runs each through the issue processor on a bounded worker pool.
type Downloader struct {
	fetcher      Fetcher
	history      History
	logger       zerolog.Logger
	progressChan chan DownloadProgress

	mu     sync.Mutex
	closed bool
}

// NewDownloader creates a new Downloader instance
func NewDownloader(fetcher Fetcher, logger zerolog.Logger) *Downloader {
	return &Downloader{
		fetcher:      fetcher,
		logger:       logger,
		progressChan: make(chan DownloadProgress, 100),
	}
}

// SetHistory enables run recording.
func (d *Downloader) SetHistory(h History) {
	d.history = h
}

// GetProgressChannel returns the channel for receiving download progress updates
func (d *Downloader) GetProgressChannel() <-chan DownloadProgress {
	return d.progressChan
}

// SliceIssues drops skipFirst issues from the front and skipLast from the
// back. Out of range counts yield an empty slice, never an error.
func SliceIssues(issues []data.Issue, skipFirst, skipLast int) []data.Issue {
	total := len(issues)
	start := min(max(skipFirst, 0), total)
	end := total - min(max(skipLast, 0), total-start)
	return issues[start:end]
}

// Run downloads every selected issue of the job. Listing errors are fatal;
// issue failures are collected in the summary.
func (d *Downloader) Run(ctx context.Context, job data.DownloadJob, source sources.Source) (*Summary, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	packager, err := integrations.NewPackager(job.Format)
	if err != nil {
		return nil, err
	}

	log := d.logger.With().Str("comic", job.ComicName).Str("source", source.Domain()).Logger()

	issues, err := source.ListIssues(ctx, job.ComicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	selected := SliceIssues(issues, job.SkipFirst, job.SkipLast)
	log.Info().Int("issues", len(issues)).Int("selected", len(selected)).Int("threads", job.Concurrency).Msg("starting download")

	if err := os.MkdirAll(job.ComicDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w: %w", data.ErrFileSystem, err)
	}

	processor := NewIssueProcessor(d.fetcher, packager, d.logger)
	processor.progress = d.sendProgress

	results := make([]data.IssueResult, len(selected))
	for i, issue := range selected {
		results[i] = data.IssueResult{Issue: issue, State: data.StatePending, ArchivePath: job.ArchivePath(issue)}
	}

	var (
		wg        sync.WaitGroup
		failed    atomic.Bool
		semaphore = make(chan struct{}, job.Concurrency)
	)

dispatch:
	for i, issue := range selected {
		// admission happens here, in listing order
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		if job.FailFast && failed.Load() {
			<-semaphore
			log.Warn().Str("issue", issue.Name).Msg("aborting after earlier failure")
			break
		}

		wg.Add(1)
		go func(i int, issue data.Issue) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := processor.Process(ctx, &job, source, issue)
			results[i] = result
			if result.State == data.StateFailed {
				failed.Store(true)
			}
		}(i, issue)
	}
	wg.Wait()

	for i := range results {
		if results[i].State == data.StatePending {
			results[i].State = data.StateFailed
			results[i].Err = ErrNotStarted
		}
	}

	summary := &Summary{Comic: job.ComicName, Results: results}
	d.record(log, source, summary)
	log.Info().
		Int("done", summary.Count(data.StateDone)).
		Int("skipped", summary.Count(data.StateAlreadyComplete)).
		Int("failed", summary.Failed()).
		Msg("download finished")
	return summary, nil
}

func (d *Downloader) record(log zerolog.Logger, source sources.Source, summary *Summary) {
	if d.history == nil {
		return
	}
	runID, err := d.history.StartRun(summary.Comic, source.Domain())
	if err != nil {
		log.Warn().Err(err).Msg("history unavailable")
		return
	}
	summary.RunID = runID
	for _, result := range summary.Results {
		if err := d.history.RecordIssue(runID, summary.Comic, result); err != nil {
			log.Warn().Err(err).Str("issue", result.Issue.Name).Msg("failed to record issue")
		}
	}
	if err := d.history.FinishRun(runID, len(summary.Results), summary.Failed()); err != nil {
		log.Warn().Err(err).Msg("failed to finish run")
	}
}

// sendProgress sends a progress update (non-blocking). Updates after Close
// are dropped.
func (d *Downloader) sendProgress(progress DownloadProgress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}

// Close closes the progress channel. A later Run still works but reports no
// progress.
func (d *Downloader) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.progressChan)
	}
}

// Summary collects the per-issue outcome of a run in listing order.
type Summary struct {
	Comic   string
	RunID   string
	Results []data.IssueResult
}

// Count returns how many issues ended in state.
func (s *Summary) Count(state data.IssueState) int {
	n := 0
	for _, r := range s.Results {
		if r.State == state {
			n++
		}
	}
	return n
}

// Failed returns how many issues failed or were never started.
func (s *Summary) Failed() int {
	return s.Count(data.StateFailed)
}

// Err joins the errors of every failed issue, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("issue %s: %w", r.Issue.Name, r.Err))
		}
	}
	return errors.Join(errs...)
}
