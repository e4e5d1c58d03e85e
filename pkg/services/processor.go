package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/integrations"
	"github.com/kerbaras/comics/pkg/sources"
	"github.com/rs/zerolog"
)

// ErrNoPages is returned when an issue ends up with nothing to package.
var ErrNoPages = errors.New("no pages downloaded")

// IssueProcessor takes one issue from listing entry to packaged archive. It
// holds no per-issue state and is shared by all workers of a run.
type IssueProcessor struct {
	fetcher  Fetcher
	packager integrations.Packager
	logger   zerolog.Logger
	progress func(DownloadProgress)
}

func NewIssueProcessor(fetcher Fetcher, packager integrations.Packager, logger zerolog.Logger) *IssueProcessor {
	return &IssueProcessor{
		fetcher:  fetcher,
		packager: packager,
		logger:   logger,
		progress: func(DownloadProgress) {},
	}
}

// Process runs the issue through staging, page fetching and packaging. An
// existing archive short-circuits everything, including network access.
func (p *IssueProcessor) Process(ctx context.Context, job *data.DownloadJob, source sources.Source, issue data.Issue) data.IssueResult {
	result := data.IssueResult{
		Issue:       issue,
		State:       data.StatePending,
		ArchivePath: job.ArchivePath(issue),
	}
	log := p.logger.With().Str("comic", job.ComicName).Str("issue", issue.Name).Logger()

	if _, err := os.Stat(result.ArchivePath); err == nil {
		result.State = data.StateAlreadyComplete
		log.Info().Msg("already downloaded")
		p.emit(job, &result, 0)
		return result
	}

	staging := job.StagingDir(issue)
	if err := createStagingDir(staging); err != nil {
		return p.fail(job, &result, log, err)
	}
	result.State = data.StateStagingCreated
	log.Debug().Str("staging", staging).Msg("staging created")
	p.emit(job, &result, 0)

	result.State = data.StatePagesFetching
	log.Info().Msg("downloading")
	p.emit(job, &result, 0)

	for page, err := range source.Pages(ctx, issue) {
		if err != nil {
			if page.Number == 0 {
				return p.fail(job, &result, log, err)
			}
			result.Dropped++
			log.Warn().Err(err).Int("page", page.Number).Msg("page skipped")
			continue
		}

		dest := filepath.Join(staging, page.Filename())
		if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
			log.Debug().Int("page", page.Number).Msg("page already staged")
		} else if err := p.fetcher.Fetch(ctx, page.URL, dest); err != nil {
			result.Dropped++
			log.Warn().Err(err).Int("page", page.Number).Str("url", page.URL).Msg("page skipped")
			continue
		}

		result.Pages++
		log.Debug().Int("page", page.Number).Msg("page downloaded")
		p.emit(job, &result, page.Number)
	}

	if err := ctx.Err(); err != nil {
		return p.fail(job, &result, log, err)
	}
	if result.Pages == 0 {
		return p.fail(job, &result, log, ErrNoPages)
	}
	if job.StrictPages && result.Dropped > 0 {
		return p.fail(job, &result, log, fmt.Errorf("%d pages missing", result.Dropped))
	}

	meta := integrations.Metadata{Comic: job.ComicName, Issue: issue.Name}
	if err := p.packager.Package(staging, result.ArchivePath, meta); err != nil {
		// staging is kept so the pages are not lost
		return p.fail(job, &result, log, fmt.Errorf("packaging failed: %w", err))
	}
	result.State = data.StatePackaged

	if err := os.RemoveAll(staging); err != nil {
		return p.fail(job, &result, log, fmt.Errorf("failed to remove staging directory: %w: %w", data.ErrFileSystem, err))
	}

	result.State = data.StateDone
	log.Info().Int("pages", result.Pages).Int("dropped", result.Dropped).Str("archive", result.ArchivePath).Msg("issue complete")
	p.emit(job, &result, 0)
	return result
}

func (p *IssueProcessor) fail(job *data.DownloadJob, result *data.IssueResult, log zerolog.Logger, err error) data.IssueResult {
	result.State = data.StateFailed
	result.Err = err
	log.Error().Err(err).Msg("issue failed")
	p.emit(job, result, 0)
	return *result
}

func (p *IssueProcessor) emit(job *data.DownloadJob, result *data.IssueResult, page int) {
	p.progress(DownloadProgress{
		Comic:  job.ComicName,
		Issue:  result.Issue.Name,
		Page:   page,
		Pages:  result.Pages,
		Status: result.State,
		Error:  result.Err,
	})
}

// createStagingDir tolerates a directory left over by an earlier run.
func createStagingDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return fmt.Errorf("failed to create staging directory: %w: %w", data.ErrFileSystem, err)
	}
	return nil
}
