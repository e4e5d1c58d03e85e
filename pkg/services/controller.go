package services

import (
	"context"
	"fmt"

	"github.com/kerbaras/comics/pkg/config"
	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/sources"
	"github.com/kerbaras/comics/pkg/utils"
	"github.com/rs/zerolog"
)

// DownloadRequest carries the user's choices for one comic. Zero values fall
// back to the settings.
type DownloadRequest struct {
	URL         string
	OutputDir   string
	Format      string
	Threads     int
	SkipFirst   int
	SkipLast    int
	FailFast    bool
	StrictPages bool
}

// Controller wires settings, the HTTP client, the site registry, the
// downloader and the history store together.
type Controller struct {
	settings   config.Settings
	client     *utils.Client
	repo       *data.Repository
	downloader *Downloader
	resolve    func(string, *utils.Client, sources.Options) (sources.Source, error)
}

func NewController(settings config.Settings, logger zerolog.Logger) *Controller {
	client := utils.NewClient(settings.RequestTimeout, settings.UserAgent)
	downloader := NewDownloader(NewPageFetcher(client), logger)

	c := &Controller{
		settings:   settings,
		client:     client,
		downloader: downloader,
		resolve:    sources.Resolve,
	}

	if settings.HistoryEnabled() {
		repo, err := data.NewDuckDBRepository(settings.HistoryDB)
		if err != nil {
			// history is informational, downloads go on without it
			logger.Warn().Err(err).Str("path", settings.HistoryDB).Msg("history disabled")
		} else {
			c.repo = repo
			downloader.SetHistory(repo)
		}
	}
	return c
}

// Progress streams per-issue updates of the running download.
func (c *Controller) Progress() <-chan DownloadProgress {
	return c.downloader.GetProgressChannel()
}

// Prepare resolves the site strategy and builds the validated job.
func (c *Controller) Prepare(req DownloadRequest) (data.DownloadJob, sources.Source, error) {
	source, err := c.resolve(req.URL, c.client, sources.Options{MaxProbePages: c.settings.MaxProbePages})
	if err != nil {
		return data.DownloadJob{}, nil, err
	}

	name, err := source.ComicName(req.URL)
	if err != nil {
		return data.DownloadJob{}, nil, err
	}

	formatName := req.Format
	if formatName == "" {
		formatName = c.settings.Format
	}
	format, err := data.ParseOutputFormat(formatName)
	if err != nil {
		return data.DownloadJob{}, nil, err
	}

	job := data.DownloadJob{
		ComicURL:    req.URL,
		ComicName:   data.SanitizeName(name),
		OutputDir:   firstNonEmpty(req.OutputDir, c.settings.OutputDir, "."),
		Format:      format,
		SkipFirst:   req.SkipFirst,
		SkipLast:    req.SkipLast,
		Concurrency: req.Threads,
		FailFast:    req.FailFast,
		StrictPages: req.StrictPages,
	}
	if job.Concurrency == 0 {
		job.Concurrency = c.settings.Threads
	}
	if err := job.Validate(); err != nil {
		return data.DownloadJob{}, nil, err
	}
	return job, source, nil
}

// Download runs the whole request. The progress channel is closed when it
// returns.
func (c *Controller) Download(ctx context.Context, req DownloadRequest) (*Summary, error) {
	defer c.downloader.Close()

	job, source, err := c.Prepare(req)
	if err != nil {
		return nil, err
	}
	return c.downloader.Run(ctx, job, source)
}

// History lists recorded archives, newest first.
func (c *Controller) History(comic string) ([]*data.ArchiveRecord, error) {
	if c.repo == nil {
		return nil, fmt.Errorf("history is disabled")
	}
	return c.repo.ListArchives(comic)
}

func (c *Controller) Close() error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
