package data

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Issue is one downloadable unit of a comic, packaged into one archive.
type Issue struct {
	Name string // filesystem-safe label, unique within a comic
	Link string // absolute URL of the issue reader
}

// Page is one resolved page image of an issue.
type Page struct {
	Number int
	URL    string
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Filename returns the staging filename of the page, e.g. "0007.jpg".
func (p Page) Filename() string {
	ext := ".jpg"
	if u, err := url.Parse(p.URL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); imageExtensions[e] {
			ext = e
		}
	}
	return fmt.Sprintf("%04d%s", p.Number, ext)
}

// OutputFormat selects the archive packager.
type OutputFormat string

const (
	FormatCBZ  OutputFormat = "cbz"
	FormatPDF  OutputFormat = "pdf"
	FormatEPUB OutputFormat = "epub"
)

// ParseOutputFormat validates a user supplied format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCBZ, FormatPDF, FormatEPUB:
		return f, nil
	case "":
		return FormatCBZ, nil
	default:
		return "", fmt.Errorf("unknown output format %q: %w", s, ErrParsing)
	}
}

// Extension returns the archive file extension without the dot.
func (f OutputFormat) Extension() string {
	return string(f)
}

// DownloadJob is the validated, read-only description of one run.
type DownloadJob struct {
	ComicURL    string
	ComicName   string
	OutputDir   string
	Format      OutputFormat
	SkipFirst   int
	SkipLast    int
	Concurrency int
	// FailFast stops admitting new issues once one has failed.
	FailFast bool
	// StrictPages fails an issue when any of its pages was dropped.
	StrictPages bool
}

// Validate checks the invariants the coordinator relies on.
func (j *DownloadJob) Validate() error {
	if j.ComicName == "" {
		return fmt.Errorf("comic name cannot be empty: %w", ErrParsing)
	}
	if _, err := ParseOutputFormat(string(j.Format)); err != nil {
		return err
	}
	if j.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", j.Concurrency)
	}
	if j.SkipFirst < 0 || j.SkipLast < 0 {
		return fmt.Errorf("skip counts cannot be negative")
	}
	return nil
}

// ComicDir is the comic-level output directory shared by all issues.
func (j *DownloadJob) ComicDir() string {
	return filepath.Join(j.OutputDir, j.ComicName)
}

// ArchivePath is where the packaged issue lands.
func (j *DownloadJob) ArchivePath(issue Issue) string {
	name := fmt.Sprintf("%s-%s.%s", j.ComicName, issue.Name, j.Format.Extension())
	return filepath.Join(j.ComicDir(), name)
}

// StagingDir is the per-issue directory holding fetched pages.
func (j *DownloadJob) StagingDir(issue Issue) string {
	return filepath.Join(j.ComicDir(), issue.Name)
}

// IssueState tracks an issue through the processor.
type IssueState string

const (
	StatePending         IssueState = "pending"
	StateStagingCreated  IssueState = "staging"
	StatePagesFetching   IssueState = "downloading"
	StatePackaged        IssueState = "packaged"
	StateDone            IssueState = "complete"
	StateAlreadyComplete IssueState = "already-downloaded"
	StateFailed          IssueState = "error"
)

// Terminal reports whether no further transition can happen.
func (s IssueState) Terminal() bool {
	return s == StateDone || s == StateAlreadyComplete || s == StateFailed
}

// IssueResult is the outcome of processing one issue.
type IssueResult struct {
	Issue       Issue
	State       IssueState
	Pages       int // pages written to the archive
	Dropped     int // pages that failed and were skipped
	ArchivePath string
	Err         error
}

// SanitizeName makes a label safe to use as a path component.
func SanitizeName(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	return result
}
