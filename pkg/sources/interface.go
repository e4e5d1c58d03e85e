package sources

import (
	"context"
	"iter"

	"github.com/kerbaras/comics/pkg/data"
)

// Source is the per-website strategy for listing issues and locating pages.
type Source interface {
	// Domain is the canonical host the source was registered under.
	Domain() string

	// ComicName derives the comic's name from its listing URL. The result is
	// used for the output directory and as the archive filename prefix.
	ComicName(comicURL string) (string, error)

	// ListIssues returns the comic's issues oldest first.
	ListIssues(ctx context.Context, comicURL string) ([]data.Issue, error)

	// LocatePageImage resolves the image URL of one page (1-based), or
	// returns data.ErrEndOfIssue once past the last page.
	LocatePageImage(ctx context.Context, issue data.Issue, page int) (string, error)

	// Pages lazily walks the issue's pages in order. A failing page is
	// yielded with its error and the walk goes on; an error yielded with
	// Page.Number == 0 concerns the whole issue and ends the walk.
	Pages(ctx context.Context, issue data.Issue) iter.Seq2[data.Page, error]
}
