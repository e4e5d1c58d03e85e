package sources

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kerbaras/comics/pkg/data"
)

const (
	// DefaultMaxProbePages caps page probing on sites without a page count.
	DefaultMaxProbePages = 500
	// DefaultMaxListingPages caps paginated issue listings.
	DefaultMaxListingPages = 200
)

type locateFunc func(ctx context.Context, page int) (string, error)

// boundedPages walks every page 1..total. A page that cannot be located is
// yielded with its error and the walk continues; an early end of issue counts
// as a missing page.
func boundedPages(ctx context.Context, total int, locate locateFunc) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		for n := 1; n <= total; n++ {
			if err := ctx.Err(); err != nil {
				yield(data.Page{}, err)
				return
			}
			imageURL, err := locate(ctx, n)
			if errors.Is(err, data.ErrEndOfIssue) {
				err = fmt.Errorf("page %d of %d missing: %w", n, total, data.ErrNotFound)
			}
			if !yield(data.Page{Number: n, URL: imageURL}, err) {
				return
			}
		}
	}
}

// probePages walks pages one at a time until the first miss. The walk never
// exceeds limit pages.
func probePages(ctx context.Context, limit int, locate locateFunc) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		for n := 1; n <= limit; n++ {
			if err := ctx.Err(); err != nil {
				yield(data.Page{}, err)
				return
			}
			imageURL, err := locate(ctx, n)
			if errors.Is(err, data.ErrEndOfIssue) {
				return
			}
			if err != nil {
				yield(data.Page{Number: n}, err)
				return
			}
			if !yield(data.Page{Number: n, URL: imageURL}, nil) {
				return
			}
		}
	}
}

var issueNumberPattern = regexp.MustCompile(`^(\d+)(\.\d+)?$`)

// padIssueNumber zero-pads numeric labels so archives sort naturally:
// "7" -> "007", "12.5" -> "012.5". Other labels are only sanitized.
func padIssueNumber(label string) string {
	label = strings.TrimSpace(label)
	m := issueNumberPattern.FindStringSubmatch(label)
	if m == nil {
		return data.SanitizeName(label)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return data.SanitizeName(label)
	}
	return fmt.Sprintf("%03d%s", n, m[2])
}

// resolveURL resolves href against base, returning "" when either is invalid.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// pageURL appends the 1-based page number to an issue reader URL.
func pageURL(issueLink string, page int) string {
	return strings.TrimRight(issueLink, "/") + "/" + strconv.Itoa(page)
}

// stripComicPrefix removes a site's fixed URL prefix and any trailing slash.
func stripComicPrefix(comicURL string, prefixes ...string) (string, error) {
	comicURL = strings.TrimSpace(comicURL)
	if i := strings.IndexAny(comicURL, "?#"); i >= 0 {
		comicURL = comicURL[:i]
	}
	for _, prefix := range prefixes {
		if !strings.HasPrefix(comicURL, prefix) {
			continue
		}
		name := strings.Trim(strings.TrimPrefix(comicURL, prefix), "/")
		if name == "" || strings.Contains(name, "/") {
			break
		}
		return data.SanitizeName(name), nil
	}
	return "", fmt.Errorf("cannot derive comic name from %q: %w", comicURL, data.ErrParsing)
}
