package sources

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strconv"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
)

const zerocalcareBaseURL = "https://www.zerocalcare.net"

var zerocalcarePagePattern = regexp.MustCompile(
	`https://www\.zerocalcare\.net/wp-content/uploads/\d{4}/\d{2}/(\d+)-(\d+)\.jpg`)

// Zerocalcare publishes each story as a single post; every page image of the
// story is referenced from that one page.
type Zerocalcare struct {
	client  *utils.Client
	baseURL string
}

func NewZerocalcare(client *utils.Client) *Zerocalcare {
	return &Zerocalcare{client: client, baseURL: zerocalcareBaseURL}
}

func (z *Zerocalcare) Domain() string { return "www.zerocalcare.net" }

func (z *Zerocalcare) ComicName(comicURL string) (string, error) {
	return stripComicPrefix(comicURL,
		z.baseURL+"/storie-a-fumetti/",
		"https://zerocalcare.net/storie-a-fumetti/",
	)
}

// ListIssues returns the story itself as the only issue.
func (z *Zerocalcare) ListIssues(_ context.Context, comicURL string) ([]data.Issue, error) {
	name, err := z.ComicName(comicURL)
	if err != nil {
		return nil, err
	}
	return []data.Issue{{Name: name, Link: comicURL}}, nil
}

// ExtractPageURLs finds every page image referenced in raw HTML. The page
// embeds each image several times, so matches are deduplicated before being
// ordered by the page index in the filename.
func ExtractPageURLs(rawHTML string) []string {
	type page struct {
		url          string
		index, order int
	}
	seen := make(map[string]bool)
	var pages []page
	for _, m := range zerocalcarePagePattern.FindAllStringSubmatch(rawHTML, -1) {
		if seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		index, _ := strconv.Atoi(m[1])
		order, _ := strconv.Atoi(m[2])
		pages = append(pages, page{url: m[0], index: index, order: order})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].index != pages[j].index {
			return pages[i].index < pages[j].index
		}
		return pages[i].order < pages[j].order
	})

	urls := make([]string, len(pages))
	for i, p := range pages {
		urls[i] = p.url
	}
	return urls
}

func (z *Zerocalcare) pageURLs(ctx context.Context, issue data.Issue) ([]string, error) {
	body, err := z.client.Text(ctx, issue.Link)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch story %s: %w", issue.Name, err)
	}
	urls := ExtractPageURLs(body)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no page images in %s: %w", issue.Link, data.ErrParsing)
	}
	return urls, nil
}

func (z *Zerocalcare) LocatePageImage(ctx context.Context, issue data.Issue, page int) (string, error) {
	urls, err := z.pageURLs(ctx, issue)
	if err != nil {
		return "", err
	}
	if page < 1 || page > len(urls) {
		return "", data.ErrEndOfIssue
	}
	return urls[page-1], nil
}

// Pages loads the story once and yields every image found.
func (z *Zerocalcare) Pages(ctx context.Context, issue data.Issue) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		urls, err := z.pageURLs(ctx, issue)
		if err != nil {
			yield(data.Page{}, err)
			return
		}
		for i, u := range urls {
			if !yield(data.Page{Number: i + 1, URL: u}, nil) {
				return
			}
		}
	}
}
