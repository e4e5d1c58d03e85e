package sources

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
)

const scanitaBaseURL = "https://scanita.org"

var scanitaChapterPattern = regexp.MustCompile(`Capitolo\s+(\d+)`)

// Scanita has no page count in its reader, so pages are probed one by one
// until the site answers with a missing page.
type Scanita struct {
	client        *utils.Client
	baseURL       string
	maxProbePages int
}

func NewScanita(client *utils.Client, opts Options) *Scanita {
	opts = opts.withDefaults()
	return &Scanita{client: client, baseURL: scanitaBaseURL, maxProbePages: opts.MaxProbePages}
}

func (s *Scanita) Domain() string { return "scanita.org" }

func (s *Scanita) ComicName(comicURL string) (string, error) {
	return stripComicPrefix(comicURL,
		s.baseURL+"/manga/",
		strings.Replace(s.baseURL, "://", "://www.", 1)+"/manga/",
	)
}

type scanitaChapter struct {
	number int
	issue  data.Issue
}

// ListIssues reads the chapter list. Long series hide it behind a "show
// more" button whose data-path points at the full list.
func (s *Scanita) ListIssues(ctx context.Context, comicURL string) ([]data.Issue, error) {
	doc, err := s.client.Document(ctx, comicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chapter listing: %w", err)
	}

	container := doc.Find(".chapters-list, #chapters-list").First()
	if button := doc.Find(`[data-show-more='#more-chapter']`).First(); button.Length() > 0 {
		path, ok := button.Attr("data-path")
		if !ok || path == "" {
			return nil, fmt.Errorf("chapter list button without path: %w", data.ErrParsing)
		}
		full, err := s.client.Document(ctx, resolveURL(s.baseURL+"/", path))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch full chapter list: %w", err)
		}
		container = full.Selection
	}
	if container.Length() == 0 {
		return nil, fmt.Errorf("chapter list missing on %s: %w", comicURL, data.ErrNotFound)
	}

	seen := make(map[int]bool)
	var chapters []scanitaChapter
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		m := scanitaChapterPattern.FindStringSubmatch(a.Find("h5").First().Text())
		if m == nil {
			return
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			return
		}
		href, _ := a.Attr("href")
		link := resolveURL(s.baseURL+"/", href)
		if link == "" {
			return
		}
		seen[n] = true
		chapters = append(chapters, scanitaChapter{
			number: n,
			issue:  data.Issue{Name: fmt.Sprintf("%03d", n), Link: link},
		})
	})

	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].number < chapters[j].number })
	issues := make([]data.Issue, len(chapters))
	for i, ch := range chapters {
		issues[i] = ch.issue
	}
	return issues, nil
}

func (s *Scanita) LocatePageImage(ctx context.Context, issue data.Issue, page int) (string, error) {
	doc, err := s.client.ProbeDocument(ctx, pageURL(issue.Link, page))
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return "", data.ErrEndOfIssue
		}
		return "", err
	}
	img := doc.Find("img.page-image, #page img").First()
	src, ok := img.Attr("src")
	if !ok {
		src, ok = img.Attr("data-src")
	}
	if !ok || strings.TrimSpace(src) == "" {
		return "", data.ErrEndOfIssue
	}
	return resolveURL(issue.Link, src), nil
}

func (s *Scanita) Pages(ctx context.Context, issue data.Issue) iter.Seq2[data.Page, error] {
	return probePages(ctx, s.maxProbePages, func(ctx context.Context, page int) (string, error) {
		return s.LocatePageImage(ctx, issue, page)
	})
}
