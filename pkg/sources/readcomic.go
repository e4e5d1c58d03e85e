package sources

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
)

const readComicBaseURL = "https://readcomic.me"

var (
	readComicIssuePattern = regexp.MustCompile(`Issue\s*#\s*([\w.\-]+)`)
	digitsPattern         = regexp.MustCompile(`(\d+)`)
)

// ReadComic lists issues from a paginated, newest-first listing and reads
// the page count of each issue up front.
type ReadComic struct {
	client          *utils.Client
	baseURL         string
	maxListingPages int
}

func NewReadComic(client *utils.Client, opts Options) *ReadComic {
	opts = opts.withDefaults()
	return &ReadComic{client: client, baseURL: readComicBaseURL, maxListingPages: opts.MaxListingPages}
}

func (r *ReadComic) Domain() string { return "readcomic.me" }

func (r *ReadComic) ComicName(comicURL string) (string, error) {
	return stripComicPrefix(comicURL, r.baseURL+"/comic/")
}

// ListIssues walks ?page=1,2,... until a page has no new issue entries.
func (r *ReadComic) ListIssues(ctx context.Context, comicURL string) ([]data.Issue, error) {
	seen := make(map[string]bool)
	var issues []data.Issue

	for page := 1; page <= r.maxListingPages; page++ {
		listingURL, err := listingPageURL(comicURL, page)
		if err != nil {
			return nil, err
		}
		doc, err := r.client.Document(ctx, listingURL)
		if err != nil {
			if page > 1 && errors.Is(err, data.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to fetch issue listing: %w", err)
		}

		list := doc.Find("#nt_listchapter")
		if list.Length() == 0 {
			if page == 1 {
				return nil, fmt.Errorf("issue list missing on %s: %w", listingURL, data.ErrNotFound)
			}
			break
		}

		found := 0
		list.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			issue, ok := r.parseIssueLink(comicURL, a)
			if !ok || seen[issue.Name] {
				return
			}
			seen[issue.Name] = true
			issues = append(issues, issue)
			found++
		})
		if found == 0 {
			break
		}
	}

	// the site lists newest first
	slices.Reverse(issues)
	return issues, nil
}

func (r *ReadComic) parseIssueLink(base string, a *goquery.Selection) (data.Issue, bool) {
	m := readComicIssuePattern.FindStringSubmatch(a.Text())
	if m == nil {
		return data.Issue{}, false
	}
	href, _ := a.Attr("href")
	link := resolveURL(base, href)
	name := padIssueNumber(m[1])
	if link == "" || name == "" {
		return data.Issue{}, false
	}
	return data.Issue{Name: name, Link: link}, true
}

func listingPageURL(comicURL string, page int) (string, error) {
	if page == 1 {
		return comicURL, nil
	}
	u, err := url.Parse(comicURL)
	if err != nil {
		return "", fmt.Errorf("invalid comic URL %q: %w", comicURL, data.ErrParsing)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TotalPages reads the page count shown by the issue reader.
func (r *ReadComic) TotalPages(ctx context.Context, issue data.Issue) (int, error) {
	doc, err := r.client.Document(ctx, issue.Link)
	if err != nil {
		return 0, fmt.Errorf("failed to open issue %s: %w", issue.Name, err)
	}
	text := doc.Find("span.total-pages").First().Text()
	m := digitsPattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("page count missing for issue %s: %w", issue.Name, data.ErrParsing)
	}
	return strconv.Atoi(m)
}

func (r *ReadComic) LocatePageImage(ctx context.Context, issue data.Issue, page int) (string, error) {
	// the page count is known, so a missing page is a gap, not the end
	doc, err := r.client.ProbeDocument(ctx, pageURL(issue.Link, page))
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	src, ok := doc.Find("img.single-page").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("page %d image missing: %w", page, data.ErrParsing)
	}
	return resolveURL(issue.Link, src), nil
}

func (r *ReadComic) Pages(ctx context.Context, issue data.Issue) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		total, err := r.TotalPages(ctx, issue)
		if err != nil {
			yield(data.Page{}, err)
			return
		}
		locate := func(ctx context.Context, page int) (string, error) {
			return r.LocatePageImage(ctx, issue, page)
		}
		for page, err := range boundedPages(ctx, total, locate) {
			if !yield(page, err) {
				return
			}
		}
	}
}
