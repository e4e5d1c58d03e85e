package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *utils.Client {
	return utils.NewClient(5*time.Second, "")
}

func listingPage(labels ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul id="nt_listchapter">`)
	for _, label := range labels {
		fmt.Fprintf(&b, "<li><a href=\"/comic/batman/issue-%s\">\n  Issue #%s\n</a></li>", label, label)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func newReadComic(server *httptest.Server) *ReadComic {
	r := NewReadComic(newTestClient(), Options{})
	r.baseURL = server.URL
	return r
}

func TestReadComic_ComicName(t *testing.T) {
	r := NewReadComic(newTestClient(), Options{})

	name, err := r.ComicName("https://readcomic.me/comic/batman-2016")
	require.NoError(t, err)
	assert.Equal(t, "batman-2016", name)

	name, err = r.ComicName("https://readcomic.me/comic/batman-2016/?page=2")
	require.NoError(t, err)
	assert.Equal(t, "batman-2016", name)

	_, err = r.ComicName("https://readcomic.me/other/batman")
	assert.True(t, errors.Is(err, data.ErrParsing))
}

func TestReadComic_ListIssuesWalksPagesUntilEmpty(t *testing.T) {
	var requests atomic.Int32
	pages := map[string]string{
		"":  listingPage("5", "4", "3"),
		"2": listingPage("2", "1"),
		"3": listingPage(),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			t.Errorf("unexpected listing page %q", r.URL.RawQuery)
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	rc := newReadComic(server)
	issues, err := rc.ListIssues(context.Background(), server.URL+"/comic/batman")
	require.NoError(t, err)

	assert.Equal(t, int32(3), requests.Load())
	require.Len(t, issues, 5)
	names := make([]string, len(issues))
	for i, issue := range issues {
		names[i] = issue.Name
	}
	assert.Equal(t, []string{"001", "002", "003", "004", "005"}, names)
	assert.Equal(t, server.URL+"/comic/batman/issue-1", issues[0].Link)
}

func TestReadComic_ListIssuesStopsOnRepeatedPage(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// ignores ?page and always serves the same listing
		fmt.Fprint(w, listingPage("2", "1"))
	}))
	defer server.Close()

	issues, err := newReadComic(server).ListIssues(context.Background(), server.URL+"/comic/batman")
	require.NoError(t, err)
	assert.Len(t, issues, 2)
	assert.Equal(t, int32(2), requests.Load())
}

func TestReadComic_ListIssuesStopsOnNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, listingPage("1"))
	}))
	defer server.Close()

	issues, err := newReadComic(server).ListIssues(context.Background(), server.URL+"/comic/batman")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "001", issues[0].Name)
}

func TestReadComic_ListIssuesMissingContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>nothing here</p></body></html>`)
	}))
	defer server.Close()

	_, err := newReadComic(server).ListIssues(context.Background(), server.URL+"/comic/batman")
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestReadComic_ListIssuesSkipsMalformedEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "" {
			fmt.Fprint(w, listingPage())
			return
		}
		fmt.Fprint(w, `<ul id="nt_listchapter">
			<li><a href="/comic/batman/issue-2">Issue #2</a></li>
			<li><a href="/comic/batman/annual">Annual</a></li>
			<li><a>Issue #9</a></li>
			<li><a href="/comic/batman/issue-1">Issue #1</a></li>
		</ul>`)
	}))
	defer server.Close()

	issues, err := newReadComic(server).ListIssues(context.Background(), server.URL+"/comic/batman")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "001", issues[0].Name)
	assert.Equal(t, "002", issues[1].Name)
}

func TestReadComic_Pages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/comic/batman/issue-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div><span class="total-pages">of 3</span></div>`)
	})
	mux.HandleFunc("/comic/batman/issue-1/", func(w http.ResponseWriter, r *http.Request) {
		n := strings.TrimPrefix(r.URL.Path, "/comic/batman/issue-1/")
		if n == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `<img class="single-page" src="/img/%s.jpg">`, n)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	rc := newReadComic(server)
	issue := data.Issue{Name: "001", Link: server.URL + "/comic/batman/issue-1"}

	total, err := rc.TotalPages(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	var got []data.Page
	var failed []int
	for page, err := range rc.Pages(context.Background(), issue) {
		if err != nil {
			failed = append(failed, page.Number)
			continue
		}
		got = append(got, page)
	}

	assert.Equal(t, []int{2}, failed)
	require.Len(t, got, 2)
	assert.Equal(t, data.Page{Number: 1, URL: server.URL + "/img/1.jpg"}, got[0])
	assert.Equal(t, data.Page{Number: 3, URL: server.URL + "/img/3.jpg"}, got[1])
}

func TestReadComic_PagesWithoutCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div>reader</div>`)
	}))
	defer server.Close()

	issue := data.Issue{Name: "001", Link: server.URL + "/comic/batman/issue-1"}
	count := 0
	for page, err := range newReadComic(server).Pages(context.Background(), issue) {
		count++
		assert.Equal(t, 0, page.Number)
		assert.True(t, errors.Is(err, data.ErrParsing))
	}
	assert.Equal(t, 1, count)
}

func TestReadComic_PagesContinuePastMissingPage(t *testing.T) {
	var requested []string
	mux := http.NewServeMux()
	mux.HandleFunc("/comic/batman/issue-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div><span class="total-pages">of 4</span></div>`)
	})
	mux.HandleFunc("/comic/batman/issue-1/", func(w http.ResponseWriter, r *http.Request) {
		n := strings.TrimPrefix(r.URL.Path, "/comic/batman/issue-1/")
		requested = append(requested, n)
		switch n {
		case "2":
			http.NotFound(w, r)
		case "3":
			http.Redirect(w, r, "/comic/batman", http.StatusFound)
		default:
			fmt.Fprintf(w, `<img class="single-page" src="/img/%s.jpg">`, n)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	issue := data.Issue{Name: "001", Link: server.URL + "/comic/batman/issue-1"}

	var got, failed []int
	for page, err := range newReadComic(server).Pages(context.Background(), issue) {
		if err != nil {
			assert.True(t, errors.Is(err, data.ErrNotFound))
			assert.False(t, errors.Is(err, data.ErrEndOfIssue))
			failed = append(failed, page.Number)
			continue
		}
		got = append(got, page.Number)
	}

	assert.Equal(t, []int{1, 4}, got)
	assert.Equal(t, []int{2, 3}, failed)
	assert.Equal(t, []string{"1", "2", "3", "4"}, requested)
}

func TestBoundedPages_EndOfIssueIsAGap(t *testing.T) {
	locate := func(_ context.Context, page int) (string, error) {
		if page == 2 {
			return "", data.ErrEndOfIssue
		}
		return fmt.Sprintf("https://img.test/%d.jpg", page), nil
	}

	var numbers []int
	var errs []error
	for page, err := range boundedPages(context.Background(), 3, locate) {
		numbers = append(numbers, page.Number)
		errs = append(errs, err)
	}

	assert.Equal(t, []int{1, 2, 3}, numbers)
	assert.NoError(t, errs[0])
	assert.True(t, errors.Is(errs[1], data.ErrNotFound))
	assert.NoError(t, errs[2])
}
