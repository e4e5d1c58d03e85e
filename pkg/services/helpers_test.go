package services

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/integrations"
)

// fakeSource serves a fixed listing. A page URL of "" is yielded as a broken
// page.
type fakeSource struct {
	issues   []data.Issue
	pages    map[string][]string
	listErr  error
	issueErr map[string]error

	pageWalks atomic.Int32

	mu        sync.Mutex
	active    int
	maxActive int
}

func newFakeSource(names ...string) *fakeSource {
	s := &fakeSource{pages: map[string][]string{}, issueErr: map[string]error{}}
	for _, name := range names {
		s.issues = append(s.issues, data.Issue{Name: name, Link: "https://example.test/" + name})
		s.pages[name] = []string{
			fmt.Sprintf("https://img.test/%s/1.jpg", name),
			fmt.Sprintf("https://img.test/%s/2.jpg", name),
		}
	}
	return s
}

func (s *fakeSource) Domain() string { return "example.test" }

func (s *fakeSource) ComicName(string) (string, error) { return "Comic", nil }

func (s *fakeSource) ListIssues(context.Context, string) ([]data.Issue, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.issues, nil
}

func (s *fakeSource) LocatePageImage(_ context.Context, issue data.Issue, page int) (string, error) {
	urls := s.pages[issue.Name]
	if page < 1 || page > len(urls) {
		return "", data.ErrEndOfIssue
	}
	return urls[page-1], nil
}

func (s *fakeSource) Pages(ctx context.Context, issue data.Issue) iter.Seq2[data.Page, error] {
	return func(yield func(data.Page, error) bool) {
		s.pageWalks.Add(1)
		s.enter()
		defer s.leave()

		if err := s.issueErr[issue.Name]; err != nil {
			yield(data.Page{}, err)
			return
		}
		for i, u := range s.pages[issue.Name] {
			page := data.Page{Number: i + 1, URL: u}
			var err error
			if u == "" {
				err = fmt.Errorf("page %d: %w", page.Number, data.ErrNotFound)
			}
			if !yield(page, err) {
				return
			}
		}
	}
}

func (s *fakeSource) enter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active++
	s.maxActive = max(s.maxActive, s.active)
}

func (s *fakeSource) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
}

// fakeFetcher writes a few bytes per page. URLs listed in fail are rejected.
type fakeFetcher struct {
	delay time.Duration
	fail  map[string]bool
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, imageURL, dest string) error {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail[imageURL] {
		return fmt.Errorf("fetch %s: %w", imageURL, data.ErrNetwork)
	}
	return os.WriteFile(dest, []byte("page "+imageURL), 0644)
}

type failingPackager struct{}

func (failingPackager) Package(string, string, integrations.Metadata) error {
	return fmt.Errorf("disk full: %w", data.ErrFileSystem)
}

type fakeHistory struct {
	mu       sync.Mutex
	runs     int
	recorded []data.IssueResult
	finished []int
}

func (h *fakeHistory) StartRun(string, string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs++
	return fmt.Sprintf("run-%d", h.runs), nil
}

func (h *fakeHistory) RecordIssue(_ string, _ string, result data.IssueResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = append(h.recorded, result)
	return nil
}

func (h *fakeHistory) FinishRun(_ string, issues, failed int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = append(h.finished, issues, failed)
	return nil
}
