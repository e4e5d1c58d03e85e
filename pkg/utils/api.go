package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kerbaras/comics/pkg/data"
)

const DefaultUserAgent = "comics/1.0 (+https://github.com/kerbaras/comics)"

// Client is the HTTP client shared by every worker of a run. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	client    *http.Client
	probe     *http.Client
	userAgent string
}

// NewClient builds a client with a per-request timeout. Redirects are
// followed, except by ProbeDocument.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		probe: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Is lets callers match status errors against the data error taxonomy. Every
// status error is a network error; 404 and redirects are also "not found".
func (e *StatusError) Is(target error) bool {
	switch target {
	case data.ErrNetwork:
		return true
	case data.ErrNotFound:
		return e.StatusCode == http.StatusNotFound || (e.StatusCode >= 300 && e.StatusCode < 400)
	}
	return false
}

// Open performs a GET and returns the response for a 2xx status. The caller
// must close the body.
func (c *Client) Open(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, c.client, url)
}

func (c *Client) do(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request for %s: %w", url, data.ErrParsing)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch %s: %w: %w", url, data.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Text returns the body of a page as a string.
func (c *Client) Text(ctx context.Context, url string) (string, error) {
	resp, err := c.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w: %w", url, data.ErrNetwork, err)
	}
	return string(body), nil
}

// Document fetches and parses an HTML page.
func (c *Client) Document(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseDocument(url, resp)
}

// ProbeDocument is Document without following redirects, for sites that
// answer a missing page with a redirect. The redirect surfaces as a
// StatusError matching data.ErrNotFound.
func (c *Client) ProbeDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.do(ctx, c.probe, url)
	if err != nil {
		return nil, err
	}
	return parseDocument(url, resp)
}

func parseDocument(url string, resp *http.Response) (*goquery.Document, error) {
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w: %w", url, data.ErrParsing, err)
	}
	return doc, nil
}
