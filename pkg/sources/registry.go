package sources

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/kerbaras/comics/pkg/data"
	"github.com/kerbaras/comics/pkg/utils"
)

// Site describes one supported website.
type Site struct {
	Domain  string
	Example string
	Pages   string // how pages are discovered
}

type factory func(client *utils.Client, opts Options) Source

// Options tunes the strategies built by Resolve.
type Options struct {
	MaxProbePages   int
	MaxListingPages int
}

func (o Options) withDefaults() Options {
	if o.MaxProbePages <= 0 {
		o.MaxProbePages = DefaultMaxProbePages
	}
	if o.MaxListingPages <= 0 {
		o.MaxListingPages = DefaultMaxListingPages
	}
	return o
}

var registry = map[string]factory{
	"readcomic.me":        func(c *utils.Client, o Options) Source { return NewReadComic(c, o) },
	"scanita.org":         func(c *utils.Client, o Options) Source { return NewScanita(c, o) },
	"www.scanita.org":     func(c *utils.Client, o Options) Source { return NewScanita(c, o) },
	"zerocalcare.net":     func(c *utils.Client, o Options) Source { return NewZerocalcare(c) },
	"www.zerocalcare.net": func(c *utils.Client, o Options) Source { return NewZerocalcare(c) },
}

var sites = []Site{
	{Domain: "readcomic.me", Example: readComicBaseURL + "/comic/<name>", Pages: "page count"},
	{Domain: "scanita.org", Example: scanitaBaseURL + "/manga/<name>", Pages: "probing"},
	{Domain: "www.zerocalcare.net", Example: zerocalcareBaseURL + "/storie-a-fumetti/<name>/", Pages: "page scan"},
}

// Resolve picks the source whose domain exactly matches the URL host.
func Resolve(rawURL string, client *utils.Client, opts Options) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid comic URL %q: %w", rawURL, data.ErrParsing)
	}
	build, ok := registry[strings.ToLower(u.Hostname())]
	if !ok {
		return nil, fmt.Errorf("unsupported site %q: %w", u.Hostname(), data.ErrParsing)
	}
	return build(client, opts.withDefaults()), nil
}

// Supported lists the supported sites sorted by domain.
func Supported() []Site {
	out := make([]Site, len(sites))
	copy(out, sites)
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}
