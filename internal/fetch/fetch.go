// Package fetch retrieves target pages over HTTP for static analysis. Live
// automation drives a real browser; this client backs the CLI and the
// diagnostics server, with per-host rate limiting so repeated classification
// runs stay polite.
package fetch

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/probelab/fathom/internal/page"
)

// Options configures the fetch client.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	RatePerHost rate.Limit
	Burst       int
}

// Client fetches pages with a shared resty client and one limiter per host.
type Client struct {
	http *resty.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// NewClient creates a fetch client.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 1
	}
	if opts.Burst == 0 {
		opts.Burst = 2
	}

	http := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Client{
		http:     http,
		limiters: map[string]*rate.Limiter{},
		perHost:  opts.RatePerHost,
		burst:    opts.Burst,
	}
}

// Page fetches a URL and parses it into a static page.
func (c *Client) Page(ctx context.Context, rawURL string) (*page.Static, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limit wait")
	}

	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", rawURL)
	}
	if resp.StatusCode() >= 400 {
		return nil, eris.Errorf("fetch: %s returned status %d", rawURL, resp.StatusCode())
	}

	return page.NewStatic(rawURL, resp.Body())
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.perHost, c.burst)
		c.limiters[host] = l
	}
	return l
}
