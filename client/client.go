package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/patrickmn/go-cache"

	"github.com/totegamma/mediadb"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxFailCount = 5
	defaultFailWindow   = time.Minute
)

// RequestHeaders are copied from the incoming request to the upstream request.
var RequestHeaders = []string{
	"Accept",
	"Accept-Encoding",
	"Range",
	"If-Range",
	"If-None-Match",
	"If-Modified-Since",
}

// ResponseHeaders are copied from the upstream response back to the caller.
var ResponseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Content-Encoding",
	"Accept-Ranges",
	"Cache-Control",
	"ETag",
	"Last-Modified",
}

// Client fetches record content from its upstream location.
// Hosts that keep failing are short-circuited for the fail window.
type Client struct {
	client       *http.Client
	transport    http.RoundTripper
	failures     *cache.Cache
	userAgent    string
	maxFailCount int
	logger       hclog.Logger
}

type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxFailCount int
	FailWindow   time.Duration
	Logger       hclog.Logger
	// Transport overrides the default transport.
	Transport http.RoundTripper
}

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxFailCount == 0 {
		opts.MaxFailCount = defaultMaxFailCount
	}
	if opts.FailWindow == 0 {
		opts.FailWindow = defaultFailWindow
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	transport := opts.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		// only bound the wait for headers, bodies may stream for a long time
		base.ResponseHeaderTimeout = opts.Timeout
		base.DialContext = (&net.Dialer{Timeout: opts.Timeout}).DialContext
		transport = base
	}

	c := &Client{
		transport:    transport,
		failures:     cache.New(opts.FailWindow, 2*opts.FailWindow),
		userAgent:    opts.UserAgent,
		maxFailCount: opts.MaxFailCount,
		logger:       opts.Logger.Named("client"),
	}
	c.client = &http.Client{Transport: c}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.transport.RoundTrip(req)
}

// Fetch issues a GET for rawURL, forwarding the allowed headers of header.
// The caller must close the response body.
func (c *Client) Fetch(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, mediadb.UpstreamFetchError{URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, mediadb.UpstreamFetchError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	host := u.Host
	if count, found := c.failures.Get(host); found && count.(int) >= c.maxFailCount {
		return nil, mediadb.UpstreamFetchError{URL: rawURL, Err: fmt.Errorf("host %s failed %d times recently", host, count)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, mediadb.UpstreamFetchError{URL: rawURL, Err: err}
	}
	CopyHeaders(req.Header, header, RequestHeaders)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.recordFailure(host)
		}
		return nil, mediadb.UpstreamFetchError{URL: rawURL, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(host)
	} else {
		c.failures.Delete(host)
	}

	return resp, nil
}

func (c *Client) recordFailure(host string) {
	if _, err := c.failures.IncrementInt(host, 1); err != nil {
		c.failures.Set(host, 1, cache.DefaultExpiration)
	}
	c.logger.Debug("upstream failure", "host", host)
}

// CopyHeaders copies the named headers from src to dst.
func CopyHeaders(dst, src http.Header, names []string) {
	for _, name := range names {
		values := src.Values(name)
		if len(values) == 0 {
			continue
		}
		dst.Del(name)
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
