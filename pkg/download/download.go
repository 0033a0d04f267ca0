// Package download performs the HTTP fetches of the online network client.
//
// A Client runs at most one GET at a time. Results are delivered as Events
// on a channel so the consumer can handle them on its own goroutine.
package download

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/navmap-online/pkg/log"
)

// UserAgent is the product part of the default user agent.
const UserAgent = "navmap-online/1.0"

// EventKind tells how a download ended.
type EventKind int

const (
	// Finished carries the response body
	Finished EventKind = iota

	// Failed carries the transport or HTTP error
	Failed

	// SSLErrors carries certificate problems awaiting a decision
	SSLErrors
)

func (k EventKind) String() string {
	switch k {
	case Finished:
		return "Finished"
	case Failed:
		return "Failed"
	case SSLErrors:
		return "SSLErrors"
	default:
		return "Unknown"
	}
}

// Event is the completion of a download.
type Event struct {
	Kind EventKind
	URL  string
	Data []byte
	Err  error

	// StatusCode is the HTTP status for Failed events, 0 for transport errors
	StatusCode int

	// SSLErrors lists the certificate problems for SSLErrors events
	SSLErrors []string
}

// Options configures a Client.
type Options struct {
	// Timeout is the HTTP client timeout (default: 30 seconds)
	Timeout time.Duration

	// MinInterval is the minimum time between two requests, 0 for none
	MinInterval time.Duration

	// Cache stores responses on disk if not nil
	Cache *Cache

	Logger *log.Logger
}

// Client downloads one URL at a time and reports the outcome on Events.
type Client struct {
	mu             sync.Mutex
	url            string
	acceptEncoding string
	userAgent      string
	ignoreSSL      bool
	downloading    bool
	cancel         context.CancelFunc
	seq            uint64

	httpClient     *http.Client
	insecureClient *http.Client
	limiter        *rate.Limiter
	cache          *Cache
	events         chan Event
	lg             *log.Logger
}

// NewClient creates a download client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	insecure := http.DefaultTransport.(*http.Transport).Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Client{
		userAgent:      UserAgent,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		insecureClient: &http.Client{Timeout: opts.Timeout, Transport: insecure},
		limiter:        rate.NewLimiter(limit, 1),
		cache:          opts.Cache,
		events:         make(chan Event, 1),
		lg:             opts.Logger.With("component", "download"),
	}
}

// Events returns the channel completions are delivered on. A cancelled
// download never produces an event.
func (c *Client) Events() <-chan Event {
	return c.events
}

// SetURL sets the URL of the next download.
func (c *Client) SetURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
}

// URL returns the URL of the current or next download.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// SetAcceptEncoding sets the Accept-Encoding header, e.g. "gzip". Bodies
// are then passed on compressed.
func (c *Client) SetAcceptEncoding(encoding string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acceptEncoding = encoding
}

// SetDefaultUserAgentShort appends suffix to the default user agent.
func (c *Client) SetDefaultUserAgentShort(suffix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userAgent = UserAgent + suffix
}

// SetIgnoreSslErrors disables certificate verification for later downloads.
func (c *Client) SetIgnoreSslErrors(ignore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignoreSSL = ignore
}

// IsDownloading reports whether a download is in flight.
func (c *Client) IsDownloading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downloading
}

// StartDownload fetches the configured URL in the background. A download
// still in flight is cancelled first.
func (c *Client) StartDownload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.downloading = true
	c.seq++

	req := request{
		seq:            c.seq,
		url:            c.url,
		acceptEncoding: c.acceptEncoding,
		userAgent:      c.userAgent,
		ignoreSSL:      c.ignoreSSL,
	}
	go c.run(ctx, req)
}

// CancelDownload stops the download in flight. It is safe to call at any
// time and drops a completion that was not yet received.
func (c *Client) CancelDownload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Client) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.downloading = false
	c.seq++

	select {
	case <-c.events:
	default:
	}
}

type request struct {
	seq            uint64
	url            string
	acceptEncoding string
	userAgent      string
	ignoreSSL      bool
}

func (c *Client) run(ctx context.Context, req request) {
	ev := c.fetch(ctx, req)
	if errors.Is(ev.Err, context.Canceled) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if req.seq != c.seq {
		// Cancelled or superseded
		return
	}
	c.downloading = false
	c.cancel = nil

	select {
	case c.events <- ev:
	default:
		c.lg.Warn("Dropping download event", "url", req.url, "kind", ev.Kind.String())
	}
}

func (c *Client) fetch(ctx context.Context, req request) Event {
	if c.cache != nil {
		if data, ok := c.cache.Get(req.url); ok {
			c.lg.Debug("Download served from cache", "url", req.url)
			return Event{Kind: Finished, URL: req.url, Data: data}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Event{Kind: Failed, URL: req.url, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.url, nil)
	if err != nil {
		return Event{Kind: Failed, URL: req.url, Err: fmt.Errorf("invalid URL: %w", err)}
	}
	httpReq.Header.Set("User-Agent", req.userAgent)
	if req.acceptEncoding != "" {
		httpReq.Header.Set("Accept-Encoding", req.acceptEncoding)
	}

	client := c.httpClient
	if req.ignoreSSL {
		client = c.insecureClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Event{Kind: Failed, URL: req.url, Err: ctx.Err()}
		}
		if msgs := sslErrors(err); len(msgs) > 0 {
			return Event{Kind: SSLErrors, URL: req.url, SSLErrors: msgs,
				Err: &SSLError{URL: req.url, Errors: msgs}}
		}
		return Event{Kind: Failed, URL: req.url, Err: fmt.Errorf("failed to fetch %s: %w", req.url, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Event{Kind: Failed, URL: req.url, StatusCode: resp.StatusCode,
			Err: &HTTPError{StatusCode: resp.StatusCode, URL: req.url, RetryAfter: parseRetryAfter(resp.Header)}}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return Event{Kind: Failed, URL: req.url, Err: ctx.Err()}
		}
		return Event{Kind: Failed, URL: req.url, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.lg.Debug("Download finished", "url", req.url, "bytes", len(data), "duration", time.Since(start))

	if c.cache != nil {
		if err := c.cache.Put(req.url, data); err != nil {
			c.lg.Warn("Cannot store response in cache", "url", req.url, "error", err)
		}
	}
	return Event{Kind: Finished, URL: req.url, Data: data}
}
