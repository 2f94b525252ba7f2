package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxDocumentSize caps pages and index documents read into memory.
const MaxDocumentSize = 32 << 20

var (
	ErrHTTPStatus       = errors.New("unexpected HTTP status")
	ErrStalled          = errors.New("read stalled")
	ErrDocumentTooLarge = errors.New("document too large")
)

type Options struct {
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	ChunkSize       int
	UserAgent       string
	MaxDocumentSize int64 // defaults to MaxDocumentSize
}

// Client is the HTTP primitive shared by the feed fetch, page scraping and asset downloads.
type Client struct {
	httpClient *http.Client
	opts       Options
}

func NewClient(opts Options) *Client {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8192
	}
	if opts.MaxDocumentSize <= 0 {
		opts.MaxDocumentSize = MaxDocumentSize
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout
	transport.ResponseHeaderTimeout = opts.ReadTimeout
	// Bytes on disk must match the HEAD Content-Length.
	transport.DisableCompression = true

	return &Client{
		// No overall timeout: a large download may take hours while never stalling.
		httpClient: &http.Client{Transport: transport},
		opts:       opts,
	}
}

// Document fetches a whole document (feed, listing or release page) into memory.
func (c *Client) Document(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	resp, err := c.get(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := c.watch(resp.Body, cancel)
	defer body.stop()

	data, err := io.ReadAll(io.LimitReader(body, c.opts.MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readError(ctx, err))
	}
	if int64(len(data)) > c.opts.MaxDocumentSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, c.opts.MaxDocumentSize)
	}

	return data, nil
}

func (c *Client) get(ctx context.Context, method string, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	return resp, nil
}

// watch arms a watchdog that cancels the request when no read completes within ReadTimeout.
func (c *Client) watch(r io.Reader, cancel context.CancelCauseFunc) *stallReader {
	timeout := c.opts.ReadTimeout
	if timeout <= 0 {
		return &stallReader{r: r}
	}
	return &stallReader{
		r:       r,
		timeout: timeout,
		timer:   time.AfterFunc(timeout, func() { cancel(ErrStalled) }),
	}
}

type stallReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func (s *stallReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if s.timer != nil && n > 0 {
		s.timer.Reset(s.timeout)
	}
	return n, err
}

func (s *stallReader) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// readError reports the stall instead of the bare cancellation it caused.
func readError(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrStalled) {
		return cause
	}
	return err
}
