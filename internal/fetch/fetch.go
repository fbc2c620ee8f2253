// Package fetch downloads package lists and artifacts over HTTP with retry,
// proxy support, progress reporting, and SHA-256 verification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"toolbox/internal/logging"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/http/httpproxy"
)

// slowDownload is how long a download may take before it is logged as slow.
const slowDownload = 30 * time.Second

// ProgressFunc receives the number of bytes written so far and the expected
// total. total is -1 when the server did not send a Content-Length.
type ProgressFunc func(done, total int64)

// Options configures a Client.
type Options struct {
	Timeout   time.Duration // whole-download limit, 0 = none
	Retries   int           // retries after the first attempt for transient failures
	UserAgent string

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// InitialInterval is the first retry delay; zero uses the backoff default.
	InitialInterval time.Duration
}

// HTTPError reports a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Temporary reports whether retrying may help.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client downloads files.
type Client struct {
	http *http.Client
	opts Options
}

// NewClient creates a Client. Proxy settings left empty in opts are not
// consulted from the environment here; config.Load has already folded the
// environment into them.
func NewClient(opts Options) *Client {
	proxyCfg := &httpproxy.Config{
		HTTPProxy:  opts.HTTPProxy,
		HTTPSProxy: opts.HTTPSProxy,
		NoProxy:    opts.NoProxy,
	}
	proxyFunc := proxyCfg.ProxyFunc()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}

	return &Client{
		http: &http.Client{Transport: transport},
		opts: opts,
	}
}

// Download fetches rawURL into dest. The body is streamed to a temporary file
// beside dest and renamed into place only after it is complete, so dest is
// never left half-written. Transient failures are retried with exponential
// backoff. Returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL, dest string, progress ProgressFunc) (int64, error) {
	timer := logging.StartTimer(logging.CategoryFetch, "Download "+rawURL)
	defer timer.StopWithThreshold(slowDownload)

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	eb := backoff.NewExponentialBackOff()
	if c.opts.InitialInterval > 0 {
		eb.InitialInterval = c.opts.InitialInterval
	}
	eb.MaxElapsedTime = 0 // bounded by retry count and ctx instead
	retries := c.opts.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	attempt := 0
	var written int64
	op := func() error {
		attempt++
		logging.FetchDebug("GET %s (attempt %d)", rawURL, attempt)
		n, err := c.fetchOnce(ctx, rawURL, dest, progress)
		if err != nil {
			if !isTransient(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		written = n
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.FetchWarn("download of %s failed (%v); retrying in %v", rawURL, err, wait)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return 0, err
	}
	logging.Fetch("Downloaded %s -> %s (%d bytes)", rawURL, dest, written)
	return written, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL, dest string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return 0, backoff.Permanent(fmt.Errorf("unsupported url %q", rawURL))
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused between retries.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return 0, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	var src io.Reader = resp.Body
	if progress != nil {
		progress(0, resp.ContentLength)
		src = &progressReader{r: resp.Body, total: resp.ContentLength, fn: progress}
	}

	n, err := io.Copy(tmp, src)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		cleanup()
		return 0, fmt.Errorf("short body from %s: got %d of %d bytes: %w", rawURL, n, resp.ContentLength, io.ErrUnexpectedEOF)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to replace %s: %w", dest, err)
	}
	return n, nil
}

// isTransient decides whether a failed attempt is worth retrying.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.done, p.total)
	}
	return n, err
}
