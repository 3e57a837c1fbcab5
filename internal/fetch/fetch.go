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
)

const (
	// DefaultMaxRedirects bounds the redirect chain.
	DefaultMaxRedirects = 5
	// DefaultHopTimeout bounds each request in the redirect chain.
	DefaultHopTimeout = 5 * time.Minute
	// DefaultBackoff is the first retry delay; it doubles per attempt.
	DefaultBackoff = time.Second
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "sdkfetch/1.0"

	partSuffix = ".part"
)

// Progress reports bytes received for one download. Total is -1 when the
// server did not send a length.
type Progress struct {
	URL      string
	Received int64
	Total    int64
	Done     bool
}

// Session is the state of one request in a redirect chain. A fresh Session
// is made for every attempt and every hop.
type Session struct {
	SourceURL string
	DestPath  string
	Expected  int64 // -1 when the server sent no length
	Received  int64
	Hop       int
}

// write counts received bytes and reports progress.
func (s *Session) write(d *Downloader, p []byte) {
	s.Received += int64(len(p))
	d.report(Progress{URL: s.SourceURL, Received: s.Received, Total: s.Expected})
}

// Options configures a Downloader. Zero values select the defaults.
type Options struct {
	// MaxRedirects is the number of 301/302 hops followed. A negative value
	// disables redirects entirely.
	MaxRedirects int
	HopTimeout   time.Duration
	Retries      int
	Backoff      time.Duration
	UserAgent    string

	// Progress receives non-blocking progress events when set.
	Progress chan<- Progress

	// Client overrides the HTTP client. Its redirect policy is replaced.
	Client *http.Client

	// S3 serves s3:// URLs. Without it such URLs fail.
	S3 S3Client

	Logger Logger
}

// Downloader fetches a URL into a file.
type Downloader struct {
	client       *http.Client
	s3           S3Client
	maxRedirects int
	hopTimeout   time.Duration
	retries      int
	backoff      time.Duration
	userAgent    string
	progress     chan<- Progress
	logger       Logger
}

// NewDownloader creates a downloader from opts.
func NewDownloader(opts Options) *Downloader {
	client := &http.Client{}
	if opts.Client != nil {
		c := *opts.Client
		client = &c
	}
	// Redirects are followed in fetchOnce.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	d := &Downloader{
		client:       client,
		s3:           opts.S3,
		maxRedirects: opts.MaxRedirects,
		hopTimeout:   opts.HopTimeout,
		retries:      opts.Retries,
		backoff:      opts.Backoff,
		userAgent:    opts.UserAgent,
		progress:     opts.Progress,
		logger:       opts.Logger,
	}
	if d.maxRedirects == 0 {
		d.maxRedirects = DefaultMaxRedirects
	} else if d.maxRedirects < 0 {
		d.maxRedirects = 0
	}
	if d.hopTimeout <= 0 {
		d.hopTimeout = DefaultHopTimeout
	}
	if d.retries < 0 {
		d.retries = 0
	}
	if d.backoff <= 0 {
		d.backoff = DefaultBackoff
	}
	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}
	if d.logger == nil {
		d.logger = defaultLogger()
	}
	return d
}

// Fetch downloads rawURL to destPath and returns the number of bytes
// written. The body is written to destPath.part and renamed into place
// once complete; on failure no file is left behind.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destPath string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := d.backoff << uint(attempt-1)
			d.logger.Warn("retrying download", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		n, err := d.fetchOnce(ctx, rawURL, destPath)
		if err == nil {
			return n, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return 0, err
		}
		var te *TransportError
		if !errors.As(err, &te) || !te.Temporary() {
			return 0, err
		}
	}

	if d.retries == 0 {
		return 0, lastErr
	}
	return 0, fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL, destPath string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, &TransportError{URL: rawURL, Err: fmt.Errorf("%w: %v", ErrInvalidURL, err)}
	}

	switch u.Scheme {
	case "s3":
		return d.fetchS3(ctx, u, destPath)
	case "http", "https":
	default:
		return 0, &TransportError{URL: rawURL, Err: fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)}
	}

	current := rawURL
	redirects := 0
	for {
		n, next, err := d.hop(ctx, current, destPath, redirects)
		if err != nil {
			return 0, err
		}
		if next == "" {
			return n, nil
		}

		redirects++
		if redirects > d.maxRedirects {
			return 0, &TransportError{
				URL: rawURL,
				Err: fmt.Errorf("%w: more than %d hops", ErrTooManyRedirects, d.maxRedirects),
			}
		}
		d.logger.Debug("following redirect", "from", current, "to", next, "hop", redirects)
		current = next
	}
}

// hop issues one GET. It returns the resolved Location for a redirect, or
// writes the body to destPath for a 200.
func (d *Downloader) hop(ctx context.Context, rawURL, destPath string, hop int) (int64, string, error) {
	hopCtx, cancel := context.WithTimeout(ctx, d.hopTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hopCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", &TransportError{URL: rawURL, Err: fmt.Errorf("%w: create request: %v", ErrInvalidURL, err)}
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusMovedPermanently, http.StatusFound:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return 0, "", &TransportError{URL: rawURL, Status: resp.StatusCode, Err: ErrMissingLocation}
		}
		next, err := resp.Request.URL.Parse(loc)
		if err != nil {
			return 0, "", &TransportError{URL: rawURL, Status: resp.StatusCode, Err: fmt.Errorf("parse Location: %w", err)}
		}
		return 0, next.String(), nil
	default:
		return 0, "", &TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	s := &Session{SourceURL: rawURL, DestPath: destPath, Expected: resp.ContentLength, Hop: hop}
	n, err := d.writeBody(s, resp.Body)
	if err != nil {
		return 0, "", err
	}
	return n, "", nil
}

// writeBody streams body into s.DestPath.part and renames it to s.DestPath.
func (d *Downloader) writeBody(s *Session, body io.Reader) (int64, error) {
	rawURL, total := s.SourceURL, s.Expected
	if err := os.MkdirAll(filepath.Dir(s.DestPath), 0o755); err != nil {
		return 0, fmt.Errorf("create dest dir: %w", err)
	}

	partPath := s.DestPath + partSuffix
	f, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		f.Close()
		if cleanupNeeded {
			os.Remove(partPath)
		}
	}()

	n, err := io.Copy(io.MultiWriter(f, sessionWriter{d, s}), body)
	if err != nil {
		return 0, &TransportError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if total >= 0 && n != total {
		return 0, &TransportError{
			URL: rawURL,
			Err: fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, n, total),
		}
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close partial file: %w", err)
	}
	if err := os.Rename(partPath, s.DestPath); err != nil {
		return 0, fmt.Errorf("rename partial file: %w", err)
	}
	cleanupNeeded = false

	d.report(Progress{URL: rawURL, Received: n, Total: total, Done: true})
	return n, nil
}

// report sends p without blocking.
func (d *Downloader) report(p Progress) {
	if d.progress == nil {
		return
	}
	select {
	case d.progress <- p:
	default:
	}
}

type sessionWriter struct {
	d *Downloader
	s *Session
}

func (w sessionWriter) Write(p []byte) (int, error) {
	w.s.write(w.d, p)
	return len(p), nil
}
