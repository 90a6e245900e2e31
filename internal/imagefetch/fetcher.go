package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	chunkSize      = 8192
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var ErrEmptyBody = errors.New("empty response body")

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: %s", e.URL, e.Status)
}

// Fetcher streams remote images to disk. It makes a single attempt per call;
// retrying is left to the caller.
type Fetcher struct {
	httpClient *http.Client
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url into dest, replacing any existing file. The destination
// is only created once the server has answered 200, and a partially written
// or empty file is removed.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}

	buf := make([]byte, chunkSize)
	n, copyErr := io.CopyBuffer(file, resp.Body, buf)
	closeErr := file.Close()
	if copyErr == nil && n == 0 {
		copyErr = ErrEmptyBody
	}

	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("write image %s: %w", filepath.Base(dest), err)
	}

	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}

	return resp, nil
}
