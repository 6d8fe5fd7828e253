package ballot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxImageSize bounds a tally-sheet download
const maxImageSize = 32 << 20

// ImageFetchError reports a non-success response for an image download
type ImageFetchError struct {
	URL    string
	Status int
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("fetch image %s: status %d", e.URL, e.Status)
}

// Fetcher downloads tally-sheet images over HTTP
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher using client, or a client with timeout when
// client is nil
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{client: client, userAgent: "tallyocr/1"}
}

// Fetch downloads the image at url
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ImageFetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", url, err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image %s exceeds %d bytes", url, maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", url)
	}
	return data, nil
}
