package manifest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Loader fetches and parses playlists over HTTP.
//
// The loader performs a single blocking GET per playlist; there is no
// retry or caching layer. A non-success response is a *FetchError.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader. When headers is non-empty, every request
// carries the given header set (useful for tokens or referer checks).
func NewLoader(headers map[string]string) *Loader {
	transport := http.DefaultTransport
	if len(headers) > 0 {
		transport = &headerTransport{headers: headers, base: transport}
	}
	return &Loader{client: &http.Client{Transport: transport}}
}

// Load retrieves the playlist at url and parses it into segments.
func (l *Loader) Load(ctx context.Context, url string) ([]Segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	segments, err := Parse(string(data), url)
	if err != nil {
		return nil, err
	}

	slog.Info("manifest: playlist parsed",
		"url", url,
		"segments", len(segments),
	)

	return segments, nil
}
