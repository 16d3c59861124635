// Package manifest retrieves and parses HLS-style media playlists into an
// ordered list of segment descriptors.
//
// The segment order in the playlist defines the playback order; everything
// downstream (batching, draining, writing) preserves it.
package manifest

import "fmt"

// Segment describes one addressable media chunk of the playlist.
// Segments are immutable once parsed.
type Segment struct {
	// URL is the absolute location of the segment.
	URL string
	// Duration is the advertised segment duration in seconds.
	Duration float64
}

// FetchError indicates the playlist could not be retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest: failed to fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("manifest: unexpected status %d fetching %s", e.Status, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates a malformed duration tag in the playlist.
type ParseError struct {
	Line  int
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest: malformed duration tag on line %d: %q", e.Line, e.Value)
}
