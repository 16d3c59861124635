// Package media wraps GStreamer decode and encode pipelines behind small,
// synchronous session types.
//
// A decode Session turns one segment URL into an ordered sequence of raw
// RGB frames; a Writer turns raw RGB frames back into a single encoded
// file. Both require the GStreamer 1.x runtime (gstreamer1.0-plugins-base,
// -good and -libav for the default codecs).
package media

import (
	"fmt"
	"time"
)

// Frame is one decoded raw video frame.
//
// Data holds interleaved RGB bytes (Width × Height × 3). A frame has a
// single owner at any time: the decode session produces it, the fetch
// worker buffers it, the drain hands it to the writer. It is never shared
// between concurrent owners.
type Frame struct {
	// Seq is the 1-based position of the frame within its segment.
	Seq uint64
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Data contains the raw RGB pixel data.
	Data []byte
}

// StreamInfo describes the stream parameters probed from the first
// segment. It is computed once and applies to the whole run.
type StreamInfo struct {
	// FrameRate is the stream frame rate in frames per second.
	FrameRate int
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
}

// FrameInterval returns the real-time spacing between frames, or zero
// when the frame rate is unknown.
func (i StreamInfo) FrameInterval() time.Duration {
	if i.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(i.FrameRate)
}

// ProbeError indicates the first segment could not be probed for stream
// parameters.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("media: failed to probe stream at %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// SinkError indicates the output sink could not be opened, written to or
// finalized.
type SinkError struct {
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("media: output sink %s failed: %v", e.Path, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
