package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/seppedelanghe/m3u8-downloader/internal/manifest"
	"github.com/seppedelanghe/m3u8-downloader/internal/media"
)

// fetchResult holds the fully decoded frames of one segment, or the
// error that stopped it.
type fetchResult struct {
	index  int
	url    string
	frames []*media.Frame
	err    error
}

// fetchBatch decodes the segments in r concurrently, one goroutine per
// segment, and returns once every worker has finished. Results are
// positioned by manifest index so the drain can replay them in order.
func fetchBatch(ctx context.Context, opener SessionOpener, segments []manifest.Segment, r segmentRange) []fetchResult {
	results := make([]fetchResult, r.size())

	var wg sync.WaitGroup
	for i := r.start; i < r.end; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			frames, err := fetchSegment(ctx, opener, segments[index].URL)
			results[index-r.start] = fetchResult{
				index:  index,
				url:    segments[index].URL,
				frames: frames,
				err:    err,
			}
		}(i)
	}
	wg.Wait()

	return results
}

// fetchSegment decodes one segment to completion, buffering every frame.
func fetchSegment(ctx context.Context, opener SessionOpener, url string) ([]*media.Frame, error) {
	traceID := uuid.New()
	slog.Debug("pipeline: fetching segment", "trace_id", traceID, "url", url)

	session, err := opener.Open(url)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var frames []*media.Frame
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := session.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}

	slog.Debug("pipeline: segment fetched", "trace_id", traceID, "url", url, "frames", len(frames))
	return frames, nil
}
