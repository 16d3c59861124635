// Package pipeline orchestrates a playlist download: load the manifest,
// probe the stream, then fetch segments in fixed-size parallel batches
// and drain them into the output sink in manifest order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/seppedelanghe/m3u8-downloader/internal/manifest"
	"github.com/seppedelanghe/m3u8-downloader/internal/media"
)

// defaultParallelism is the batch size used when none is configured.
const defaultParallelism = 4

// DecodeSession yields the ordered frames of a single segment.
type DecodeSession interface {
	// ReadFrame blocks for the next frame; returns io.EOF when exhausted.
	ReadFrame() (*media.Frame, error)
	// Info returns the negotiated stream parameters once known.
	Info() (media.StreamInfo, bool)
	Close() error
}

// SessionOpener opens decode sessions against segment URLs.
type SessionOpener interface {
	Open(url string) (DecodeSession, error)
}

// FrameSink consumes frames in playback order and produces the output file.
type FrameSink interface {
	WriteFrame(*media.Frame) error
	Close() error
}

// SinkOpener opens the output sink once the stream has been probed.
type SinkOpener interface {
	OpenSink(path, fourcc string, info media.StreamInfo) (FrameSink, error)
}

// Viewer displays frames as they are drained.
type Viewer interface {
	Show(*media.Frame) error
	Close() error
}

// ViewerOpener opens a live preview window. Only consulted when the
// preview is enabled.
type ViewerOpener interface {
	OpenViewer(info media.StreamInfo) (Viewer, error)
}

// ManifestLoader resolves a playlist URL into its segment list.
type ManifestLoader interface {
	Load(ctx context.Context, url string) ([]manifest.Segment, error)
}

// ProgressEvent reports per-batch progress for external observers.
type ProgressEvent struct {
	RunID         string `json:"run_id"`
	Batch         int    `json:"batch"`
	Batches       int    `json:"batches"`
	SegmentsDone  int    `json:"segments_done"`
	SegmentsTotal int    `json:"segments_total"`
	FramesWritten uint64 `json:"frames_written"`
}

// ProgressEmitter receives progress events. Emit must not block the
// download; emitters report their own delivery failures.
type ProgressEmitter interface {
	Emit(ProgressEvent)
}

// nopEmitter discards progress events.
type nopEmitter struct{}

func (nopEmitter) Emit(ProgressEvent) {}

// Config holds the parameters of one download run.
type Config struct {
	// ManifestURL is the playlist URL to download.
	ManifestURL string
	// OutputPath is where the assembled file is written. Must not exist.
	OutputPath string
	// FourCC selects the output codec tag.
	FourCC string
	// Parallelism is the batch size. Defaults to 4.
	Parallelism int
	// LivePreview displays frames in real time while downloading.
	LivePreview bool
	// RunID identifies this run in logs and progress events. A random
	// one is generated when empty.
	RunID string
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Loader  ManifestLoader
	Opener  SessionOpener
	Sink    SinkOpener
	Viewer  ViewerOpener
	Emitter ProgressEmitter
}

// Stats summarizes a completed run.
type Stats struct {
	Segments      int
	Batches       int
	FramesWritten uint64
	Elapsed       time.Duration
}

// Pipeline runs one playlist download end to end.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
}

// New validates the configuration and dependencies and returns a ready
// Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.ManifestURL == "" {
		return nil, fmt.Errorf("pipeline: manifest URL is required")
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("pipeline: output path is required")
	}
	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("pipeline: parallelism must be positive, got %d", cfg.Parallelism)
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}

	if deps.Loader == nil {
		return nil, fmt.Errorf("pipeline: manifest loader is required")
	}
	if deps.Opener == nil {
		return nil, fmt.Errorf("pipeline: session opener is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("pipeline: sink opener is required")
	}
	if cfg.LivePreview && deps.Viewer == nil {
		return nil, fmt.Errorf("pipeline: viewer is required when live preview is enabled")
	}
	if deps.Emitter == nil {
		deps.Emitter = nopEmitter{}
	}

	return &Pipeline{
		cfg:  cfg,
		deps: deps,
		log:  slog.Default().With("run_id", cfg.RunID),
	}, nil
}

// Run downloads the playlist and assembles the output file. On any
// segment, sink or preview failure the run aborts and the partial
// output is left for the caller to inspect or remove.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	started := time.Now()

	// Refuse to overwrite before touching the network.
	if _, err := os.Stat(p.cfg.OutputPath); err == nil {
		return Stats{}, &OutputExistsError{Path: p.cfg.OutputPath}
	} else if !os.IsNotExist(err) {
		return Stats{}, fmt.Errorf("pipeline: failed to stat output path %s: %w", p.cfg.OutputPath, err)
	}
	if dir := filepath.Dir(p.cfg.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Stats{}, fmt.Errorf("pipeline: failed to create output directory %s: %w", dir, err)
		}
	}

	segments, err := p.deps.Loader.Load(ctx, p.cfg.ManifestURL)
	if err != nil {
		return Stats{}, err
	}
	if len(segments) == 0 {
		return Stats{}, fmt.Errorf("pipeline: playlist %s contains no segments", p.cfg.ManifestURL)
	}

	info, err := probeStream(p.deps.Opener, segments[0].URL)
	if err != nil {
		return Stats{}, err
	}
	p.log.Info("pipeline: stream probed",
		"fps", info.FrameRate,
		"width", info.Width,
		"height", info.Height,
		"segments", len(segments),
	)

	sink, err := p.deps.Sink.OpenSink(p.cfg.OutputPath, p.cfg.FourCC, info)
	if err != nil {
		return Stats{}, err
	}
	sinkClosed := false
	defer func() {
		if !sinkClosed {
			sink.Close()
		}
	}()

	var viewer Viewer
	if p.cfg.LivePreview {
		viewer, err = p.deps.Viewer.OpenViewer(info)
		if err != nil {
			return Stats{}, fmt.Errorf("pipeline: failed to open preview: %w", err)
		}
		defer viewer.Close()
	}

	stats, err := p.runBatches(ctx, segments, info, sink, viewer)
	if err != nil {
		return Stats{}, err
	}

	// A close failure means the container was not finalized; the run did
	// not succeed.
	sinkClosed = true
	if err := sink.Close(); err != nil {
		return Stats{}, err
	}

	stats.Elapsed = time.Since(started)
	p.log.Info("pipeline: download complete",
		"segments", stats.Segments,
		"batches", stats.Batches,
		"frames", stats.FramesWritten,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// runBatches fetches segments batch by batch and drains each batch into
// the sink in manifest order before starting the next.
func (p *Pipeline) runBatches(
	ctx context.Context,
	segments []manifest.Segment,
	info media.StreamInfo,
	sink FrameSink,
	viewer Viewer,
) (Stats, error) {
	ranges := batchRanges(len(segments), p.cfg.Parallelism)
	stats := Stats{Segments: len(segments), Batches: len(ranges)}

	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("pipeline: run canceled: %w", err)
		}

		p.log.Debug("pipeline: fetching batch",
			"batch", i+1,
			"batches", len(ranges),
			"segments", r.size(),
		)

		results := fetchBatch(ctx, p.deps.Opener, segments, r)

		written, err := drainBatch(results, sink, viewer, info.FrameInterval())
		stats.FramesWritten += written
		if err != nil {
			return stats, err
		}

		p.log.Info("pipeline: batch complete",
			"batch", i+1,
			"batches", len(ranges),
			"segments_done", r.end,
			"segments_total", len(segments),
			"frames_written", stats.FramesWritten,
		)
		p.deps.Emitter.Emit(ProgressEvent{
			RunID:         p.cfg.RunID,
			Batch:         i + 1,
			Batches:       len(ranges),
			SegmentsDone:  r.end,
			SegmentsTotal: len(segments),
			FramesWritten: stats.FramesWritten,
		})
	}

	return stats, nil
}
