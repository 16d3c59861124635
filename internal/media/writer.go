package media

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// finalizeTimeout bounds how long Close waits for the muxer to flush and
// finalize the container after end-of-stream.
const finalizeTimeout = 10 * time.Second

// Writer encodes raw RGB frames into a single media file.
//
// Pipeline: appsrc → videoconvert → encoder → muxer → filesink, with the
// encoder/muxer pair selected by the fourcc tag. Frames must match the
// StreamInfo the writer was opened with and must be written by a single
// goroutine. Close must be called to finalize the container; a file that
// was not closed is not guaranteed to be playable.
type Writer struct {
	path     string
	pipeline *gst.Pipeline
	src      *app.Source

	width    int
	height   int
	frameDur time.Duration
	pts      time.Duration
	written  uint64
	closed   bool
}

// OpenWriter opens the output sink at path, encoding with the codec
// selected by fourcc at the probed frame rate and dimensions.
func OpenWriter(path, fourcc string, info StreamInfo) (*Writer, error) {
	c, err := codecFor(fourcc)
	if err != nil {
		return nil, err
	}
	if info.FrameRate <= 0 || info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("media: invalid stream info %+v", info)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, &SinkError{Path: path, Err: err}
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, &SinkError{Path: path, Err: err}
	}
	src.SetProperty("is-live", false)
	// Block PushBuffer when the encoder falls behind instead of queueing
	// unbounded raw frames.
	src.SetProperty("block", true)
	src.SetProperty("format", int(gst.FormatTime))
	src.SetProperty("caps", gst.NewCapsFromString(rawVideoCaps(info)))

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, &SinkError{Path: path, Err: err}
	}
	encoder, err := gst.NewElement(c.encoder)
	if err != nil {
		return nil, &SinkError{Path: path, Err: fmt.Errorf("encoder %s unavailable: %w", c.encoder, err)}
	}
	muxer, err := gst.NewElement(c.muxer)
	if err != nil {
		return nil, &SinkError{Path: path, Err: fmt.Errorf("muxer %s unavailable: %w", c.muxer, err)}
	}
	filesink, err := gst.NewElement("filesink")
	if err != nil {
		return nil, &SinkError{Path: path, Err: err}
	}
	filesink.SetProperty("location", path)
	filesink.SetProperty("sync", false)

	pipeline.AddMany(src.Element, convert, encoder, muxer, filesink)

	if err := gst.ElementLinkMany(src.Element, convert, encoder, muxer, filesink); err != nil {
		return nil, &SinkError{Path: path, Err: fmt.Errorf("failed to link encode elements: %w", err)}
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, &SinkError{Path: path, Err: fmt.Errorf("failed to start encode pipeline: %w", err)}
	}

	slog.Info("media: output sink opened",
		"path", path,
		"fourcc", fourcc,
		"encoder", c.encoder,
		"muxer", c.muxer,
		"fps", info.FrameRate,
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
	)

	return &Writer{
		path:     path,
		pipeline: pipeline,
		src:      src,
		width:    info.Width,
		height:   info.Height,
		frameDur: info.FrameInterval(),
	}, nil
}

// WriteFrame pushes one frame into the encode pipeline.
func (w *Writer) WriteFrame(frame *Frame) error {
	if expected := w.width * w.height * 3; len(frame.Data) != expected {
		return &SinkError{
			Path: w.path,
			Err:  fmt.Errorf("frame size %d does not match %dx%d RGB (%d bytes)", len(frame.Data), w.width, w.height, expected),
		}
	}

	buffer := gst.NewBufferFromBytes(frame.Data)
	buffer.SetPresentationTimestamp(w.pts)
	buffer.SetDuration(w.frameDur)

	if ret := w.src.PushBuffer(buffer); ret != gst.FlowOK {
		return &SinkError{Path: w.path, Err: fmt.Errorf("appsrc push returned %v", ret)}
	}

	w.pts += w.frameDur
	w.written++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() uint64 { return w.written }

// Close sends end-of-stream, waits for the muxer to finalize the
// container and tears the pipeline down. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.pipeline.SetState(gst.StateNull)

	if ret := w.src.EndStream(); ret != gst.FlowOK {
		return &SinkError{Path: w.path, Err: fmt.Errorf("end-of-stream returned %v", ret)}
	}

	bus := w.pipeline.GetPipelineBus()
	deadline := time.Now().Add(finalizeTimeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("media: output finalized", "path", w.path, "frames", w.written)
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			return &SinkError{Path: w.path, Err: fmt.Errorf("encode pipeline error: %s", gerr.Error())}
		}
	}

	return &SinkError{Path: w.path, Err: fmt.Errorf("timed out finalizing output after %v", finalizeTimeout)}
}
