// Package preview renders frames to a local window while a download is
// in progress.
package preview

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/seppedelanghe/m3u8-downloader/internal/media"
)

// Window displays raw RGB frames in a native video window.
//
// Pipeline: appsrc → videoconvert → autovideosink. Frames are shown as
// they arrive; the caller is responsible for pacing, so the sink runs
// unsynchronized.
type Window struct {
	pipeline *gst.Pipeline
	src      *app.Source

	width  int
	height int
	closed bool
}

// Open creates and shows a preview window for the given stream.
func Open(info media.StreamInfo) (*Window, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("preview: invalid stream info %+v", info)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("preview: failed to create pipeline: %w", err)
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, fmt.Errorf("preview: failed to create appsrc: %w", err)
	}
	src.SetProperty("is-live", true)
	src.SetProperty("do-timestamp", true)
	src.SetProperty("format", int(gst.FormatTime))
	src.SetProperty("caps", gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		info.Width, info.Height, info.FrameRate,
	)))

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("preview: failed to create videoconvert: %w", err)
	}

	sink, err := gst.NewElement("autovideosink")
	if err != nil {
		return nil, fmt.Errorf("preview: failed to create video sink: %w", err)
	}
	sink.SetProperty("sync", false)

	pipeline.AddMany(src.Element, convert, sink)

	if err := gst.ElementLinkMany(src.Element, convert, sink); err != nil {
		return nil, fmt.Errorf("preview: failed to link elements: %w", err)
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("preview: failed to open window: %w", err)
	}

	slog.Debug("preview: window opened", "width", info.Width, "height", info.Height)
	return &Window{
		pipeline: pipeline,
		src:      src,
		width:    info.Width,
		height:   info.Height,
	}, nil
}

// Show pushes one frame to the window.
func (w *Window) Show(frame *media.Frame) error {
	if expected := w.width * w.height * 3; len(frame.Data) != expected {
		return fmt.Errorf("preview: frame size %d does not match %dx%d RGB", len(frame.Data), w.width, w.height)
	}

	buffer := gst.NewBufferFromBytes(frame.Data)
	if ret := w.src.PushBuffer(buffer); ret != gst.FlowOK {
		return fmt.Errorf("preview: push returned %v", ret)
	}
	return nil
}

// Close tears down the window. Idempotent.
func (w *Window) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.src.EndStream()
	w.pipeline.SetState(gst.StateNull)
	slog.Debug("preview: window closed")
	return nil
}
