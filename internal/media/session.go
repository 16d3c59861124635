package media

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// busPollInterval is how often the bus watcher checks for shutdown
// between message polls.
const busPollInterval = 100 * time.Millisecond

// Session decodes one media URL into an ordered, finite, non-restartable
// sequence of raw RGB frames.
//
// Pipeline: uridecodebin → videoconvert → capsfilter(RGB) → appsink.
// Frames are pulled synchronously; the appsink queue is bounded so the
// decoder blocks rather than buffering an entire segment ahead of the
// reader.
//
// ReadFrame must be called from a single goroutine. Close is idempotent
// and releases the pipeline on every path.
type Session struct {
	url      string
	pipeline *gst.Pipeline
	sink     *app.Sink

	info      StreamInfo
	infoKnown bool
	seq       uint64

	mu      sync.Mutex
	failure error
	closed  bool

	stopWatch chan struct{}
	watcher   sync.WaitGroup
}

// OpenSession opens a decode session against the given segment URL and
// starts the underlying pipeline.
func OpenSession(url string) (*Session, error) {
	if url == "" {
		return nil, fmt.Errorf("media: segment URL is required")
	}

	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("media: failed to create decode pipeline: %w", err)
	}

	src, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, fmt.Errorf("media: failed to create uridecodebin: %w", err)
	}
	src.SetProperty("uri", url)

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("media: failed to create videoconvert: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("media: failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=RGB"))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("media: failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	// Bounded queue: the decoder blocks when the reader falls behind
	// instead of buffering the whole segment twice.
	appsink.SetProperty("max-buffers", 16)

	pipeline.AddMany(src, convert, capsfilter, appsink.Element)

	if err := gst.ElementLinkMany(convert, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("media: failed to link decode elements: %w", err)
	}

	// uridecodebin exposes its pads only after stream discovery; link the
	// first video pad when it appears and ignore everything else (audio).
	src.Connect("pad-added", func(self *gst.Element, pad *gst.Pad) {
		caps := pad.GetCurrentCaps()
		if caps == nil || caps.GetSize() == 0 {
			return
		}
		if name := caps.GetStructureAt(0).Name(); len(name) < 5 || name[:5] != "video" {
			slog.Debug("media: ignoring non-video pad", "url", url, "caps", name)
			return
		}

		sinkPad := convert.GetStaticPad("sink")
		if sinkPad == nil {
			slog.Error("media: failed to get videoconvert sink pad", "url", url)
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			slog.Error("media: failed to link decode pad",
				"url", url,
				"pad", pad.GetName(),
				"ret", ret,
			)
		}
	})

	s := &Session{
		url:       url,
		pipeline:  pipeline,
		sink:      appsink,
		stopWatch: make(chan struct{}),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("media: failed to start decode session for %s: %w", url, err)
	}

	s.watcher.Add(1)
	go s.watchBus()

	slog.Debug("media: decode session opened", "url", url)
	return s, nil
}

// ReadFrame blocks until the next decoded frame is available.
// Returns io.EOF when the segment is exhausted.
func (s *Session) ReadFrame() (*Frame, error) {
	sample := s.sink.PullSample()
	if sample == nil {
		if err := s.err(); err != nil {
			return nil, err
		}
		if s.sink.IsEOS() {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("media: decode session for %s ended without EOS", s.url)
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil, fmt.Errorf("media: sample without buffer from %s", s.url)
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return nil, fmt.Errorf("media: empty buffer from %s", s.url)
	}

	// Copy out: GStreamer reuses the buffer after Unmap.
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	if !s.infoKnown {
		s.captureInfo()
	}

	s.seq++
	return &Frame{
		Seq:    s.seq,
		Width:  s.info.Width,
		Height: s.info.Height,
		Data:   frameData,
	}, nil
}

// Info returns the negotiated stream parameters. Valid after the first
// successful ReadFrame.
func (s *Session) Info() (StreamInfo, bool) {
	return s.info, s.infoKnown
}

// Close tears down the pipeline. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopWatch)
	s.pipeline.SetState(gst.StateNull)
	s.watcher.Wait()

	slog.Debug("media: decode session closed", "url", s.url, "frames", s.seq)
	return nil
}

// captureInfo reads the negotiated caps off the appsink pad.
func (s *Session) captureInfo() {
	pad := s.sink.Element.GetStaticPad("sink")
	if pad == nil {
		return
	}
	caps := pad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return
	}
	structure := caps.GetStructureAt(0)

	if val, err := structure.GetValue("width"); err == nil {
		if width, ok := val.(int); ok {
			s.info.Width = width
		}
	}
	if val, err := structure.GetValue("height"); err == nil {
		if height, ok := val.(int); ok {
			s.info.Height = height
		}
	}
	if val, err := structure.GetValue("framerate"); err == nil {
		s.info.FrameRate = parseFrameRate(fmt.Sprintf("%v", val))
	}

	s.infoKnown = true
}

// err returns the recorded pipeline failure, if any.
func (s *Session) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// watchBus monitors the pipeline bus. On error it records the failure and
// nulls the pipeline so a blocked PullSample unblocks.
func (s *Session) watchBus() {
	defer s.watcher.Done()

	bus := s.pipeline.GetPipelineBus()
	for {
		select {
		case <-s.stopWatch:
			return
		default:
			msg := bus.TimedPop(busPollInterval)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Debug("media: end of segment", "url", s.url)
				return

			case gst.MessageError:
				gerr := msg.ParseError()
				s.mu.Lock()
				if s.failure == nil {
					s.failure = fmt.Errorf("media: decode failed for %s: %s", s.url, gerr.Error())
				}
				s.mu.Unlock()

				slog.Error("media: decode pipeline error",
					"url", s.url,
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
				)

				// Unblock any pending PullSample.
				s.pipeline.SetState(gst.StateNull)
				return
			}
		}
	}
}

// parseFrameRate converts a caps framerate fraction to integer FPS.
// Examples: "30/1" → 30, "30000/1001" → 29, "25" → 25.
func parseFrameRate(framerate string) int {
	var numerator, denominator int
	if _, err := fmt.Sscanf(framerate, "%d/%d", &numerator, &denominator); err == nil {
		if denominator > 0 {
			return numerator / denominator
		}
		return 0
	}

	var fps int
	if _, err := fmt.Sscanf(framerate, "%d", &fps); err == nil {
		return fps
	}
	return 0
}
