package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/seppedelanghe/m3u8-downloader/internal/media"
)

// defaultFrameRate is assumed when the first segment does not advertise
// a frame rate in its caps.
const defaultFrameRate = 25

// probeStream opens the first segment, decodes a single frame and
// returns the negotiated stream parameters. Every later segment is
// assumed to share them.
func probeStream(opener SessionOpener, url string) (media.StreamInfo, error) {
	session, err := opener.Open(url)
	if err != nil {
		return media.StreamInfo{}, &media.ProbeError{URL: url, Err: err}
	}
	defer session.Close()

	if _, err := session.ReadFrame(); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("no frame available")
		}
		return media.StreamInfo{}, &media.ProbeError{URL: url, Err: err}
	}

	info, ok := session.Info()
	if !ok || info.Width <= 0 || info.Height <= 0 {
		return media.StreamInfo{}, &media.ProbeError{
			URL: url,
			Err: fmt.Errorf("stream parameters not negotiated"),
		}
	}

	if info.FrameRate <= 0 {
		slog.Warn("pipeline: stream does not advertise a frame rate, assuming default",
			"url", url,
			"fps", defaultFrameRate,
		)
		info.FrameRate = defaultFrameRate
	}

	return info, nil
}
