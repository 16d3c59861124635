package pipeline

import (
	"time"
)

// drainBatch writes the frames of a fetched batch to the sink in
// manifest order. Returns the number of frames written, which is valid
// even on error.
//
// When a viewer is attached, frames are paced at the stream's real-time
// interval so the preview plays at natural speed. Without a viewer the
// drain runs as fast as the sink accepts.
func drainBatch(results []fetchResult, sink FrameSink, viewer Viewer, interval time.Duration) (uint64, error) {
	var written uint64

	for i := range results {
		res := &results[i]
		if res.err != nil {
			return written, &SegmentError{Index: res.index, URL: res.url, Err: res.err}
		}

		for _, frame := range res.frames {
			start := time.Now()

			if err := sink.WriteFrame(frame); err != nil {
				return written, err
			}
			written++

			if viewer != nil {
				if err := viewer.Show(frame); err != nil {
					return written, err
				}
				if remaining := interval - time.Since(start); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}

		// Frames are handed off one batch at a time; release the buffer
		// before the next batch is fetched.
		res.frames = nil
	}

	return written, nil
}
