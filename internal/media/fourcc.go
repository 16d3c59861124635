package media

import (
	"fmt"
	"sort"
	"strings"
)

// codec maps a four-character codec tag to the GStreamer encoder and
// muxer elements used to produce the output container.
type codec struct {
	encoder string
	muxer   string
}

var codecs = map[string]codec{
	"mp4v": {encoder: "avenc_mpeg4", muxer: "mp4mux"},
	"avc1": {encoder: "x264enc", muxer: "mp4mux"},
	"h264": {encoder: "x264enc", muxer: "mp4mux"},
	"vp80": {encoder: "vp8enc", muxer: "webmmux"},
	"vp90": {encoder: "vp9enc", muxer: "webmmux"},
	"mjpg": {encoder: "jpegenc", muxer: "avimux"},
}

// codecFor resolves a fourcc tag to its encoder/muxer pair.
func codecFor(fourcc string) (codec, error) {
	if len(fourcc) != 4 {
		return codec{}, fmt.Errorf("media: fourcc must be exactly 4 characters, got %q", fourcc)
	}
	c, ok := codecs[strings.ToLower(fourcc)]
	if !ok {
		return codec{}, fmt.Errorf(
			"media: unsupported fourcc %q (supported: %s)",
			fourcc, strings.Join(SupportedFourCCs(), ", "),
		)
	}
	return c, nil
}

// ValidateFourCC reports whether the given codec tag is usable for the
// output sink. Intended for fail-fast checks before any network access.
func ValidateFourCC(fourcc string) error {
	_, err := codecFor(fourcc)
	return err
}

// SupportedFourCCs lists the known codec tags in stable order.
func SupportedFourCCs() []string {
	out := make([]string, 0, len(codecs))
	for tag := range codecs {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// rawVideoCaps builds the caps string describing the raw RGB frames
// exchanged with GStreamer pipelines.
func rawVideoCaps(info StreamInfo) string {
	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		info.Width, info.Height, info.FrameRate,
	)
}
