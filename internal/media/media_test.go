package media

import (
	"strings"
	"testing"
	"time"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		fourcc      string
		wantEncoder string
		wantMuxer   string
		wantErr     bool
	}{
		{fourcc: "mp4v", wantEncoder: "avenc_mpeg4", wantMuxer: "mp4mux"},
		{fourcc: "MP4V", wantEncoder: "avenc_mpeg4", wantMuxer: "mp4mux"},
		{fourcc: "avc1", wantEncoder: "x264enc", wantMuxer: "mp4mux"},
		{fourcc: "vp80", wantEncoder: "vp8enc", wantMuxer: "webmmux"},
		{fourcc: "mjpg", wantEncoder: "jpegenc", wantMuxer: "avimux"},
		{fourcc: "zzzz", wantErr: true},
		{fourcc: "mp4", wantErr: true},
		{fourcc: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.fourcc, func(t *testing.T) {
			c, err := codecFor(tt.fourcc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("codecFor(%q) succeeded, want error", tt.fourcc)
				}
				return
			}
			if err != nil {
				t.Fatalf("codecFor(%q) failed: %v", tt.fourcc, err)
			}
			if c.encoder != tt.wantEncoder || c.muxer != tt.wantMuxer {
				t.Errorf("codecFor(%q) = %s/%s, want %s/%s",
					tt.fourcc, c.encoder, c.muxer, tt.wantEncoder, tt.wantMuxer)
			}
		})
	}
}

func TestValidateFourCCErrorListsSupported(t *testing.T) {
	err := ValidateFourCC("zzzz")
	if err == nil {
		t.Fatal("expected error for unknown fourcc")
	}
	for _, tag := range SupportedFourCCs() {
		if !strings.Contains(err.Error(), tag) {
			t.Errorf("error message missing supported tag %q: %v", tag, err)
		}
	}
}

func TestRawVideoCaps(t *testing.T) {
	got := rawVideoCaps(StreamInfo{FrameRate: 30, Width: 1280, Height: 720})
	want := "video/x-raw,format=RGB,width=1280,height=720,framerate=30/1"
	if got != want {
		t.Errorf("rawVideoCaps = %q, want %q", got, want)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"30/1", 30},
		{"6/1", 6},
		{"30000/1001", 29},
		{"25", 25},
		{"0/1", 0},
		{"30/0", 0},
		{"garbage", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.in); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFrameInterval(t *testing.T) {
	if got := (StreamInfo{FrameRate: 25}).FrameInterval(); got != 40*time.Millisecond {
		t.Errorf("FrameInterval(25fps) = %v, want 40ms", got)
	}
	if got := (StreamInfo{}).FrameInterval(); got != 0 {
		t.Errorf("FrameInterval(unknown) = %v, want 0", got)
	}
}
