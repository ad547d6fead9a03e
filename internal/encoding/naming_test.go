package encoding_test

import (
	"os"
	"path/filepath"
	"testing"

	"vidbatch/internal/encoding"
)

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"/videos/holiday.mov":      "holiday_720p_30fps.mp4",
		"/videos/my: clip?.MKV":    "my- clip_720p_30fps.mp4",
		"/videos/archive.tar.webm": "archive.tar_720p_30fps.mp4",
		"/videos/Cafe\u0301.mp4":   "Caf\u00e9_720p_30fps.mp4",
		"/videos/.mp4":             "video_720p_30fps.mp4",
	}
	for input, want := range cases {
		if got := encoding.OutputName(input, encoding.Target{Resolution: 720, FPS: 30}); got != want {
			t.Fatalf("OutputName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestUniqueOutputPathAddsCounterSuffix(t *testing.T) {
	dir := t.TempDir()

	first, err := encoding.UniqueOutputPath(dir, "clip_720p_30fps.mp4")
	if err != nil {
		t.Fatalf("UniqueOutputPath: %v", err)
	}
	if first != filepath.Join(dir, "clip_720p_30fps.mp4") {
		t.Fatalf("unexpected first path %q", first)
	}

	for _, name := range []string{"clip_720p_30fps.mp4", "clip_720p_30fps_1.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	next, err := encoding.UniqueOutputPath(dir, "clip_720p_30fps.mp4")
	if err != nil {
		t.Fatalf("UniqueOutputPath: %v", err)
	}
	if next != filepath.Join(dir, "clip_720p_30fps_2.mp4") {
		t.Fatalf("expected _2 suffix, got %q", next)
	}
}
