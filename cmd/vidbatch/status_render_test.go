package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("FFmpeg", statusOK, "/usr/bin/ffmpeg", false)
	if plain != "  FFmpeg:              [OK] /usr/bin/ffmpeg" {
		t.Fatalf("unexpected plain line %q", plain)
	}
	colored := renderStatusLine("FFmpeg", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
	if !strings.Contains(colored, "[ERROR]") {
		t.Fatalf("missing label: %q", colored)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderTablePadsRows(t *testing.T) {
	rendered := renderTable([]column{left("Name"), right("Size")}, [][]string{{"a.mp4"}, {"b.mp4", "2 kB", "extra"}})
	for _, want := range []string{"Name", "a.mp4", "b.mp4", "2 kB"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("table missing %q:\n%s", want, rendered)
		}
	}
	if strings.Contains(rendered, "NAME") {
		t.Fatalf("headers should keep their case:\n%s", rendered)
	}
	if strings.Contains(rendered, "extra") {
		t.Fatalf("extra cell rendered:\n%s", rendered)
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty table for no columns")
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(1500); got != "1.5 kB" {
		t.Fatalf("unexpected %q", got)
	}
	if got := formatBytes(-1); got != "-" {
		t.Fatalf("unexpected %q", got)
	}
}
