package logging

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestStreamHandler_WithAttrs(t *testing.T) {
	hub := NewStreamHub(0)

	base := slog.NewTextHandler(discardWriter{}, nil)
	handler := newStreamHandler(base, hub)

	logger := slog.New(handler).With(slog.String(FieldBatchID, "b-1"))
	logger.Info("test message", slog.String("extra", "value"), slog.String(FieldFileName, "a.mp4"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].BatchID != "b-1" {
		t.Errorf("expected batch_id=b-1, got %q", events[0].BatchID)
	}
	if events[0].File != "a.mp4" {
		t.Errorf("expected file=a.mp4, got %q", events[0].File)
	}
	if events[0].Fields["extra"] != "value" {
		t.Errorf("expected extra field, got %v", events[0].Fields)
	}
	if events[0].Level != "INFO" {
		t.Errorf("expected INFO level, got %q", events[0].Level)
	}
}

func TestStreamHandler_CallSiteOverridesWithAttrs(t *testing.T) {
	hub := NewStreamHub(0)
	base := slog.NewTextHandler(discardWriter{}, nil)
	logger := slog.New(newStreamHandler(base, hub)).With(slog.String(FieldComponent, "original"))

	logger.Info("message", slog.String(FieldComponent, "overridden"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Component != "overridden" {
		t.Errorf("expected component='overridden', got %q", events[0].Component)
	}
}

func TestStreamHandler_NilHub(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if handler := newStreamHandler(base, nil); handler != base {
		t.Errorf("expected base handler when hub is nil")
	}
}

func TestStreamHandler_Enabled(t *testing.T) {
	hub := NewStreamHub(0)
	base := slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := newStreamHandler(base, hub)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected INFO to be disabled when base level is WARN")
	}
	if !handler.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected WARN to be enabled when base level is WARN")
	}
}

func TestStreamHubTailKeepsEverything(t *testing.T) {
	hub := NewStreamHub(0)
	for i := 1; i <= 100; i++ {
		hub.Publish(LogEvent{Message: fmt.Sprintf("line %d", i)})
	}

	tail, next := hub.Tail(0)
	if len(tail) != DefaultTailSize {
		t.Fatalf("expected default window of %d, got %d", DefaultTailSize, len(tail))
	}
	if tail[0].Message != "line 71" || tail[len(tail)-1].Message != "line 100" {
		t.Fatalf("unexpected window bounds: %q .. %q", tail[0].Message, tail[len(tail)-1].Message)
	}
	if next != 100 {
		t.Fatalf("expected next sequence 100, got %d", next)
	}
	all, _ := hub.Tail(500)
	if len(all) != 100 {
		t.Fatalf("expected 100 events for large limit, got %d", len(all))
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(5)
	for i := 1; i <= 8; i++ {
		hub.Publish(LogEvent{Message: fmt.Sprintf("line %d", i)})
	}

	events, next, err := hub.Fetch(context.Background(), 6, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 7 || events[1].Sequence != 8 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if next != 8 {
		t.Fatalf("expected next 8, got %d", next)
	}

	events, _, _ = hub.Fetch(context.Background(), 8, 0, false)
	if len(events) != 0 {
		t.Fatalf("expected no new events, got %d", len(events))
	}
}

func TestStreamHubFetchWaitsForPublish(t *testing.T) {
	hub := NewStreamHub(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "late"})
	}()

	events, _, err := hub.Fetch(ctx, 0, 10, true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Message != "late" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStreamHubFetchWaitHonorsCancel(t *testing.T) {
	hub := NewStreamHub(0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, _, err := hub.Fetch(ctx, 0, 10, true); err == nil {
		t.Fatal("expected context error")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
