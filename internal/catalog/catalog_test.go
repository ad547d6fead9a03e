package catalog

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00"},
		{59.99, "00:00:59"},
		{61, "00:01:01"},
		{3725.7, "01:02:05"},
		{36000, "10:00:00"},
		{-1, UnknownDuration},
		{math.NaN(), UnknownDuration},
		{math.Inf(1), UnknownDuration},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestStatusOnlyMovesForward(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDiscovered, StatusProbing, true},
		{StatusProbing, StatusReady, true},
		{StatusProbing, StatusProbeFailed, true},
		{StatusReady, StatusError, true},
		{StatusProbeFailed, StatusError, true},
		{StatusDiscovered, StatusError, true},
		{StatusProbing, StatusDiscovered, false},
		{StatusReady, StatusProbing, false},
		{StatusReady, StatusProbeFailed, false},
		{StatusProbeFailed, StatusReady, false},
		{StatusError, StatusReady, false},
		{StatusReady, StatusReady, false},
		{Status("bogus"), StatusReady, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestReplaceAssignsIDsAndKeepsOrder(t *testing.T) {
	c := New()
	stored := c.Replace([]SourceFile{{Name: "b.mp4", Path: "/v/b.mp4"}, {Name: "a.mp4", Path: "/v/a.mp4"}})
	if len(stored) != 2 {
		t.Fatalf("expected 2 files, got %d", len(stored))
	}
	if stored[0].ID == "" || stored[0].ID == stored[1].ID {
		t.Fatalf("expected distinct ids, got %q %q", stored[0].ID, stored[1].ID)
	}
	if stored[0].Status != StatusDiscovered {
		t.Fatalf("expected discovered status, got %s", stored[0].Status)
	}
	snap := c.Snapshot()
	if snap[0].Name != "b.mp4" || snap[1].Name != "a.mp4" {
		t.Fatalf("expected order preserved, got %v", snap)
	}

	c.Replace(nil)
	if c.Len() != 0 {
		t.Fatalf("expected empty catalog after replace, got %d", c.Len())
	}
	if _, ok := c.Get(stored[0].ID); ok {
		t.Fatal("expected replaced entry to be gone")
	}
}

func TestAdvanceGuardsIdentityAndTransitions(t *testing.T) {
	c := New()
	stored := c.Replace([]SourceFile{{Name: "a.mp4", Path: "/v/a.mp4"}})
	id := stored[0].ID

	err := c.Advance(id, StatusProbing, func(f *SourceFile) {
		f.Path = "/elsewhere.mp4"
		f.ID = "hijack"
		f.Width = 1280
	})
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	got, _ := c.Get(id)
	if got.Path != "/v/a.mp4" || got.ID != id {
		t.Fatalf("identity changed: %+v", got)
	}
	if got.Width != 1280 || got.Status != StatusProbing {
		t.Fatalf("mutation not applied: %+v", got)
	}

	if err := c.Advance(id, StatusDiscovered, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := c.Advance("missing", StatusReady, nil); !errors.Is(err, ErrUnknownFile) {
		t.Fatalf("expected unknown file, got %v", err)
	}
}

func TestConcurrentAdvanceIsSafe(t *testing.T) {
	c := New()
	files := make([]SourceFile, 50)
	for i := range files {
		files[i] = SourceFile{Name: fmt.Sprintf("f%02d.mp4", i), Path: fmt.Sprintf("/v/f%02d.mp4", i)}
	}
	stored := c.Replace(files)

	var wg sync.WaitGroup
	for _, file := range stored {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = c.Advance(id, StatusProbing, nil)
			_ = c.Advance(id, StatusReady, func(f *SourceFile) { f.Duration = "00:00:01" })
		}(file.ID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	counts := c.Counts()
	if counts[StatusReady] != len(files) {
		t.Fatalf("expected all files ready, got %v", counts)
	}
}

func TestResolution(t *testing.T) {
	if got := (SourceFile{Width: 1920, Height: 1080}).Resolution(); got != "1920x1080" {
		t.Fatalf("unexpected resolution %q", got)
	}
	if got := (SourceFile{}).Resolution(); got != "" {
		t.Fatalf("expected empty resolution, got %q", got)
	}
}

func TestAppendKeepsExistingEntries(t *testing.T) {
	cat := New()
	stored := cat.Replace([]SourceFile{{Name: "a.mp4", Path: "/v/a.mp4"}})

	added, err := cat.Append(SourceFile{Name: "b.mp4", Path: "/v/uploads/b.mp4"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(added) != 1 || added[0].ID == "" || added[0].Status != StatusDiscovered {
		t.Fatalf("unexpected appended entry %+v", added)
	}
	snapshot := cat.Snapshot()
	if len(snapshot) != 2 || snapshot[0].ID != stored[0].ID || snapshot[1].ID != added[0].ID {
		t.Fatalf("unexpected order after append: %+v", snapshot)
	}
	if err := cat.Advance(added[0].ID, StatusProbing, nil); err != nil {
		t.Fatalf("Advance appended entry: %v", err)
	}

	if _, err := cat.Append(SourceFile{ID: stored[0].ID, Name: "dup.mp4"}); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
	if cat.Len() != 2 {
		t.Fatalf("rejected append changed catalog: %d entries", cat.Len())
	}
}
