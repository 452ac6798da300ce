package chunking

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestPlanWindows(t *testing.T) {
	c := NewChunker(DefaultConfig())

	windows, err := c.Plan(125, 30, 5)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	expected := []Window{
		{0, 35},
		{30, 65},
		{60, 95},
		{90, 120},
		{120, 125},
	}
	if len(windows) != len(expected) {
		t.Fatalf("Expected %d windows, got %d: %v", len(expected), len(windows), windows)
	}
	for i, w := range windows {
		if math.Abs(w.Start-expected[i].Start) > 1e-9 || math.Abs(w.End-expected[i].End) > 1e-9 {
			t.Errorf("Window %d: expected [%.0f, %.0f], got [%.2f, %.2f]", i, expected[i].Start, expected[i].End, w.Start, w.End)
		}
	}
}

// A zero overlap means the configured default, so callers that leave the
// field unset still get overlapping windows.
func TestPlanZeroOverlapUsesDefault(t *testing.T) {
	c := NewChunker(DefaultConfig())

	windows, err := c.Plan(125, 30, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(windows) == 0 {
		t.Fatal("Expected windows, got none")
	}
	if windows[0].Start != 0 || windows[0].End != 35 {
		t.Errorf("Expected first window [0, 35], got [%.2f, %.2f]", windows[0].Start, windows[0].End)
	}
}

func TestPlanNegativeOverlapDisables(t *testing.T) {
	c := NewChunker(DefaultConfig())

	windows, err := c.Plan(90, 30, -1)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d: %v", len(windows), windows)
	}
	for i, w := range windows {
		if w.End-w.Start != 30 {
			t.Errorf("Window %d: expected no lookahead, got [%.2f, %.2f]", i, w.Start, w.End)
		}
	}
}

func TestPlanShortAudio(t *testing.T) {
	c := NewChunker(DefaultConfig())

	windows, err := c.Plan(20, 30, 5)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].Start != 0 || windows[0].End != 20 {
		t.Errorf("Expected [0, 20], got [%.2f, %.2f]", windows[0].Start, windows[0].End)
	}
}

func TestPlanExactMultiple(t *testing.T) {
	c := NewChunker(DefaultConfig())

	windows, err := c.Plan(60, 30, 5)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("Expected 2 windows, got %d: %v", len(windows), windows)
	}
	// The last window ends at the source end with no lookahead past it
	if windows[1].End != 60 {
		t.Errorf("Expected last window to end at 60, got %.2f", windows[1].End)
	}
}

// Every window starts on the chunk grid and the windows jointly cover the
// whole source with no holes.
func TestPlanCoversSource(t *testing.T) {
	c := NewChunker(DefaultConfig())

	for _, total := range []float64{7.3, 30, 31, 65, 125, 600, 3599.5} {
		windows, err := c.Plan(total, 30, 5)
		if err != nil {
			t.Fatalf("Plan(%v) failed: %v", total, err)
		}
		if windows[0].Start != 0 {
			t.Errorf("total=%v: first window starts at %.2f", total, windows[0].Start)
		}
		for i, w := range windows {
			if w.Start != float64(i)*30 {
				t.Errorf("total=%v: window %d starts at %.2f, want %d", total, i, w.Start, i*30)
			}
			if i > 0 && w.Start > windows[i-1].End {
				t.Errorf("total=%v: hole between window %d (end %.2f) and %d (start %.2f)", total, i-1, windows[i-1].End, i, w.Start)
			}
		}
		if last := windows[len(windows)-1]; last.End != total {
			t.Errorf("total=%v: last window ends at %.2f", total, last.End)
		}
	}
}

func TestPlanDurationCeiling(t *testing.T) {
	c := NewChunker(DefaultConfig())

	_, err := c.Plan(7201, 60, 5)
	var ue *UnsupportedDurationError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UnsupportedDurationError, got %v", err)
	}
	if ue.Duration != 7201 {
		t.Errorf("Expected duration 7201 in error, got %v", ue.Duration)
	}
}

func TestPlanSegmentCeiling(t *testing.T) {
	c := NewChunker(DefaultConfig())

	// 7000s at 30s chunks needs 234 segments, over the 150 ceiling
	_, err := c.Plan(7000, 30, 5)
	var ue *UnsupportedDurationError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UnsupportedDurationError, got %v", err)
	}
	if ue.Segments != 234 {
		t.Errorf("Expected 234 segments in error, got %d", ue.Segments)
	}
}

func TestEstimateDuration(t *testing.T) {
	dir := t.TempDir()

	wavPath := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(wavPath, make([]byte, 320000), 0644); err != nil {
		t.Fatal(err)
	}
	if got := estimateDuration(wavPath); math.Abs(got-10) > 1e-9 {
		t.Errorf("wav estimate: expected 10s, got %.2f", got)
	}

	mp3Path := filepath.Join(dir, "audio.mp3")
	if err := os.WriteFile(mp3Path, make([]byte, 160000), 0644); err != nil {
		t.Fatal(err)
	}
	if got := estimateDuration(mp3Path); math.Abs(got-10) > 1e-9 {
		t.Errorf("mp3 estimate: expected 10s, got %.2f", got)
	}

	if got := estimateDuration(filepath.Join(dir, "missing.wav")); got != 0 {
		t.Errorf("missing file: expected 0, got %.2f", got)
	}
}

func TestSnapToEdge(t *testing.T) {
	edges := []float64{10.0, 29.2, 31.5, 58.9}

	if got := snapToEdge(30, edges, 2.0); got != 29.2 {
		t.Errorf("Expected snap to 29.2, got %.2f", got)
	}
	if got := snapToEdge(60, edges, 2.0); got != 58.9 {
		t.Errorf("Expected snap to 58.9, got %.2f", got)
	}
	// No edge within the window keeps the grid point
	if got := snapToEdge(45, edges, 2.0); got != 45 {
		t.Errorf("Expected no snap, got %.2f", got)
	}
	if got := snapToEdge(30, nil, 2.0); got != 30 {
		t.Errorf("Expected no snap with no edges, got %.2f", got)
	}
}

func TestBoundaryDoesNotCrossGrid(t *testing.T) {
	c := NewChunker(DefaultConfig())

	// An edge further than half a chunk from the grid point is ignored
	edges := []float64{46.0}
	c.cfg.SnapWindow = 20
	if got := c.boundary(1, 30, edges, 120); got != 30 {
		t.Errorf("Expected grid point 30, got %.2f", got)
	}

	// Segment 0 always starts at zero
	if got := c.boundary(0, 30, edges, 120); got != 0 {
		t.Errorf("Expected 0, got %.2f", got)
	}
}

// TestRunEmitsSegments exercises the full extraction path against a real
// generated source. Requires ffmpeg.
func TestRunEmitsSegments(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "tone.wav")

	// 75 seconds of a 440Hz tone at 16kHz mono
	cmd := exec.Command("ffmpeg",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=75",
		"-ar", "16000", "-ac", "1", "-y", src,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to generate test audio: %v\n%s", err, out)
	}

	c := NewChunker(DefaultConfig())
	var segments []Segment
	count, err := c.Run(context.Background(), Request{
		AudioPath:     src,
		WorkDir:       filepath.Join(dir, "chunks"),
		ChunkDuration: 30,
		Overlap:       5,
	}, func(seg Segment) error {
		segments = append(segments, seg)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 75s at 30s chunks: [0,35], [30,65], [60,75]
	if count != 3 || len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got count=%d len=%d", count, len(segments))
	}
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("Segment %d has index %d", i, seg.Index)
		}
		if _, err := os.Stat(seg.Path); err != nil {
			t.Errorf("Segment %d chunk file missing: %v", i, err)
		}
		if i > 0 && seg.Overlap <= 0 {
			t.Errorf("Segment %d has no overlap", i)
		}
	}
	if last := segments[2]; math.Abs(last.End-75) > 0.5 {
		t.Errorf("Last segment ends at %.2f, want ~75", last.End)
	}
}

func TestRunUnknownSource(t *testing.T) {
	c := NewChunker(DefaultConfig())
	_, err := c.Run(context.Background(), Request{
		AudioPath: filepath.Join(t.TempDir(), "missing.wav"),
		WorkDir:   t.TempDir(),
	}, func(Segment) error { return nil })
	if err == nil {
		t.Fatal("Expected error for missing source")
	}
}
