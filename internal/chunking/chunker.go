package chunking

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Segment is a time-bounded slice of the source audio. Immutable once
// emitted; Overlap is the leading duplication against the previous segment.
type Segment struct {
	Index   int
	Start   float64 // seconds in source
	End     float64
	Overlap float64 // seconds duplicated from previous segment
	Path    string  // extracted 16kHz mono WAV chunk file
}

// Window is a planned [Start, End) time range before extraction.
type Window struct {
	Start float64
	End   float64
}

// Config holds segmentation parameters.
type Config struct {
	ChunkDuration float64 // target seconds per segment before overlap
	Overlap       float64 // seconds carried into the next segment
	MaxSegments   int     // hard ceiling on segment count
	MaxDuration   float64 // hard ceiling on source duration (seconds)
	SampleRate    int     // chunk file sample rate
	SnapWindow    float64 // max seconds a cut may move to a silence edge
	Silence       *SilenceConfig // nil disables silence-aligned cuts
}

// DefaultConfig returns the default segmentation configuration.
func DefaultConfig() *Config {
	return &Config{
		ChunkDuration: 30.0,
		Overlap:       5.0,
		MaxSegments:   150,
		MaxDuration:   7200.0,
		SampleRate:    16000,
		SnapWindow:    2.0,
	}
}

// UnsupportedDurationError is returned when the source exceeds the
// supported segment count or duration ceiling.
type UnsupportedDurationError struct {
	Duration    float64
	Segments    int
	MaxSegments int
	MaxDuration float64
}

func (e *UnsupportedDurationError) Error() string {
	if e.MaxDuration > 0 && e.Duration > e.MaxDuration {
		return fmt.Sprintf("audio duration %.0fs exceeds supported maximum %.0fs", e.Duration, e.MaxDuration)
	}
	return fmt.Sprintf("audio requires %d segments, more than the supported %d", e.Segments, e.MaxSegments)
}

// Request carries per-job segmentation parameters.
type Request struct {
	AudioPath     string
	WorkDir       string  // directory for chunk files
	ChunkDuration float64 // 0 uses config default
	Overlap       float64 // 0 uses config default, negative disables overlap
}

// Chunker splits audio sources into overlapping segments.
type Chunker struct {
	cfg *Config
}

// NewChunker creates a chunker with the given configuration.
func NewChunker(cfg *Config) *Chunker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Chunker{cfg: cfg}
}

// Plan computes the segment windows for a source of known duration.
// Each window spans one chunk duration plus the overlap lookahead, except
// where the lookahead would reach the end of the source. A zero overlap
// selects the configured default; pass a negative value to disable overlap.
func (c *Chunker) Plan(total, chunkDur, overlap float64) ([]Window, error) {
	if chunkDur <= 0 {
		chunkDur = c.cfg.ChunkDuration
	}
	if overlap == 0 {
		overlap = c.cfg.Overlap
	} else if overlap < 0 {
		overlap = 0
	}
	if total <= 0 {
		return nil, fmt.Errorf("non-positive audio duration: %.2fs", total)
	}
	if err := c.checkCeilings(total, chunkDur); err != nil {
		return nil, err
	}

	var windows []Window
	for start := 0.0; start < total; start += chunkDur {
		end := math.Min(start+chunkDur, total)
		if end+overlap < total {
			end += overlap
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows, nil
}

func (c *Chunker) checkCeilings(total, chunkDur float64) error {
	if c.cfg.MaxDuration > 0 && total > c.cfg.MaxDuration {
		return &UnsupportedDurationError{Duration: total, MaxDuration: c.cfg.MaxDuration, MaxSegments: c.cfg.MaxSegments}
	}
	segments := int(math.Ceil(total / chunkDur))
	if c.cfg.MaxSegments > 0 && segments > c.cfg.MaxSegments {
		return &UnsupportedDurationError{Duration: total, Segments: segments, MaxSegments: c.cfg.MaxSegments, MaxDuration: c.cfg.MaxDuration}
	}
	return nil
}

// Run segments the source and emits each segment as soon as its chunk file
// is written, so transcription can start before segmentation finishes.
// Returns the number of segments emitted.
//
// When the source duration cannot be probed it is estimated from file size
// and refined once extraction reaches the real end of audio. Segments
// already emitted are never invalidated by the refinement.
func (c *Chunker) Run(ctx context.Context, req Request, emit func(Segment) error) (int, error) {
	chunkDur := req.ChunkDuration
	if chunkDur <= 0 {
		chunkDur = c.cfg.ChunkDuration
	}
	overlap := req.Overlap
	if overlap == 0 {
		overlap = c.cfg.Overlap
	} else if overlap < 0 {
		overlap = 0
	}

	total, estimated := c.sourceDuration(req.AudioPath)
	if total <= 0 {
		return 0, fmt.Errorf("could not determine duration of %s", req.AudioPath)
	}
	if err := c.checkCeilings(total, chunkDur); err != nil {
		return 0, err
	}
	if estimated {
		log.Printf("chunking %s: estimated duration %.1fs from file size", filepath.Base(req.AudioPath), total)
	}

	if err := os.MkdirAll(req.WorkDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	var edges []float64
	if c.cfg.Silence != nil {
		var err error
		edges, err = detectSilenceEdges(ctx, req.AudioPath, c.cfg.SampleRate, c.cfg.Silence)
		if err != nil {
			log.Printf("silence detection failed, keeping time grid: %v", err)
			edges = nil
		}
	}

	const eps = 0.05
	count := 0
	prevEnd := 0.0
	for i := 0; ; i++ {
		start := c.boundary(i, chunkDur, edges, total)
		if start >= total-eps && !estimated {
			break
		}
		if c.cfg.MaxSegments > 0 && count >= c.cfg.MaxSegments {
			return count, &UnsupportedDurationError{Duration: total, Segments: count + 1, MaxSegments: c.cfg.MaxSegments, MaxDuration: c.cfg.MaxDuration}
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		end := math.Min(c.boundary(i+1, chunkDur, edges, total), total)
		if estimated && end <= start+eps {
			// The estimate undershot; keep probing full windows until the
			// extractor reaches the real end of audio.
			end = start + chunkDur
		}
		if end+overlap < total {
			end += overlap
		}
		if end <= start+eps {
			break
		}

		path := filepath.Join(req.WorkDir, fmt.Sprintf("chunk_%03d.wav", i))
		actual, err := extractChunk(ctx, req.AudioPath, start, end-start, c.cfg.SampleRate, path)
		if err != nil {
			return count, fmt.Errorf("failed to extract segment %d: %w", i, err)
		}
		if actual <= eps {
			// Source ended before this window; the estimate was long.
			os.Remove(path)
			break
		}

		truncated := actual < (end-start)-0.25
		if truncated {
			end = start + actual
			total = end
			if err := c.checkCeilings(total, chunkDur); err != nil {
				os.Remove(path)
				return count, err
			}
		}

		seg := Segment{
			Index:   i,
			Start:   start,
			End:     end,
			Overlap: math.Max(0, prevEnd-start),
			Path:    path,
		}
		if err := emit(seg); err != nil {
			return count, err
		}
		prevEnd = end
		count++

		if truncated {
			break
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("no audio segments produced from %s", req.AudioPath)
	}
	return count, nil
}

// boundary returns the i-th cut point, snapped to a nearby silence edge
// when one falls inside the snap window.
func (c *Chunker) boundary(i int, chunkDur float64, edges []float64, total float64) float64 {
	base := float64(i) * chunkDur
	if i == 0 || len(edges) == 0 || base >= total {
		return base
	}
	snapped := snapToEdge(base, edges, c.cfg.SnapWindow)
	// A snapped cut must not cross its neighbouring grid points.
	if snapped <= base-chunkDur/2 || snapped >= base+chunkDur/2 {
		return base
	}
	return snapped
}

// sourceDuration probes the real duration, falling back to a file-size
// estimate. The second return reports whether the value is an estimate.
func (c *Chunker) sourceDuration(path string) (float64, bool) {
	if d, err := probeDuration(path); err == nil && d > 0 {
		return d, false
	}
	return estimateDuration(path), true
}

// probeDuration asks ffprobe for the container duration.
func probeDuration(path string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found")
	}
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// bytesPerSecond maps container extensions to rough payload rates used
// when the real duration is not yet known:
//   - .wav: 16kHz mono 16-bit PCM
//   - .flac: lossless, roughly half of CD-rate PCM
//   - .mp3: 128kbps
//   - .m4a/.aac/.ogg/.opus/.webm: ~96kbps speech encodes
var bytesPerSecond = map[string]float64{
	".wav":  32000,
	".flac": 64000,
	".mp3":  16000,
	".m4a":  12000,
	".aac":  12000,
	".ogg":  12000,
	".opus": 12000,
	".webm": 12000,
}

// estimateDuration guesses the duration from file size and container type.
func estimateDuration(path string) float64 {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return 0
	}
	rate, ok := bytesPerSecond[strings.ToLower(filepath.Ext(path))]
	if !ok {
		rate = 16000
	}
	return float64(info.Size()) / rate
}
