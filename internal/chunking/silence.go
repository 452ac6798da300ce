package chunking

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
)

// SilenceConfig holds configuration for energy-based silence detection.
type SilenceConfig struct {
	// Threshold is the RMS level below which audio is considered silence (0.0-1.0)
	Threshold float64

	// MinSilenceDuration is the minimum silence run that yields a cut edge (seconds)
	MinSilenceDuration float64

	// FrameSize is the number of samples per frame for RMS calculation
	FrameSize int
}

// DefaultSilenceConfig returns default configuration for silence detection.
func DefaultSilenceConfig() *SilenceConfig {
	return &SilenceConfig{
		Threshold:          0.01,
		MinSilenceDuration: 0.3,
		FrameSize:          480, // 30ms at 16kHz
	}
}

// detectSilenceEdges scans the source and returns the midpoints of silence
// runs, sorted ascending. Segment cuts placed at these points avoid
// splitting words across chunk files.
func detectSilenceEdges(ctx context.Context, inputPath string, sampleRate int, config *SilenceConfig) ([]float64, error) {
	if config == nil {
		config = DefaultSilenceConfig()
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	reader := bufio.NewReader(stdout)
	frameDuration := float64(config.FrameSize) / float64(sampleRate)
	minSilenceFrames := int(config.MinSilenceDuration / frameDuration)
	if minSilenceFrames < 1 {
		minSilenceFrames = 1
	}

	var edges []float64
	frameSamples := make([]float32, 0, config.FrameSize)
	silenceStart := -1
	frameIndex := 0

	flushFrame := func() {
		rms := calculateRMS(frameSamples)
		if rms < config.Threshold {
			if silenceStart < 0 {
				silenceStart = frameIndex
			}
		} else {
			if silenceStart >= 0 && frameIndex-silenceStart >= minSilenceFrames {
				mid := float64(silenceStart+frameIndex) / 2 * frameDuration
				edges = append(edges, mid)
			}
			silenceStart = -1
		}
		frameIndex++
		frameSamples = frameSamples[:0]
	}

	buf := make([]byte, 2)
	for {
		_, err := io.ReadFull(reader, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			cmd.Wait()
			return nil, fmt.Errorf("failed to read audio: %w", err)
		}
		sample := float32(int16(binary.LittleEndian.Uint16(buf))) / 32768.0
		frameSamples = append(frameSamples, sample)
		if len(frameSamples) >= config.FrameSize {
			flushFrame()
		}
	}
	if len(frameSamples) > 0 {
		flushFrame()
	}
	if silenceStart >= 0 && frameIndex-silenceStart >= minSilenceFrames {
		mid := float64(silenceStart+frameIndex) / 2 * frameDuration
		edges = append(edges, mid)
	}
	cmd.Wait()

	sort.Float64s(edges)
	return edges, nil
}

// calculateRMS calculates the root mean square of samples.
func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// snapToEdge returns the silence edge nearest to t when it falls within
// the snap window, otherwise t unchanged.
func snapToEdge(t float64, edges []float64, window float64) float64 {
	if len(edges) == 0 || window <= 0 {
		return t
	}
	i := sort.SearchFloat64s(edges, t)
	best := t
	bestDist := window
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(edges) {
			continue
		}
		if d := math.Abs(edges[j] - t); d <= bestDist {
			best = edges[j]
			bestDist = d
		}
	}
	return best
}
