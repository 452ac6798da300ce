package chunking

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// extractChunk decodes [start, start+dur) of the source to 16-bit mono PCM
// via ffmpeg and writes it as a WAV chunk file. Returns the duration of
// audio actually extracted, which is shorter than dur when the source ends
// inside the window.
func extractChunk(ctx context.Context, src string, start, dur float64, sampleRate int, outPath string) (float64, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return 0, fmt.Errorf("ffmpeg not found: please install ffmpeg")
	}

	// -ss/-t before -i seek on the input, which is much faster for large
	// sources than decoding from the beginning.
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", start),
		"-t", fmt.Sprintf("%.3f", dur),
		"-i", src,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var samples []int
	reader := bufio.NewReader(stdout)
	buf := make([]byte, 16000)
	var leftover byte
	var hasLeftover bool

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			data := buf[:n]
			if hasLeftover {
				first := int16(binary.LittleEndian.Uint16([]byte{leftover, data[0]}))
				samples = append(samples, int(first))
				data = data[1:]
				hasLeftover = false
			}
			for len(data) >= 2 {
				samples = append(samples, int(int16(binary.LittleEndian.Uint16(data))))
				data = data[2:]
			}
			if len(data) == 1 {
				leftover = data[0]
				hasLeftover = true
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			cmd.Wait()
			return 0, fmt.Errorf("failed to read audio: %w", err)
		}
	}
	cmd.Wait()

	if len(samples) == 0 {
		return 0, nil
	}

	if err := writeWavChunk(outPath, samples, sampleRate); err != nil {
		return 0, err
	}
	return float64(len(samples)) / float64(sampleRate), nil
}

// writeWavChunk encodes mono 16-bit samples to a WAV file.
func writeWavChunk(path string, samples []int, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	defer f.Close()

	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write chunk wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close chunk wav: %w", err)
	}
	return nil
}
