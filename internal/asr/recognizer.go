package asr

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// Recognizer handles speech recognition using Sherpa-ONNX
type Recognizer struct {
	config     *Config
	mu         sync.Mutex // the underlying recognizer is not safe for concurrent decode
	recognizer *sherpa.OfflineRecognizer
}

// NewRecognizer creates a new ASR recognizer with the given configuration
func NewRecognizer(config *Config) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sherpaConfig := sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: config.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Transducer: sherpa.OfflineTransducerModelConfig{
				Encoder: config.EncoderPath,
				Decoder: config.DecoderPath,
				Joiner:  config.JoinerPath,
			},
			Tokens:     config.TokensPath,
			NumThreads: config.NumThreads,
			Debug:      0,
		},
	}

	recognizer := sherpa.NewOfflineRecognizer(&sherpaConfig)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create offline recognizer")
	}

	return &Recognizer{
		config:     config,
		recognizer: recognizer,
	}, nil
}

// TranscribeFile transcribes audio from a WAV file
func (r *Recognizer) TranscribeFile(audioPath string) (*Result, error) {
	startTime := time.Now()

	samples, err := r.readWavFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	text, err := r.decode(samples, r.config.SampleRate)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:     text,
		Duration: time.Since(startTime).Seconds(),
	}, nil
}

// Transcribe transcribes one audio file and reports the text with a
// confidence score. Non-WAV input is converted to 16kHz mono WAV first.
// The offline transducer does not expose per-token probabilities, so
// confidence is always 0.
func (r *Recognizer) Transcribe(ctx context.Context, audioPath string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	needsConv, err := NeedsConversion(audioPath)
	if err != nil {
		return "", 0, err
	}
	if needsConv {
		converted, err := ConvertToWavTemp(ctx, audioPath)
		if err != nil {
			return "", 0, err
		}
		defer os.Remove(converted)
		audioPath = converted
	}

	result, err := r.TranscribeFile(audioPath)
	if err != nil {
		return "", 0, err
	}
	return result.Text, 0, nil
}

func (r *Recognizer) decode(samples []float32, sampleRate int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer == nil {
		return "", fmt.Errorf("recognizer is closed")
	}

	stream := sherpa.NewOfflineStream(r.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	r.recognizer.Decode(stream)

	result := stream.GetResult()
	return result.Text, nil
}

// Close releases resources used by the recognizer
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(r.recognizer)
		r.recognizer = nil
	}
	return nil
}

// readWavFile reads a WAV file and returns the audio samples
func (r *Recognizer) readWavFile(path string) ([]float32, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	// Use sherpa-onnx's built-in WAV reader
	samples := sherpa.ReadWave(path)
	if samples == nil || len(samples.Samples) == 0 {
		return nil, fmt.Errorf("failed to read WAV file or file is empty")
	}

	return samples.Samples, nil
}
