package youtube

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// AudioFormat describes one downloadable audio track
type AudioFormat struct {
	ItagNo        int
	MimeType      string // "audio/mp4", "audio/webm"
	Bitrate       int    // bits per second
	ContentLength int64  // bytes
	Quality       string
	Language      string // language code, e.g. "ja", "en"
	IsDefault     bool   // default audio track
}

// Extension returns the file extension for the format's MIME type
func (f *AudioFormat) Extension() string {
	if strings.Contains(f.MimeType, "mp4") {
		return ".m4a"
	}
	if strings.Contains(f.MimeType, "webm") {
		return ".webm"
	}
	return ".audio"
}

// DownloadResult describes a completed audio download
type DownloadResult struct {
	Path  string
	Video *VideoInfo
	Size  int64
}

// GetAudioFormats lists the audio-only formats of a video, sorted by
// bitrate descending
func (c *Client) GetAudioFormats(ctx context.Context, videoURL string) ([]AudioFormat, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	var formats []AudioFormat
	for _, f := range video.Formats {
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}

		af := AudioFormat{
			ItagNo:        f.ItagNo,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			ContentLength: f.ContentLength,
			Quality:       f.AudioQuality,
		}
		if f.AudioTrack != nil {
			af.Language = f.AudioTrack.ID
			af.IsDefault = f.AudioTrack.AudioIsDefault
		}

		formats = append(formats, af)
	}

	sort.Slice(formats, func(i, j int) bool {
		return formats[i].Bitrate > formats[j].Bitrate
	})

	return formats, nil
}

// DownloadAudio downloads the best audio track of a video into destDir.
// The file name is derived from the sanitized video title.
func (c *Client) DownloadAudio(ctx context.Context, videoURL, destDir string) (*DownloadResult, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	formats, err := c.GetAudioFormats(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no audio formats available")
	}

	// Prefer the default audio track at the highest bitrate
	selected := formats[0]
	for _, f := range formats {
		if f.IsDefault {
			selected = f
			break
		}
	}

	var targetFormat *ytdl.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.ItagNo != selected.ItagNo {
			continue
		}
		if selected.Language != "" {
			if f.AudioTrack == nil || f.AudioTrack.ID != selected.Language {
				continue
			}
		}
		targetFormat = f
		break
	}
	if targetFormat == nil {
		return nil, fmt.Errorf("format not found: itag=%d lang=%s", selected.ItagNo, selected.Language)
	}

	stream, _, err := c.client.GetStreamContext(ctx, video, targetFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	outputPath := filepath.Join(destDir, sanitizeFilename(video.Title)+selected.Extension())

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, stream)
	if err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	return &DownloadResult{
		Path: outputPath,
		Video: &VideoInfo{
			ID:          video.ID,
			Title:       video.Title,
			Author:      video.Author,
			Duration:    video.Duration,
			Description: video.Description,
		},
		Size: written,
	}, nil
}

// sanitizeFilename replaces characters that are not usable in file names
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
