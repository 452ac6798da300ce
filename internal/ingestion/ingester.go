package ingestion

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"intellimind/internal/asr"
	"intellimind/internal/models"
	"intellimind/internal/storage"
	"intellimind/internal/transcription"
	"intellimind/internal/youtube"
)

// JobStarter starts background transcription jobs. Satisfied by
// *transcription.Manager.
type JobStarter interface {
	StartJob(opts transcription.StartOptions) (string, error)
}

// Ingester stores incoming meeting audio and kicks off transcription.
type Ingester struct {
	meetings    *storage.MeetingRepository
	transcripts *storage.TranscriptRepository
	starter     JobStarter
	yt          *youtube.Client
	dataDir     string
}

// NewIngester creates an Ingester. dataDir is the root directory for
// stored meeting audio.
func NewIngester(meetings *storage.MeetingRepository, transcripts *storage.TranscriptRepository, starter JobStarter, yt *youtube.Client, dataDir string) *Ingester {
	return &Ingester{
		meetings:    meetings,
		transcripts: transcripts,
		starter:     starter,
		yt:          yt,
		dataDir:     dataDir,
	}
}

// UploadOptions are the parameters for ingesting an uploaded file.
type UploadOptions struct {
	Title    string
	Filename string
	ModelID  string
}

// IngestUpload saves an uploaded audio file and starts its transcription.
func (i *Ingester) IngestUpload(ctx context.Context, src io.Reader, opts UploadOptions) (*models.Meeting, error) {
	if !asr.IsSupportedFormat(opts.Filename) {
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(opts.Filename))
	}

	id := uuid.New().String()
	dir := filepath.Join(i.dataDir, "meetings", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create meeting directory: %w", err)
	}

	audioPath := filepath.Join(dir, filepath.Base(opts.Filename))
	size, err := saveFile(audioPath, src)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	title := opts.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(opts.Filename), filepath.Ext(opts.Filename))
	}

	meeting := &models.Meeting{
		ID:               id,
		Title:            title,
		OriginalFilename: filepath.Base(opts.Filename),
		AudioPath:        audioPath,
		FileSize:         size,
		ModelID:          opts.ModelID,
		Status:           models.MeetingStatusPending,
	}
	if dur, err := asr.GetAudioDuration(audioPath); err == nil {
		meeting.DurationSeconds = dur
	}

	return i.register(ctx, meeting)
}

// IngestURL downloads the audio track of a video and starts its
// transcription.
func (i *Ingester) IngestURL(ctx context.Context, videoURL, modelID string) (*models.Meeting, error) {
	if i.yt == nil {
		return nil, fmt.Errorf("URL ingestion is not configured")
	}

	id := uuid.New().String()
	dir := filepath.Join(i.dataDir, "meetings", id)

	result, err := i.yt.DownloadAudio(ctx, videoURL, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}

	meeting := &models.Meeting{
		ID:               id,
		Title:            result.Video.Title,
		OriginalFilename: filepath.Base(result.Path),
		AudioPath:        result.Path,
		FileSize:         result.Size,
		DurationSeconds:  result.Video.Duration.Seconds(),
		ModelID:          modelID,
		Status:           models.MeetingStatusPending,
	}

	return i.register(ctx, meeting)
}

// register persists the meeting and starts its transcription job.
func (i *Ingester) register(ctx context.Context, meeting *models.Meeting) (*models.Meeting, error) {
	if err := i.meetings.Create(ctx, meeting); err != nil {
		return nil, err
	}
	if err := i.transcripts.Upsert(ctx, &models.Transcript{
		MeetingID: meeting.ID,
		Status:    models.TranscriptStatusPending,
	}); err != nil {
		return nil, err
	}

	meetingID := meeting.ID
	jobID, err := i.starter.StartJob(transcription.StartOptions{
		AudioPath: meeting.AudioPath,
		ModelID:   meeting.ModelID,
		OnFinish: func(snap transcription.Snapshot) {
			i.persistResult(meetingID, snap)
		},
	})
	if err != nil {
		i.meetings.UpdateStatus(ctx, meeting.ID, models.MeetingStatusFailed, err.Error())
		return nil, fmt.Errorf("failed to start transcription: %w", err)
	}

	meeting.JobID = jobID
	meeting.Status = models.MeetingStatusTranscribing
	if err := i.meetings.UpdateJobID(ctx, meeting.ID, jobID); err != nil {
		return nil, err
	}
	if err := i.meetings.UpdateStatus(ctx, meeting.ID, models.MeetingStatusTranscribing, ""); err != nil {
		return nil, err
	}

	return meeting, nil
}

// persistResult stores the finished transcript and final meeting status.
// Runs on the job's goroutine after the pipeline finishes.
func (i *Ingester) persistResult(meetingID string, snap transcription.Snapshot) {
	ctx := context.Background()

	transcript := &models.Transcript{
		MeetingID:      meetingID,
		Text:           snap.TranscriptSoFar,
		Progress:       snap.Progress,
		SegmentCount:   snap.Total,
		FailedSegments: snap.FailedIndices,
	}

	meetingStatus := models.MeetingStatusFailed
	switch snap.Status {
	case transcription.StatusCompleted:
		meetingStatus = models.MeetingStatusCompleted
		if len(snap.FailedIndices) > 0 {
			transcript.Status = models.TranscriptStatusPartial
		} else {
			transcript.Status = models.TranscriptStatusCompleted
		}
	case transcription.StatusStopped:
		meetingStatus = models.MeetingStatusStopped
		if snap.Completed > 0 {
			transcript.Status = models.TranscriptStatusPartial
		} else {
			transcript.Status = models.TranscriptStatusFailed
		}
	default:
		transcript.Status = models.TranscriptStatusFailed
	}

	if err := i.transcripts.Upsert(ctx, transcript); err != nil {
		log.Printf("Failed to persist transcript for meeting %s: %v", meetingID, err)
	}
	if err := i.meetings.UpdateStatus(ctx, meetingID, meetingStatus, snap.Error); err != nil {
		log.Printf("Failed to update meeting %s status: %v", meetingID, err)
	}

	// The chunker refines the duration of sources whose header lies about
	// their length, so the segment windows are the authoritative figure.
	var duration float64
	for _, seg := range snap.Segments {
		if seg.End > duration {
			duration = seg.End
		}
	}
	if duration > 0 {
		if err := i.meetings.UpdateDuration(ctx, meetingID, duration); err != nil {
			log.Printf("Failed to update meeting %s duration: %v", meetingID, err)
		}
	}
}

func saveFile(path string, src io.Reader) (int64, error) {
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create audio file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to save audio file: %w", err)
	}
	return size, nil
}
