package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intellimind/internal/models"
	"intellimind/internal/storage"
	"intellimind/internal/transcription"
)

type fakeStarter struct {
	lastOpts transcription.StartOptions
	jobID    string
	err      error
}

func (f *fakeStarter) StartJob(opts transcription.StartOptions) (string, error) {
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	if f.jobID == "" {
		f.jobID = "job-test"
	}
	return f.jobID, nil
}

func newTestIngester(t *testing.T) (*Ingester, *fakeStarter, *storage.MeetingRepository, *storage.TranscriptRepository) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	meetings := storage.NewMeetingRepository(db)
	transcripts := storage.NewTranscriptRepository(db)
	starter := &fakeStarter{}
	ing := NewIngester(meetings, transcripts, starter, nil, t.TempDir())
	return ing, starter, meetings, transcripts
}

func TestIngestUpload(t *testing.T) {
	ing, starter, meetings, transcripts := newTestIngester(t)
	ctx := context.Background()

	meeting, err := ing.IngestUpload(ctx, strings.NewReader("fake audio bytes"), UploadOptions{
		Title:    "Standup",
		Filename: "standup.mp3",
		ModelID:  "base",
	})
	if err != nil {
		t.Fatalf("IngestUpload failed: %v", err)
	}

	if meeting.Status != models.MeetingStatusTranscribing {
		t.Errorf("Expected transcribing status, got %s", meeting.Status)
	}
	if meeting.JobID != "job-test" {
		t.Errorf("Expected job ID recorded, got %q", meeting.JobID)
	}
	if meeting.FileSize != int64(len("fake audio bytes")) {
		t.Errorf("Unexpected file size: %d", meeting.FileSize)
	}

	// The audio landed on disk where the job was pointed at
	if starter.lastOpts.AudioPath == "" {
		t.Fatal("Expected job to be started with an audio path")
	}
	data, err := os.ReadFile(starter.lastOpts.AudioPath)
	if err != nil {
		t.Fatalf("Stored audio not readable: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Errorf("Stored audio corrupted: %q", data)
	}

	stored, err := meetings.GetByID(ctx, meeting.ID)
	if err != nil || stored == nil {
		t.Fatalf("Meeting not persisted: %v", err)
	}
	transcript, err := transcripts.GetByMeetingID(ctx, meeting.ID)
	if err != nil || transcript == nil {
		t.Fatalf("Transcript row not created: %v", err)
	}
	if transcript.Status != models.TranscriptStatusPending {
		t.Errorf("Expected pending transcript, got %s", transcript.Status)
	}
}

func TestIngestUploadDefaultsTitle(t *testing.T) {
	ing, _, _, _ := newTestIngester(t)

	meeting, err := ing.IngestUpload(context.Background(), strings.NewReader("x"), UploadOptions{
		Filename: "board_meeting.wav",
	})
	if err != nil {
		t.Fatal(err)
	}
	if meeting.Title != "board_meeting" {
		t.Errorf("Expected title from filename, got %q", meeting.Title)
	}
}

func TestIngestUploadRejectsUnknownFormat(t *testing.T) {
	ing, _, _, _ := newTestIngester(t)

	_, err := ing.IngestUpload(context.Background(), strings.NewReader("x"), UploadOptions{
		Filename: "notes.pdf",
	})
	if err == nil {
		t.Fatal("Expected error for unsupported format")
	}
}

func TestPersistResultOnFinish(t *testing.T) {
	ing, starter, meetings, transcripts := newTestIngester(t)
	ctx := context.Background()

	meeting, err := ing.IngestUpload(ctx, strings.NewReader("x"), UploadOptions{Filename: "m.wav"})
	if err != nil {
		t.Fatal(err)
	}

	// Simulate the pipeline finishing with one permanently failed segment
	starter.lastOpts.OnFinish(transcription.Snapshot{
		Status:          transcription.StatusCompleted,
		Total:           3,
		Completed:       2,
		Failed:          1,
		Progress:        100,
		TranscriptSoFar: "hello [inaudible] world",
		FinalTranscript: "hello [inaudible] world",
		FailedIndices:   []int{1},
		Segments: []transcription.SegmentInfo{
			{Index: 0, Start: 0, End: 35},
			{Index: 1, Start: 30, End: 65},
			{Index: 2, Start: 60, End: 72.5},
		},
	})

	stored, err := meetings.GetByID(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.MeetingStatusCompleted {
		t.Errorf("Expected completed meeting, got %s", stored.Status)
	}
	if stored.DurationSeconds != 72.5 {
		t.Errorf("Expected duration from segment windows, got %.2f", stored.DurationSeconds)
	}

	transcript, err := transcripts.GetByMeetingID(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if transcript.Status != models.TranscriptStatusPartial {
		t.Errorf("Expected partially_completed, got %s", transcript.Status)
	}
	if transcript.Text != "hello [inaudible] world" {
		t.Errorf("Unexpected transcript text: %q", transcript.Text)
	}
	if len(transcript.FailedSegments) != 1 || transcript.FailedSegments[0] != 1 {
		t.Errorf("Expected failed segments [1], got %v", transcript.FailedSegments)
	}
}

func TestPersistResultStopped(t *testing.T) {
	ing, starter, meetings, _ := newTestIngester(t)
	ctx := context.Background()

	meeting, err := ing.IngestUpload(ctx, strings.NewReader("x"), UploadOptions{Filename: "m.wav"})
	if err != nil {
		t.Fatal(err)
	}

	starter.lastOpts.OnFinish(transcription.Snapshot{
		Status:          transcription.StatusStopped,
		Total:           4,
		Completed:       2,
		Progress:        50,
		TranscriptSoFar: "partial text so far",
	})

	stored, err := meetings.GetByID(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.MeetingStatusStopped {
		t.Errorf("Expected stopped meeting, got %s", stored.Status)
	}
}
