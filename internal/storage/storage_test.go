package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"intellimind/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMeetingRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewMeetingRepository(db)
	ctx := context.Background()

	meeting := &models.Meeting{
		Title:            "Weekly sync",
		OriginalFilename: "sync.mp3",
		AudioPath:        "/data/meetings/x/sync.mp3",
		FileSize:         123456,
		ModelID:          "base-model",
	}
	if err := repo.Create(ctx, meeting); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if meeting.ID == "" {
		t.Fatal("Expected generated ID")
	}
	if meeting.Status != models.MeetingStatusPending {
		t.Errorf("Expected pending status, got %s", meeting.Status)
	}

	got, err := repo.GetByID(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Meeting not found")
	}
	if got.Title != "Weekly sync" || got.FileSize != 123456 || got.ModelID != "base-model" {
		t.Errorf("Unexpected meeting: %+v", got)
	}

	if err := repo.UpdateJobID(ctx, meeting.ID, "job-1"); err != nil {
		t.Fatalf("UpdateJobID failed: %v", err)
	}
	if err := repo.UpdateStatus(ctx, meeting.ID, models.MeetingStatusCompleted, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := repo.UpdateDuration(ctx, meeting.ID, 125.5); err != nil {
		t.Fatalf("UpdateDuration failed: %v", err)
	}

	got, err = repo.GetByID(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.JobID != "job-1" || got.Status != models.MeetingStatusCompleted || got.DurationSeconds != 125.5 {
		t.Errorf("Updates not persisted: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("Expected completed_at to be set for terminal status")
	}

	// Unknown ID is nil, not an error
	missing, err := repo.GetByID(ctx, "no-such-id")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for unknown ID, got %v, %v", missing, err)
	}

	list, err := repo.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 meeting, got %d", len(list))
	}

	if err := repo.Delete(ctx, meeting.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := repo.GetByID(ctx, meeting.ID); got != nil {
		t.Error("Expected meeting to be deleted")
	}
}

func TestTranscriptRepository(t *testing.T) {
	db := openTestDB(t)
	meetings := NewMeetingRepository(db)
	repo := NewTranscriptRepository(db)
	ctx := context.Background()

	meeting := &models.Meeting{Title: "Planning"}
	if err := meetings.Create(ctx, meeting); err != nil {
		t.Fatal(err)
	}

	if err := repo.Upsert(ctx, &models.Transcript{
		MeetingID: meeting.ID,
		Status:    models.TranscriptStatusProcessing,
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Second upsert replaces the row
	if err := repo.Upsert(ctx, &models.Transcript{
		MeetingID:      meeting.ID,
		Text:           "hello [inaudible] world",
		Status:         models.TranscriptStatusPartial,
		Progress:       100,
		SegmentCount:   3,
		FailedSegments: []int{1},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.GetByMeetingID(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("GetByMeetingID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Transcript not found")
	}
	if got.Text != "hello [inaudible] world" || got.Status != models.TranscriptStatusPartial {
		t.Errorf("Unexpected transcript: %+v", got)
	}
	if !reflect.DeepEqual(got.FailedSegments, []int{1}) {
		t.Errorf("Expected failed segments [1], got %v", got.FailedSegments)
	}

	missing, err := repo.GetByMeetingID(ctx, "no-such-id")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for unknown meeting, got %v, %v", missing, err)
	}
}

func TestInsightRepository(t *testing.T) {
	db := openTestDB(t)
	meetings := NewMeetingRepository(db)
	repo := NewInsightRepository(db)
	ctx := context.Background()

	meeting := &models.Meeting{Title: "Retro"}
	if err := meetings.Create(ctx, meeting); err != nil {
		t.Fatal(err)
	}

	in := &models.Insight{
		MeetingID:    meeting.ID,
		Model:        "llama3.2:latest",
		Situation:    "Team reviewed the sprint",
		Complication: "Velocity dropped",
		Question:     "Why did velocity drop?",
		Answer:       "Too many interruptions",
	}
	if err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if in.ID == "" {
		t.Fatal("Expected generated ID")
	}

	list, err := repo.ListByMeetingID(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("ListByMeetingID failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 insight, got %d", len(list))
	}
	if list[0].Answer != "Too many interruptions" {
		t.Errorf("Unexpected insight: %+v", list[0])
	}

	// Deleting the meeting cascades
	if err := meetings.Delete(ctx, meeting.ID); err != nil {
		t.Fatal(err)
	}
	list, err = repo.ListByMeetingID(ctx, meeting.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("Expected cascade delete, got %d insights", len(list))
	}
}
