package transcription

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestProgressUnknownJob(t *testing.T) {
	m := NewManager(testConfig(), &fakeSegmenter{}, func(string) (SegmentTranscriber, error) {
		return &fakeTranscriber{}, nil
	}, t.TempDir())
	defer m.Shutdown()

	if _, err := m.Progress("no-such-job"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
	if err := m.StopJob("no-such-job"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestStartJobMissingAudio(t *testing.T) {
	m := NewManager(testConfig(), &fakeSegmenter{}, func(string) (SegmentTranscriber, error) {
		return &fakeTranscriber{}, nil
	}, t.TempDir())
	defer m.Shutdown()

	_, err := m.StartJob(StartOptions{AudioPath: "/nonexistent/audio.wav"})
	if err == nil {
		t.Fatal("Expected error for missing audio file")
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	seg := &fakeSegmenter{count: 2}
	tr := &fakeTranscriber{}
	m, jobID, done := startTestJob(t, testConfig(), seg, tr)

	waitForFinish(t, done)

	first, err := m.Progress(jobID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Progress(jobID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Snapshots of a finished job differ:\n%+v\n%+v", first, second)
	}
}

func TestRemoveFinishedJob(t *testing.T) {
	seg := &fakeSegmenter{count: 2}
	tr := &fakeTranscriber{}
	m, jobID, done := startTestJob(t, testConfig(), seg, tr)

	waitForFinish(t, done)

	if err := m.Remove(jobID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := m.Progress(jobID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected job to be gone, got %v", err)
	}
}

func TestRemoveRunningJobRefused(t *testing.T) {
	seg := &fakeSegmenter{count: 3}
	tr := &fakeTranscriber{delay: 100 * time.Millisecond}
	m, jobID, done := startTestJob(t, testConfig(), seg, tr)

	if err := m.Remove(jobID); err == nil {
		t.Error("Expected Remove of a running job to fail")
	}
	waitForFinish(t, done)
}
