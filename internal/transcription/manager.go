package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"intellimind/internal/chunking"
)

// Manager owns the table of live jobs. It replaces any notion of a
// process-global registry: whoever needs job lookup holds a reference.
type Manager struct {
	cfg       *Config
	segmenter Segmenter
	factory   TranscriberFactory
	workDir   string

	mu   sync.Mutex
	jobs map[string]*pipeline
}

// NewManager creates a job manager. workDir is where chunk files are cut,
// one subdirectory per job.
func NewManager(cfg *Config, segmenter Segmenter, factory TranscriberFactory, workDir string) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		cfg:       cfg,
		segmenter: segmenter,
		factory:   factory,
		workDir:   workDir,
		jobs:      make(map[string]*pipeline),
	}
}

// StartOptions are the per-job parameters for StartJob.
type StartOptions struct {
	AudioPath     string
	ModelID       string
	ChunkDuration float64 // seconds, 0 uses the configured default
	Overlap       float64 // seconds, 0 uses the configured default, negative disables overlap
	MaxConcurrent int     // 0 uses the configured default
	OnFinish      func(Snapshot)
}

// StartJob begins segmenting and transcribing the given source and
// returns the new job's id. The job runs in the background; poll
// Progress for its state.
func (m *Manager) StartJob(opts StartOptions) (string, error) {
	if _, err := os.Stat(opts.AudioPath); err != nil {
		return "", fmt.Errorf("audio file not accessible: %w", err)
	}
	inner, err := m.factory(opts.ModelID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve model %q: %w", opts.ModelID, err)
	}

	cfg := m.cfg.clone()
	if opts.MaxConcurrent > 0 {
		cfg.MaxConcurrent = opts.MaxConcurrent
	}

	id := uuid.New().String()
	p := &pipeline{
		job:         newJob(id, opts.ModelID, opts.AudioPath, cfg),
		cfg:         cfg,
		segmenter:   m.segmenter,
		transcriber: newGuardedTranscriber(inner, cfg.SegmentTimeout),
		segReq: chunking.Request{
			AudioPath:     opts.AudioPath,
			WorkDir:       filepath.Join(m.workDir, id),
			ChunkDuration: opts.ChunkDuration,
			Overlap:       opts.Overlap,
		},
		notify:   make(chan struct{}, 1),
		onFinish: opts.OnFinish,
	}

	m.mu.Lock()
	m.jobs[id] = p
	m.mu.Unlock()

	p.start(context.Background())
	return id, nil
}

// Progress returns the job's current snapshot.
func (m *Manager) Progress(jobID string) (Snapshot, error) {
	p, err := m.lookup(jobID)
	if err != nil {
		return Snapshot{}, err
	}
	return p.job.Snapshot(), nil
}

// StopJob cancels a running job. In-flight model calls are abandoned, not
// killed; their results are discarded when they eventually return.
func (m *Manager) StopJob(jobID string) error {
	p, err := m.lookup(jobID)
	if err != nil {
		return err
	}
	return p.stop()
}

// Remove drops a terminal job from the table and deletes its chunk files.
func (m *Manager) Remove(jobID string) error {
	m.mu.Lock()
	p, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	snap := p.job.Snapshot()
	switch snap.Status {
	case StatusCompleted, StatusFailed, StatusStopped:
		delete(m.jobs, jobID)
	default:
		m.mu.Unlock()
		return fmt.Errorf("job %s is still %s", jobID, snap.Status)
	}
	m.mu.Unlock()

	p.wait()
	return os.RemoveAll(filepath.Join(m.workDir, jobID))
}

// Shutdown stops every live job and waits for their loops to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pipelines := make([]*pipeline, 0, len(m.jobs))
	for _, p := range m.jobs {
		pipelines = append(pipelines, p)
	}
	m.mu.Unlock()

	for _, p := range pipelines {
		_ = p.stop()
	}
	for _, p := range pipelines {
		p.wait()
	}
}

func (m *Manager) lookup(jobID string) (*pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return p, nil
}
