package asr

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
)

// Pool caches loaded recognizers by model ID so a model is loaded into
// memory only once and shared across jobs.
type Pool struct {
	modelsDir    string
	defaultModel string

	mu          sync.Mutex
	recognizers map[string]*Recognizer
}

// NewPool creates a recognizer pool rooted at modelsDir. defaultModel is
// the model ID used when a job does not specify one.
func NewPool(modelsDir, defaultModel string) *Pool {
	return &Pool{
		modelsDir:    modelsDir,
		defaultModel: defaultModel,
		recognizers:  make(map[string]*Recognizer),
	}
}

// Get returns the recognizer for the given model ID, loading it on first
// use. An empty model ID resolves to the pool's default model.
func (p *Pool) Get(modelID string) (*Recognizer, error) {
	if modelID == "" {
		modelID = p.defaultModel
	}
	if modelID == "" {
		return nil, fmt.Errorf("no model specified and no default model configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if r, ok := p.recognizers[modelID]; ok {
		return r, nil
	}

	modelDir := modelID
	if !filepath.IsAbs(modelDir) {
		modelDir = filepath.Join(p.modelsDir, modelID)
	}

	config, err := NewConfig(modelDir)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelID, err)
	}

	log.Printf("Loading ASR model: %s", modelID)
	r, err := NewRecognizer(config)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", modelID, err)
	}

	p.recognizers[modelID] = r
	return r, nil
}

// Close releases all loaded recognizers.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, r := range p.recognizers {
		if err := r.Close(); err != nil {
			log.Printf("Failed to close recognizer %s: %v", id, err)
		}
		delete(p.recognizers, id)
	}
	return nil
}
