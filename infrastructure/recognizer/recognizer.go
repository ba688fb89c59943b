// Package recognizer implements the speech recognizer (C6): a lazily
// initialized backend handle, replacing the notion of a process-global
// model with an explicit service any number of orchestrator instances can
// share safely.
package recognizer

import (
	"context"
	"sync"

	"github.com/karaokeforge/pipeline/domain/model"
	pkgerrors "github.com/karaokeforge/pipeline/pkg/errors"
	"github.com/karaokeforge/pipeline/pkg/logger"
)

// Backend abstracts the actual recognition call so the lazy-load and
// output-validation logic here stays independent of the model runtime.
type Backend interface {
	Load(ctx context.Context) error
	Transcribe(ctx context.Context, wavPath, language, initialPrompt string) ([]model.KaraokeSegment, error)
	ModelName() string
	LibraryVersion() string
}

// Service is the explicit handle the orchestrator holds, replacing any
// process-global model state. First use triggers a mutex-guarded lazy
// load; subsequent calls reuse the loaded backend.
type Service struct {
	backend Backend
	log     *logger.Logger

	loadOnce sync.Once
	loadErr  error

	// InitialPrompts seeds language-specific decoder bias, keyed by BCP-47
	// language tag.
	InitialPrompts map[string]string
}

func NewService(backend Backend, log *logger.Logger) *Service {
	if log == nil {
		log, _ = logger.New(false)
	}
	return &Service{backend: backend, log: log}
}

func (s *Service) ModelName() string      { return s.backend.ModelName() }
func (s *Service) LibraryVersion() string { return s.backend.LibraryVersion() }

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.loadOnce.Do(func() {
		s.loadErr = s.backend.Load(ctx)
	})
	return s.loadErr
}

// Transcribe produces word-timestamped segments for wavPath, filtering any
// segment lacking a valid [start,end] or non-empty text, and any word
// lacking valid timing.
func (s *Service) Transcribe(ctx context.Context, wavPath, language string) ([]model.KaraokeSegment, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, pkgerrors.NewTranscriptionError("recognizer failed to load", err)
	}

	prompt := s.InitialPrompts[language]
	raw, err := s.backend.Transcribe(ctx, wavPath, language, prompt)
	if err != nil {
		return nil, pkgerrors.NewTranscriptionError("transcription failed", err)
	}

	return filterSegments(raw), nil
}

// filterSegments drops segments lacking valid bounds/text or with no
// validly-timed words, and repairs the survivors' word lists.
func filterSegments(raw []model.KaraokeSegment) []model.KaraokeSegment {
	out := make([]model.KaraokeSegment, 0, len(raw))
	for _, seg := range raw {
		if seg.Text == "" || seg.End < seg.Start {
			continue
		}
		seg.Repair()
		if len(seg.Words) == 0 {
			continue
		}
		out = append(out, seg)
	}
	return out
}
