// Package pipeline implements the per-job stage sequencer (C12's inner
// loop): the ordered list of stages a submitted job runs through, and the
// bounded-concurrency admission gate shared across all in-flight jobs.
package pipeline

import (
	"context"

	"github.com/karaokeforge/pipeline/domain/ports"
)

// Semaphore is a buffered-channel admission gate bounding how many jobs may
// be in a heavyweight stage concurrently. It implements ports.AdmissionLimiter.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a gate with the given concurrency limit. A
// non-positive limit defaults to 4.
func NewSemaphore(limit int) *Semaphore {
	if limit <= 0 {
		limit = 4
	}
	return &Semaphore{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or ctx is canceled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. It must only be called once per successful
// Acquire; an unmatched Release blocks forever rather than corrupting
// state, surfacing the bookkeeping bug as a hang instead of silent drift.
func (s *Semaphore) Release() {
	<-s.slots
}

var _ ports.AdmissionLimiter = (*Semaphore)(nil)
