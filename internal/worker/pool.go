// Package worker provides background feature backfill for tracks that
// arrive without audio analysis.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

const defaultJobTimeout = 15 * time.Second

// TrackSource looks up a track with its audio features.
type TrackSource interface {
	GetTrack(ctx context.Context, id string) (domain.Track, error)
}

// FeatureStore persists backfilled features.
type FeatureStore interface {
	UpdateTrackFeatures(ctx context.Context, trackID string, features domain.AudioFeatures) error
}

// Job represents a background backfill for one track.
type Job struct {
	TrackID string
}

// Pool manages background workers for async jobs.
type Pool struct {
	source     TrackSource
	store      FeatureStore
	logger     *slog.Logger
	jobTimeout time.Duration

	jobs chan Job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a worker pool with the given queue size.
func NewPool(source TrackSource, store FeatureStore, queueSize int, logger *slog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		source:     source,
		store:      store,
		logger:     logger.With("component", "worker"),
		jobTimeout: defaultJobTimeout,
		jobs:       make(chan Job, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to drain. It is safe to
// call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. It reports false when the job was
// dropped because the queue is full or the pool has stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("dropping job, pool stopped", "track_id", job.TrackID)
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("dropping job, queue full", "track_id", job.TrackID)
		return false
	}
}

// Backfill queues a feature backfill for trackID.
func (p *Pool) Backfill(trackID string) bool {
	if trackID == "" {
		return false
	}
	return p.Submit(Job{TrackID: trackID})
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()

	track, err := p.source.GetTrack(ctx, job.TrackID)
	if err != nil {
		p.logger.Warn("failed to fetch track", "track_id", job.TrackID, "error", err)
		return
	}
	if !track.Features.HasAnalysis() {
		p.logger.Info("no analysis available", "track_id", job.TrackID)
		return
	}

	if err := p.store.UpdateTrackFeatures(ctx, job.TrackID, track.Features); err != nil {
		p.logger.Warn("failed to update track", "track_id", job.TrackID, "error", err)
		return
	}
	p.logger.Info("backfilled features", "track_id", job.TrackID)
}
