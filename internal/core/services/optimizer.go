package services

import (
	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

// QueueOptimizer re-sequences an existing queue into a smoother chain. It is a
// greedy nearest-neighbour walk from the first track, not a global optimum.
type QueueOptimizer struct {
	analyzer CompatibilityAnalyzer
}

// NewQueueOptimizer constructs a QueueOptimizer.
func NewQueueOptimizer(analyzer CompatibilityAnalyzer) *QueueOptimizer {
	return &QueueOptimizer{analyzer: analyzer}
}

// Optimize returns tracks reordered for flow. The first track stays in place.
// Candidates must score above zero; once none does, the rest keep their
// original order.
func (o *QueueOptimizer) Optimize(tracks []domain.Track) []domain.Track {
	out := make([]domain.Track, 0, len(tracks))
	for _, step := range o.chain(tracks) {
		out = append(out, step.track)
	}
	return out
}

// OptimizeQueue returns a reordered copy of q. Moved entries are rescored
// with their new transition score.
func (o *QueueOptimizer) OptimizeQueue(q *domain.Queue) *domain.Queue {
	entries := q.Entries()
	if len(entries) < 2 {
		return domain.NewQueue(entries)
	}

	byID := make(map[string]domain.QueueEntry, len(entries))
	for _, e := range entries {
		byID[e.Track.ID] = e
	}

	out := make([]domain.QueueEntry, 0, len(entries))
	for i, step := range o.chain(q.Tracks()) {
		e := byID[step.track.ID]
		if i > 0 && step.scored {
			e.Score = step.score
			e.Reason = "reordered for flow"
		}
		out = append(out, e)
	}
	return domain.NewQueue(out)
}

type chainStep struct {
	track  domain.Track
	score  float64
	scored bool
}

func (o *QueueOptimizer) chain(tracks []domain.Track) []chainStep {
	if len(tracks) < 2 {
		steps := make([]chainStep, len(tracks))
		for i, t := range tracks {
			steps[i] = chainStep{track: t}
		}
		return steps
	}

	steps := []chainStep{{track: tracks[0]}}
	last := tracks[0]
	remaining := append([]domain.Track(nil), tracks[1:]...)

	for len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, candidate := range remaining {
			if score := o.analyzer.Analyze(last, candidate).Score; score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx < 0 {
			for _, t := range remaining {
				steps = append(steps, chainStep{track: t})
			}
			break
		}

		last = remaining[bestIdx]
		steps = append(steps, chainStep{track: last, score: bestScore, scored: true})
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return steps
}
