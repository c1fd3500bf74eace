package services

import (
	"errors"
	"sync"
	"time"

	"github.com/ruralpay/payment-engine/internal/models"
)

// ReplayStats counts what happened to every input record of a run. It is
// written by the replay loop and may be read concurrently by the snapshot
// server.
type ReplayStats struct {
	mu sync.RWMutex

	applied   map[models.EventType]int64
	skipped   map[string]int64
	malformed int64

	startedAt  time.Time
	finishedAt time.Time
}

// StatsSummary is a point-in-time copy of ReplayStats.
type StatsSummary struct {
	Applied     int64                      `json:"applied"`
	Skipped     int64                      `json:"skipped"`
	Malformed   int64                      `json:"malformed"`
	ByType      map[models.EventType]int64 `json:"applied_by_type"`
	SkipReasons map[string]int64           `json:"skip_reasons"`
	StartedAt   time.Time                  `json:"started_at"`
	FinishedAt  time.Time                  `json:"finished_at"`
	Duration    time.Duration              `json:"duration_ns"`
}

func NewReplayStats() *ReplayStats {
	return &ReplayStats{
		applied: make(map[models.EventType]int64),
		skipped: make(map[string]int64),
	}
}

func (s *ReplayStats) start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = now
}

func (s *ReplayStats) finish(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishedAt = now
}

func (s *ReplayStats) RecordApplied(t models.EventType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied[t]++
}

// RecordSkipped counts a business-rule rejection under the text of its
// sentinel reason.
func (s *ReplayStats) RecordSkipped(reason error) {
	key := "unknown"
	if reason != nil {
		key = reason.Error()
		var rej *RejectionError
		if errors.As(reason, &rej) && rej.Reason != nil {
			key = rej.Reason.Error()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped[key]++
}

func (s *ReplayStats) RecordMalformed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.malformed++
}

func (s *ReplayStats) Summary() StatsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := StatsSummary{
		Malformed:   s.malformed,
		ByType:      make(map[models.EventType]int64, len(s.applied)),
		SkipReasons: make(map[string]int64, len(s.skipped)),
		StartedAt:   s.startedAt,
		FinishedAt:  s.finishedAt,
	}
	for t, n := range s.applied {
		sum.ByType[t] = n
		sum.Applied += n
	}
	for reason, n := range s.skipped {
		sum.SkipReasons[reason] = n
		sum.Skipped += n
	}
	if !s.finishedAt.IsZero() {
		sum.Duration = s.finishedAt.Sub(s.startedAt)
	}
	return sum
}
