package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ruralpay/payment-engine/internal/audit"
	"github.com/ruralpay/payment-engine/internal/models"
)

// EventSource yields events in input order. Next returns io.EOF at the end of
// the stream and a *RecordError for a record that must be dropped.
type EventSource interface {
	Next() (models.Event, error)
}

// Replayer feeds an EventSource into a LedgerEngine one event at a time.
type Replayer struct {
	engine *LedgerEngine
	audit  *audit.AuditLogger
	stats  *ReplayStats
	now    func() time.Time
}

func NewReplayer(engine *LedgerEngine, auditLogger *audit.AuditLogger) *Replayer {
	if auditLogger == nil {
		auditLogger = audit.NewAuditLogger(nil)
	}
	return &Replayer{
		engine: engine,
		audit:  auditLogger,
		stats:  NewReplayStats(),
		now:    time.Now,
	}
}

// Run replays src until it is exhausted. Malformed records and rejected
// events are reported and skipped; only a failing source or a cancelled ctx
// stops the run early.
func (r *Replayer) Run(ctx context.Context, src EventSource) error {
	r.stats.start(r.now())
	defer func() { r.stats.finish(r.now()) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var recErr *RecordError
		if errors.As(err, &recErr) {
			r.stats.RecordMalformed()
			r.audit.LogMalformed(recErr.Line, recErr.Err)
			continue
		}
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}

		if err := r.engine.Apply(ev); err != nil {
			var rej *RejectionError
			if !errors.As(err, &rej) {
				return fmt.Errorf("apply %s: %w", ev.Type, err)
			}
			r.stats.RecordSkipped(rej)
			r.audit.LogSkipped(ev, rej.Reason)
			continue
		}
		r.stats.RecordApplied(ev.Type)
		r.audit.LogApplied(ev)
	}
}

func (r *Replayer) Engine() *LedgerEngine {
	return r.engine
}

func (r *Replayer) Stats() *ReplayStats {
	return r.stats
}
