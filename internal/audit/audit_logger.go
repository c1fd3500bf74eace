package audit

import (
	"go.uber.org/zap"

	"github.com/ruralpay/payment-engine/internal/models"
)

const (
	StatusApplied   = "APPLIED"
	StatusSkipped   = "SKIPPED"
	StatusMalformed = "MALFORMED"
)

// AuditEvent is the structured shape of one diagnostic entry.
type AuditEvent struct {
	Status        string
	EventType     models.EventType
	ClientID      uint16
	TransactionID uint32
	Line          int
	Reason        error
}

// AuditLogger is the diagnostic channel of a replay. Skipped and malformed
// records are warnings; applied events are debug noise.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("audit")}
}

func (a *AuditLogger) LogApplied(ev models.Event) {
	a.log(AuditEvent{
		Status:        StatusApplied,
		EventType:     ev.Type,
		ClientID:      ev.ClientID,
		TransactionID: ev.TransactionID,
		Line:          ev.Line,
	})
}

func (a *AuditLogger) LogSkipped(ev models.Event, reason error) {
	a.log(AuditEvent{
		Status:        StatusSkipped,
		EventType:     ev.Type,
		ClientID:      ev.ClientID,
		TransactionID: ev.TransactionID,
		Line:          ev.Line,
		Reason:        reason,
	})
}

func (a *AuditLogger) LogMalformed(line int, reason error) {
	a.log(AuditEvent{
		Status: StatusMalformed,
		Line:   line,
		Reason: reason,
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	fields := []zap.Field{
		zap.String("status", event.Status),
		zap.Int("line", event.Line),
	}
	if event.Status != StatusMalformed {
		fields = append(fields,
			zap.String("event_type", string(event.EventType)),
			zap.Uint16("client_id", event.ClientID),
			zap.Uint32("transaction_id", event.TransactionID),
		)
	}

	if event.Reason == nil {
		a.logger.Debug("event applied", fields...)
		return
	}
	fields = append(fields, zap.String("reason", event.Reason.Error()))
	if event.Status == StatusMalformed {
		a.logger.Warn("record dropped", fields...)
		return
	}
	a.logger.Warn("event skipped", fields...)
}
