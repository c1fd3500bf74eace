package services

import (
	"errors"
	"fmt"

	"github.com/ruralpay/payment-engine/internal/models"
)

var (
	ErrAccountLocked        = errors.New("account is locked")
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrUnknownTransaction   = errors.New("transaction not found in history")
	ErrClientMismatch       = errors.New("client does not own the referenced transaction")
	ErrAlreadyDisputed      = errors.New("transaction is already disputed")
	ErrNotDisputed          = errors.New("transaction is not disputed")
	ErrInsufficientFunds    = errors.New("insufficient available funds")
	ErrUnknownEventType     = errors.New("unknown event type")
)

// RejectionError reports an event the engine skipped without touching state.
type RejectionError struct {
	Type          models.EventType
	ClientID      uint16
	TransactionID uint32
	Reason        error
}

func reject(ev models.Event, reason error) *RejectionError {
	return &RejectionError{
		Type:          ev.Type,
		ClientID:      ev.ClientID,
		TransactionID: ev.TransactionID,
		Reason:        reason,
	}
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("skipping %s (client %d, tx %d): %v", e.Type, e.ClientID, e.TransactionID, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// RecordError reports an input row that could not be turned into an event.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
