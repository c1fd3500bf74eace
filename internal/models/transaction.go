package models

import (
	"github.com/shopspring/decimal"
)

// EventType is the case-sensitive type token of an input row.
type EventType string

const (
	EventDeposit    EventType = "deposit"
	EventWithdrawal EventType = "withdrawal"
	EventDispute    EventType = "dispute"
	EventResolve    EventType = "resolve"
	EventChargeback EventType = "chargeback"
)

// Known reports whether t is one of the five supported event types.
func (t EventType) Known() bool {
	switch t {
	case EventDeposit, EventWithdrawal, EventDispute, EventResolve, EventChargeback:
		return true
	}
	return false
}

// CarriesAmount reports whether events of this type bring their own amount.
// Dispute-lifecycle events use the amount recorded on the original transaction.
func (t EventType) CarriesAmount() bool {
	return t == EventDeposit || t == EventWithdrawal
}

// Event is a structurally valid input record.
type Event struct {
	Type          EventType       `json:"type"`
	ClientID      uint16          `json:"client"`
	TransactionID uint32          `json:"tx"`
	Amount        decimal.Decimal `json:"amount"`
	// Line is the 1-based input line the event was read from, 0 when unknown.
	Line int `json:"-"`
}
