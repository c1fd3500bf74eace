package models

import (
	"github.com/shopspring/decimal"
)

// Account is a client's balance sheet. Total is never stored; it is always
// Available + Held.
type Account struct {
	ClientID  uint16          `json:"client_id"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns a zeroed, unlocked account for clientID.
func NewAccount(clientID uint16) *Account {
	return &Account{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Snapshot copies the account into its output form.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		ClientID:  a.ClientID,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// TransactionRecord is the history entry written for every accepted deposit
// or withdrawal. Disputes, resolves and chargebacks only look it up.
type TransactionRecord struct {
	TransactionID uint32          `json:"transaction_id"`
	ClientID      uint16          `json:"client_id"`
	Kind          EventType       `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Disputed      bool            `json:"disputed"`
}

// AccountSnapshot is one row of the final account report.
type AccountSnapshot struct {
	ClientID  uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}
