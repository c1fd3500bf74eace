package services

import (
	"sort"

	"github.com/ruralpay/payment-engine/internal/models"
)

// LedgerEngine applies events to the accounts and transaction-history tables
// it owns. It never performs I/O: every skipped event is reported through the
// returned error and leaves both tables untouched.
//
// A LedgerEngine is not safe for concurrent use; events must be applied in
// input order.
type LedgerEngine struct {
	accounts map[uint16]*models.Account
	history  map[uint32]*models.TransactionRecord

	overdraftProtection bool
}

type EngineOption func(*LedgerEngine)

// WithOverdraftProtection rejects withdrawals larger than the available
// balance. Off by default, in which case available may go negative.
func WithOverdraftProtection(enabled bool) EngineOption {
	return func(e *LedgerEngine) {
		e.overdraftProtection = enabled
	}
}

func NewLedgerEngine(opts ...EngineOption) *LedgerEngine {
	e := &LedgerEngine{
		accounts: make(map[uint16]*models.Account),
		history:  make(map[uint32]*models.TransactionRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply dispatches ev to the handler for its type.
func (e *LedgerEngine) Apply(ev models.Event) error {
	switch ev.Type {
	case models.EventDeposit:
		return e.ApplyDeposit(ev)
	case models.EventWithdrawal:
		return e.ApplyWithdrawal(ev)
	case models.EventDispute:
		return e.ApplyDispute(ev)
	case models.EventResolve:
		return e.ApplyResolve(ev)
	case models.EventChargeback:
		return e.ApplyChargeback(ev)
	default:
		return reject(ev, ErrUnknownEventType)
	}
}

func (e *LedgerEngine) ApplyDeposit(ev models.Event) error {
	acc, err := e.fundingAccount(ev)
	if err != nil {
		return err
	}

	acc.Available = acc.Available.Add(ev.Amount)
	e.record(acc, ev)
	return nil
}

func (e *LedgerEngine) ApplyWithdrawal(ev models.Event) error {
	acc, err := e.fundingAccount(ev)
	if err != nil {
		return err
	}
	if e.overdraftProtection && acc.Available.LessThan(ev.Amount) {
		return reject(ev, ErrInsufficientFunds)
	}

	acc.Available = acc.Available.Sub(ev.Amount)
	e.record(acc, ev)
	return nil
}

// ApplyDispute moves the disputed amount from available to held.
func (e *LedgerEngine) ApplyDispute(ev models.Event) error {
	tx, acc, err := e.referenced(ev)
	if err != nil {
		return err
	}
	if tx.Disputed {
		return reject(ev, ErrAlreadyDisputed)
	}

	acc.Available = acc.Available.Sub(tx.Amount)
	acc.Held = acc.Held.Add(tx.Amount)
	tx.Disputed = true
	return nil
}

// ApplyResolve releases held funds back to available.
func (e *LedgerEngine) ApplyResolve(ev models.Event) error {
	tx, acc, err := e.referenced(ev)
	if err != nil {
		return err
	}
	if !tx.Disputed {
		return reject(ev, ErrNotDisputed)
	}

	acc.Available = acc.Available.Add(tx.Amount)
	acc.Held = acc.Held.Sub(tx.Amount)
	tx.Disputed = false
	return nil
}

// ApplyChargeback removes held funds for good and locks the account.
func (e *LedgerEngine) ApplyChargeback(ev models.Event) error {
	tx, acc, err := e.referenced(ev)
	if err != nil {
		return err
	}
	if !tx.Disputed {
		return reject(ev, ErrNotDisputed)
	}

	acc.Held = acc.Held.Sub(tx.Amount)
	acc.Locked = true
	tx.Disputed = false
	return nil
}

// fundingAccount runs the checks shared by deposits and withdrawals and
// returns the account to mutate. The account is only created once all checks
// pass, so a rejected event leaves no trace.
func (e *LedgerEngine) fundingAccount(ev models.Event) (*models.Account, error) {
	acc, ok := e.accounts[ev.ClientID]
	if ok && acc.Locked {
		return nil, reject(ev, ErrAccountLocked)
	}
	if _, dup := e.history[ev.TransactionID]; dup {
		return nil, reject(ev, ErrDuplicateTransaction)
	}
	if !ok {
		acc = models.NewAccount(ev.ClientID)
	}
	return acc, nil
}

func (e *LedgerEngine) record(acc *models.Account, ev models.Event) {
	e.accounts[acc.ClientID] = acc
	e.history[ev.TransactionID] = &models.TransactionRecord{
		TransactionID: ev.TransactionID,
		ClientID:      ev.ClientID,
		Kind:          ev.Type,
		Amount:        ev.Amount,
	}
}

// referenced resolves the transaction a dispute-lifecycle event points at and
// its owning account. Locked accounts are not checked here.
func (e *LedgerEngine) referenced(ev models.Event) (*models.TransactionRecord, *models.Account, error) {
	tx, ok := e.history[ev.TransactionID]
	if !ok {
		return nil, nil, reject(ev, ErrUnknownTransaction)
	}
	if tx.ClientID != ev.ClientID {
		return nil, nil, reject(ev, ErrClientMismatch)
	}
	return tx, e.accounts[tx.ClientID], nil
}

// Account returns a copy of the client's account.
func (e *LedgerEngine) Account(clientID uint16) (models.Account, bool) {
	acc, ok := e.accounts[clientID]
	if !ok {
		return models.Account{}, false
	}
	return *acc, true
}

// Transaction returns a copy of the history entry for txID.
func (e *LedgerEngine) Transaction(txID uint32) (models.TransactionRecord, bool) {
	tx, ok := e.history[txID]
	if !ok {
		return models.TransactionRecord{}, false
	}
	return *tx, true
}

// Snapshot returns every account ordered by client id.
func (e *LedgerEngine) Snapshot() []models.AccountSnapshot {
	out := make([]models.AccountSnapshot, 0, len(e.accounts))
	for _, acc := range e.accounts {
		out = append(out, acc.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClientID < out[j].ClientID
	})
	return out
}
