package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/payment-engine/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func deposit(client uint16, tx uint32, amount string) models.Event {
	return models.Event{Type: models.EventDeposit, ClientID: client, TransactionID: tx, Amount: dec(amount)}
}

func withdrawal(client uint16, tx uint32, amount string) models.Event {
	return models.Event{Type: models.EventWithdrawal, ClientID: client, TransactionID: tx, Amount: dec(amount)}
}

func lifecycle(t models.EventType, client uint16, tx uint32) models.Event {
	return models.Event{Type: t, ClientID: client, TransactionID: tx}
}

func assertBalances(t *testing.T, e *LedgerEngine, client uint16, available, held string, locked bool) {
	t.Helper()
	acc, ok := e.Account(client)
	require.True(t, ok, "account %d missing", client)
	assert.Equal(t, dec(available).String(), acc.Available.String(), "available")
	assert.Equal(t, dec(held).String(), acc.Held.String(), "held")
	assert.True(t, acc.Total().Equal(acc.Available.Add(acc.Held)), "total")
	assert.Equal(t, locked, acc.Locked, "locked")
}

func applyAll(t *testing.T, e *LedgerEngine, events ...models.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, e.Apply(ev))
	}
}

func TestLedgerEngine_Deposit(t *testing.T) {
	t.Run("creates account lazily", func(t *testing.T) {
		e := NewLedgerEngine()
		_, ok := e.Account(1)
		assert.False(t, ok)

		require.NoError(t, e.ApplyDeposit(deposit(1, 1, "1.5")))

		assertBalances(t, e, 1, "1.5", "0", false)
		tx, ok := e.Transaction(1)
		require.True(t, ok)
		assert.Equal(t, uint16(1), tx.ClientID)
		assert.False(t, tx.Disputed)
	})

	t.Run("duplicate transaction id is rejected", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"))

		err := e.ApplyDeposit(deposit(1, 1, "5"))
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
		assertBalances(t, e, 1, "10", "0", false)
	})

	t.Run("duplicate from another client does not create its account", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"))

		err := e.ApplyDeposit(deposit(2, 1, "5"))
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
		_, ok := e.Account(2)
		assert.False(t, ok)
		assert.Len(t, e.Snapshot(), 1)
	})

	t.Run("withdrawal id blocks a later deposit with the same id", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"), withdrawal(1, 2, "3"))

		err := e.ApplyDeposit(deposit(1, 2, "3"))
		assert.ErrorIs(t, err, ErrDuplicateTransaction)
		assertBalances(t, e, 1, "7", "0", false)
	})
}

func TestLedgerEngine_Withdrawal(t *testing.T) {
	t.Run("decrements available", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"), withdrawal(1, 2, "2.25"))
		assertBalances(t, e, 1, "7.75", "0", false)
	})

	t.Run("overdraft allowed by default", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "1"), withdrawal(1, 2, "3"))
		assertBalances(t, e, 1, "-2", "0", false)
	})

	t.Run("withdrawal on unknown client opens a negative account", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, withdrawal(4, 1, "1"))
		assertBalances(t, e, 4, "-1", "0", false)
	})

	t.Run("overdraft protection rejects", func(t *testing.T) {
		e := NewLedgerEngine(WithOverdraftProtection(true))
		applyAll(t, e, deposit(1, 1, "1"))

		err := e.ApplyWithdrawal(withdrawal(1, 2, "1.0001"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assertBalances(t, e, 1, "1", "0", false)
		_, recorded := e.Transaction(2)
		assert.False(t, recorded)

		require.NoError(t, e.ApplyWithdrawal(withdrawal(1, 3, "1")))
		assertBalances(t, e, 1, "0", "0", false)
	})
}

func TestLedgerEngine_DisputeLifecycle(t *testing.T) {
	t.Run("dispute then resolve round-trips", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "100"), deposit(1, 2, "20"))

		require.NoError(t, e.ApplyDispute(lifecycle(models.EventDispute, 1, 1)))
		assertBalances(t, e, 1, "20", "100", false)
		tx, _ := e.Transaction(1)
		assert.True(t, tx.Disputed)

		require.NoError(t, e.ApplyResolve(lifecycle(models.EventResolve, 1, 1)))
		assertBalances(t, e, 1, "120", "0", false)
		tx, _ = e.Transaction(1)
		assert.False(t, tx.Disputed)
	})

	t.Run("chargeback removes held funds and locks", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e,
			deposit(1, 1, "100"),
			deposit(1, 2, "5"),
			lifecycle(models.EventDispute, 1, 1),
			lifecycle(models.EventChargeback, 1, 1),
		)
		assertBalances(t, e, 1, "5", "0", true)
		tx, _ := e.Transaction(1)
		assert.False(t, tx.Disputed)

		assert.ErrorIs(t, e.ApplyDeposit(deposit(1, 3, "50")), ErrAccountLocked)
		assert.ErrorIs(t, e.ApplyWithdrawal(withdrawal(1, 4, "1")), ErrAccountLocked)
		assertBalances(t, e, 1, "5", "0", true)
		_, recorded := e.Transaction(3)
		assert.False(t, recorded)
	})

	t.Run("locked account still accepts dispute lifecycle events", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e,
			deposit(1, 1, "100"),
			deposit(1, 2, "5"),
			lifecycle(models.EventDispute, 1, 1),
			lifecycle(models.EventChargeback, 1, 1),
		)

		require.NoError(t, e.ApplyDispute(lifecycle(models.EventDispute, 1, 2)))
		assertBalances(t, e, 1, "0", "5", true)
		require.NoError(t, e.ApplyResolve(lifecycle(models.EventResolve, 1, 2)))
		assertBalances(t, e, 1, "5", "0", true)
	})

	t.Run("disputing a withdrawal holds the withdrawn amount", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"), withdrawal(1, 2, "4"))

		require.NoError(t, e.ApplyDispute(lifecycle(models.EventDispute, 1, 2)))
		assertBalances(t, e, 1, "2", "4", false)
	})

	t.Run("dispute may drive available negative", func(t *testing.T) {
		e := NewLedgerEngine()
		applyAll(t, e, deposit(1, 1, "10"), withdrawal(1, 2, "8"))

		require.NoError(t, e.ApplyDispute(lifecycle(models.EventDispute, 1, 1)))
		assertBalances(t, e, 1, "-8", "10", false)
	})
}

func TestLedgerEngine_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup []models.Event
		event models.Event
		want  error
	}{
		{
			name:  "dispute unknown transaction",
			setup: []models.Event{deposit(1, 1, "10")},
			event: lifecycle(models.EventDispute, 1, 99),
			want:  ErrUnknownTransaction,
		},
		{
			name:  "dispute from another client",
			setup: []models.Event{deposit(1, 1, "10"), deposit(2, 2, "10")},
			event: lifecycle(models.EventDispute, 2, 1),
			want:  ErrClientMismatch,
		},
		{
			name:  "dispute twice",
			setup: []models.Event{deposit(1, 1, "10"), lifecycle(models.EventDispute, 1, 1)},
			event: lifecycle(models.EventDispute, 1, 1),
			want:  ErrAlreadyDisputed,
		},
		{
			name:  "resolve unknown transaction",
			setup: []models.Event{deposit(1, 1, "10")},
			event: lifecycle(models.EventResolve, 1, 99),
			want:  ErrUnknownTransaction,
		},
		{
			name:  "resolve undisputed transaction",
			setup: []models.Event{deposit(1, 1, "10")},
			event: lifecycle(models.EventResolve, 1, 1),
			want:  ErrNotDisputed,
		},
		{
			name:  "resolve from another client",
			setup: []models.Event{deposit(1, 1, "10"), lifecycle(models.EventDispute, 1, 1)},
			event: lifecycle(models.EventResolve, 2, 1),
			want:  ErrClientMismatch,
		},
		{
			name:  "chargeback unknown transaction",
			setup: []models.Event{deposit(1, 1, "10")},
			event: lifecycle(models.EventChargeback, 1, 99),
			want:  ErrUnknownTransaction,
		},
		{
			name:  "chargeback undisputed transaction",
			setup: []models.Event{deposit(1, 1, "10")},
			event: lifecycle(models.EventChargeback, 1, 1),
			want:  ErrNotDisputed,
		},
		{
			name:  "chargeback from another client",
			setup: []models.Event{deposit(1, 1, "10"), lifecycle(models.EventDispute, 1, 1)},
			event: lifecycle(models.EventChargeback, 3, 1),
			want:  ErrClientMismatch,
		},
		{
			name:  "unknown event type",
			setup: []models.Event{deposit(1, 1, "10")},
			event: models.Event{Type: "transfer", ClientID: 1, TransactionID: 2, Amount: dec("1")},
			want:  ErrUnknownEventType,
		},
		{
			name:  "event type is case sensitive",
			setup: []models.Event{deposit(1, 1, "10")},
			event: models.Event{Type: "Deposit", ClientID: 1, TransactionID: 2, Amount: dec("1")},
			want:  ErrUnknownEventType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewLedgerEngine()
			applyAll(t, e, tt.setup...)
			before := e.Snapshot()
			txBefore, _ := e.Transaction(1)

			for i := 0; i < 3; i++ {
				err := e.Apply(tt.event)
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.want)

				var rej *RejectionError
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, tt.event.Type, rej.Type)
				assert.Equal(t, tt.event.TransactionID, rej.TransactionID)
			}

			assert.Equal(t, before, e.Snapshot())
			txAfter, _ := e.Transaction(1)
			assert.Equal(t, txBefore, txAfter)
		})
	}
}

func TestLedgerEngine_SkippedEventsDoNotAffectLaterOnes(t *testing.T) {
	clean := NewLedgerEngine()
	noisy := NewLedgerEngine()

	valid := []models.Event{
		deposit(1, 1, "3"),
		lifecycle(models.EventDispute, 1, 1),
		lifecycle(models.EventResolve, 1, 1),
		withdrawal(1, 2, "1"),
	}
	invalid := lifecycle(models.EventChargeback, 1, 42)

	for _, ev := range valid {
		require.NoError(t, clean.Apply(ev))
		assert.Error(t, noisy.Apply(invalid))
		require.NoError(t, noisy.Apply(ev))
		assert.Error(t, noisy.Apply(invalid))
	}

	assert.Equal(t, clean.Snapshot(), noisy.Snapshot())
}

func TestLedgerEngine_EndToEnd(t *testing.T) {
	e := NewLedgerEngine()
	applyAll(t, e,
		deposit(1, 1, "1.0"),
		deposit(2, 2, "2.0"),
		deposit(1, 3, "2.0"),
		withdrawal(1, 4, "1.5"),
		lifecycle(models.EventDispute, 1, 3),
	)

	snap := e.Snapshot()
	require.Len(t, snap, 2)

	// 1.0 + 2.0 - 1.5 = 1.5 available before the dispute moves tx 3's 2.0 to held.
	assert.Equal(t, uint16(1), snap[0].ClientID)
	assert.Equal(t, "-0.5000", snap[0].Available.StringFixed(4))
	assert.Equal(t, "2.0000", snap[0].Held.StringFixed(4))
	assert.Equal(t, "1.5000", snap[0].Total.StringFixed(4))
	assert.False(t, snap[0].Locked)

	assert.Equal(t, uint16(2), snap[1].ClientID)
	assert.Equal(t, "2.0000", snap[1].Available.StringFixed(4))
	assert.Equal(t, "0.0000", snap[1].Held.StringFixed(4))
	assert.Equal(t, "2.0000", snap[1].Total.StringFixed(4))
	assert.False(t, snap[1].Locked)
}

func TestLedgerEngine_DecimalArithmeticIsExact(t *testing.T) {
	e := NewLedgerEngine()
	for i := uint32(1); i <= 1000; i++ {
		require.NoError(t, e.Apply(deposit(1, i, "0.1")))
	}
	for i := uint32(1001); i <= 1500; i++ {
		require.NoError(t, e.Apply(withdrawal(1, i, "0.1")))
	}
	require.NoError(t, e.Apply(lifecycle(models.EventDispute, 1, 7)))

	acc, _ := e.Account(1)
	assert.Equal(t, "49.9", acc.Available.String())
	assert.Equal(t, "0.1", acc.Held.String())
	assert.Equal(t, "50", acc.Total().String())
}

func TestLedgerEngine_SnapshotIsSortedByClient(t *testing.T) {
	e := NewLedgerEngine()
	applyAll(t, e, deposit(9, 1, "1"), deposit(3, 2, "1"), deposit(65535, 3, "1"), deposit(0, 4, "1"))

	var got []uint16
	for _, s := range e.Snapshot() {
		got = append(got, s.ClientID)
	}
	assert.Equal(t, []uint16{0, 3, 9, 65535}, got)
}
