package lifecycle_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// =============================================================================
// MANUAL TRANSACTIONS
// =============================================================================

func TestDeleteTransaction_RestoresBalance(t *testing.T) {
	// GIVEN: An expense with impact -300 that left the balance at 200
	// WHEN: The transaction is deleted
	// THEN: Balance is back to 500 and the counterparty totals are walked back

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "500")

	tx, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{
		Type:             ledger.TxExpense,
		Amount:           dec("300"),
		AccountID:        acc.ID,
		CounterpartyName: "Kırtasiye Ltd. Şti.",
		Description:      "Stationery",
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceImpact.Equal(dec("-300")))
	assert.True(t, env.balance(t, acc.ID).Equal(dec("200")))

	p, err := env.svc.GetPerson(ctx, tx.PersonID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PersonCompany, p.Type)
	assert.True(t, p.TotalSent.Equal(dec("300")))

	deleted, err := env.svc.DeleteTransaction(ctx, admin, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, deleted.ID)
	assert.True(t, env.balance(t, acc.ID).Equal(dec("500")))

	p, err = env.svc.GetPerson(ctx, tx.PersonID)
	require.NoError(t, err)
	assert.True(t, p.TotalSent.IsZero())
	assert.Zero(t, p.TransactionCount)

	_, err = env.svc.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	env.assertConsistent(t, acc.ID)
}

func TestCreateTransaction_SignRules(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "1000")

	cases := []struct {
		typ    ledger.TxType
		amount string
		fees   string
		impact string
	}{
		{ledger.TxIncome, "100", "0", "100"},
		{ledger.TxRefund, "20", "0", "20"},
		{ledger.TxInterest, "1.25", "0", "1.25"},
		{ledger.TxExpense, "50", "2.50", "-52.50"},
		{ledger.TxTransfer, "10", "1", "-11"},
		{ledger.TxFee, "3", "0", "-3"},
	}
	for _, c := range cases {
		tx, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{
			Type: c.typ, Amount: dec(c.amount), Fees: dec(c.fees), AccountID: acc.ID,
		})
		require.NoError(t, err, c.typ)
		assert.True(t, tx.BalanceImpact.Equal(dec(c.impact)), "%s impact %s", c.typ, tx.BalanceImpact)
	}

	// 1000 + 100 + 20 + 1.25 - 52.50 - 11 - 3
	assert.True(t, env.balance(t, acc.ID).Equal(dec("1054.75")))
	env.assertConsistent(t, acc.ID)
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "10")

	_, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{Type: ledger.TxIncome, Amount: dec("0"), AccountID: acc.ID})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{Type: "bonus", Amount: dec("1"), AccountID: acc.ID})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{Type: ledger.TxIncome, Amount: dec("1"), AccountID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// BALANCE INVARIANT
// =============================================================================

func TestBalanceInvariant_RandomizedSequence(t *testing.T) {
	// GIVEN: Two accounts
	// WHEN: A long random mix of creates, deletes, adjustments and order completions runs
	// THEN: After every step current_balance == initial + Σ completed impacts

	env := newTestEnv(t, nil)
	ctx := context.Background()
	accounts := []*ledger.Account{env.account(t, "1000"), env.account(t, "250.50")}
	types := []ledger.TxType{ledger.TxIncome, ledger.TxExpense, ledger.TxTransfer, ledger.TxFee, ledger.TxInterest, ledger.TxRefund}
	names := []string{"Ali Veli", "Acme Inc", "Deniz", "Mavi A.Ş."}

	rng := rand.New(rand.NewSource(42))
	amount := func() decimal.Decimal {
		return decimal.New(int64(rng.Intn(50000)+1), -2)
	}

	var live []ledger.TransactionID
	for step := 0; step < 200; step++ {
		acc := accounts[rng.Intn(len(accounts))]

		switch op := rng.Intn(10); {
		case op < 5:
			tx, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{
				Type:             types[rng.Intn(len(types))],
				Amount:           amount(),
				Fees:             decimal.New(int64(rng.Intn(300)), -2),
				AccountID:        acc.ID,
				CounterpartyName: names[rng.Intn(len(names))],
			})
			require.NoError(t, err)
			live = append(live, tx.ID)

		case op < 7 && len(live) > 0:
			i := rng.Intn(len(live))
			_, err := env.svc.DeleteTransaction(ctx, admin, live[i])
			require.NoError(t, err)
			live = append(live[:i], live[i+1:]...)

		case op < 8:
			delta := amount()
			if rng.Intn(2) == 0 {
				delta = delta.Neg()
			}
			tx, err := env.svc.AdjustBalance(ctx, admin, acc.ID, delta, "")
			require.NoError(t, err)
			live = append(live, tx.ID)

		default:
			o := env.approvedOrder(t, amount().String(), acc.ID)
			_, err := env.svc.CompleteOrder(ctx, admin, o.ID, lifecycle.CompleteInput{})
			if err != nil {
				require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
			}
		}

		for _, a := range accounts {
			env.assertConsistent(t, a.ID)
		}
	}

	// a statement spanning the whole history closes at the live balance
	all, err := ledger.NewPeriod(ledger.NewDate(2000, time.January, 1), env.svc.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	for _, a := range accounts {
		st, err := env.svc.AccountStatement(ctx, a.ID, all)
		require.NoError(t, err)
		current, err := env.svc.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, st.Opening.Equal(current.InitialBalance))
		assert.True(t, st.Closing.Equal(current.CurrentBalance), "closing %s vs balance %s", st.Closing, current.CurrentBalance)
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAdjustBalance(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "100")

	tx, err := env.svc.AdjustBalance(ctx, admin, acc.ID, dec("-40"), "bank correction")
	require.NoError(t, err)
	assert.Equal(t, ledger.TxExpense, tx.Type)
	assert.True(t, tx.Amount.Equal(dec("40")))
	assert.True(t, env.balance(t, acc.ID).Equal(dec("60")))

	_, err = env.svc.AdjustBalance(ctx, admin, acc.ID, decimal.Zero, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	entries, err := env.svc.QueryAudit(ctx, admin, ledger.AuditFilter{
		EntityID: string(acc.ID),
		Actions:  []ledger.AuditAction{ledger.AuditBalanceAdjusted},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "-40.00", entries[0].Payload["delta"])
}

func TestDeleteAccount_RefusedWithTransactions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "100")
	empty := env.account(t, "0")

	_, err := env.svc.AdjustBalance(ctx, admin, acc.ID, dec("5"), "")
	require.NoError(t, err)

	err = env.svc.DeleteAccount(ctx, admin, acc.ID)
	var de *ledger.DependentsError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "transactions", de.Dependents)

	require.NoError(t, env.svc.DeleteAccount(ctx, admin, empty.ID))
	_, err = env.svc.GetAccount(ctx, empty.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateAccount_KeepsBalances(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.account(t, "100")

	updated, err := env.svc.UpdateAccount(context.Background(), admin, acc.ID, lifecycle.AccountInput{
		Name: "Renamed", IBAN: "TR00", Type: ledger.AccountSavings, InitialBalance: dec("99999"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, ledger.AccountSavings, updated.Type)
	assert.True(t, env.balance(t, acc.ID).Equal(dec("100")))

	stored, err := env.svc.GetAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.InitialBalance.Equal(dec("100")))
}

func TestReconcile_RepairsDrift(t *testing.T) {
	// GIVEN: A stored balance corrupted by a write that bypassed the Recorder
	// WHEN: Reconciling read-only, then with repair
	// THEN: The drift is reported, then applied through the Writer and audited

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "100")
	_, err := env.svc.AdjustBalance(ctx, admin, acc.ID, dec("50"), "")
	require.NoError(t, err)

	_, err = env.store.IncrementBalance(ctx, acc.ID, dec("7.25"), false)
	require.NoError(t, err)

	d, err := env.svc.Reconcile(ctx, admin, acc.ID, false)
	require.NoError(t, err)
	assert.True(t, d.Drift.Equal(dec("-7.25")))
	assert.False(t, d.Repaired)
	assert.True(t, env.balance(t, acc.ID).Equal(dec("157.25")), "read-only pass changes nothing")

	d, err = env.svc.Reconcile(ctx, admin, acc.ID, true)
	require.NoError(t, err)
	assert.True(t, d.Repaired)
	assert.True(t, env.balance(t, acc.ID).Equal(dec("150")))
	env.assertConsistent(t, acc.ID)

	entries, err := env.svc.QueryAudit(ctx, admin, ledger.AuditFilter{Actions: []ledger.AuditAction{ledger.AuditReconciliation}})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, env.events.Types(), "account.drift")
}
