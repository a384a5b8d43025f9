package ledger_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func openAccount(t *testing.T, store ledger.Store, id ledger.AccountID, initial string) {
	now := time.Now()
	require.NoError(t, store.CreateAccount(context.Background(), ledger.Account{
		ID: id, Name: "Main " + string(id), Type: ledger.AccountBusiness, Currency: "TRY",
		InitialBalance: dec(initial), CreatedAt: now, UpdatedAt: now,
	}))
}

func balanceOf(t *testing.T, store ledger.Store, id ledger.AccountID) decimal.Decimal {
	a, err := store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.CurrentBalance
}

// =============================================================================
// RECORDER
// =============================================================================

func TestRecorder_RecordAndReverse(t *testing.T) {
	// GIVEN: An account opened with 500
	// WHEN: A 300 expense to a new supplier is recorded and then reversed
	// THEN: Balance and supplier totals move and move back

	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "500")

	tx, err := ledger.RecordAtomic(ctx, store, ledger.Entry{
		Type:         ledger.TxExpense,
		Amount:       dec("300"),
		AccountID:    "acc-1",
		Counterparty: &ledger.Counterparty{Name: "Kadıköy Emlak Ltd."},
		Date:         ledger.NewDate(2024, time.March, 14),
		CreatedBy:    "admin-1",
	})
	require.NoError(t, err)
	assert.True(t, tx.BalanceImpact.Equal(dec("-300")))
	assert.Equal(t, "TRY", tx.Currency)
	require.NotEmpty(t, tx.PersonID)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("200")))

	p, err := store.GetPerson(ctx, tx.PersonID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PersonCompany, p.Type)
	assert.True(t, p.AutoCreated)
	assert.True(t, p.TotalSent.Equal(dec("300")))
	assert.Equal(t, 1, p.TransactionCount)

	err = store.WithTx(ctx, func(s ledger.Store) error {
		_, err := ledger.NewRecorder(s).Reverse(ctx, tx.ID)
		return err
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("500")))

	p, err = store.GetPerson(ctx, tx.PersonID)
	require.NoError(t, err)
	assert.True(t, p.TotalSent.IsZero())
	assert.Equal(t, 0, p.TransactionCount)

	_, err = store.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRecorder_RequireFunds(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "100")

	_, err := ledger.RecordAtomic(ctx, store, ledger.Entry{
		Type: ledger.TxExpense, Amount: dec("90"), Fees: dec("15"), AccountID: "acc-1", RequireFunds: true,
	})
	var ife *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.True(t, ife.Available.Equal(dec("100")))
	assert.True(t, ife.Requested.Equal(dec("105")))
	assert.True(t, ife.Shortfall().Equal(dec("5")))

	// the failed attempt left nothing behind
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("100")))
	n, err := store.CountTransactions(ctx, ledger.TransactionFilter{AccountID: "acc-1"})
	require.NoError(t, err)
	assert.Zero(t, n)

	// without the guard a manual correction may go negative
	_, err = ledger.RecordAtomic(ctx, store, ledger.Entry{
		Type: ledger.TxFee, Amount: dec("120"), AccountID: "acc-1",
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("-20")))
}

func TestRecorder_Validation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "0")

	tests := []struct {
		name  string
		entry ledger.Entry
	}{
		{"unknown type", ledger.Entry{Type: "bonus", Amount: dec("1"), AccountID: "acc-1"}},
		{"zero amount", ledger.Entry{Type: ledger.TxIncome, AccountID: "acc-1"}},
		{"negative fees", ledger.Entry{Type: ledger.TxExpense, Amount: dec("1"), Fees: dec("-1"), AccountID: "acc-1"}},
		{"no account", ledger.Entry{Type: ledger.TxIncome, Amount: dec("1")}},
	}
	for _, tc := range tests {
		_, err := ledger.RecordAtomic(ctx, store, tc.entry)
		assert.ErrorIs(t, err, ledger.ErrValidation, tc.name)
	}

	_, err := ledger.RecordAtomic(ctx, store, ledger.Entry{Type: ledger.TxIncome, Amount: dec("1"), AccountID: "missing"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRecorder_AmountBounds(t *testing.T) {
	// GIVEN: An account opened with 1000
	// WHEN: Amounts that round to zero or exceed MaxAmount are recorded
	// THEN: Each is refused and the balance never moves or flips sign

	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "1000")

	tests := []struct {
		name  string
		entry ledger.Entry
	}{
		{"rounds to zero", ledger.Entry{Type: ledger.TxIncome, Amount: dec("0.004"), AccountID: "acc-1"}},
		{"past int64 minor units", ledger.Entry{Type: ledger.TxIncome, Amount: dec("100000000000000000"), AccountID: "acc-1"}},
		{"just above the bound", ledger.Entry{Type: ledger.TxExpense, Amount: dec("1000000000000000.01"), AccountID: "acc-1"}},
		{"fees above the bound", ledger.Entry{Type: ledger.TxExpense, Amount: dec("1"), Fees: dec("2000000000000000"), AccountID: "acc-1"}},
	}
	for _, tc := range tests {
		_, err := ledger.RecordAtomic(ctx, store, tc.entry)
		assert.ErrorIs(t, err, ledger.ErrValidation, tc.name)
	}
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("1000")))

	// 0.005 rounds up to a cent and MaxAmount itself is accepted
	tx, err := ledger.RecordAtomic(ctx, store, ledger.Entry{Type: ledger.TxIncome, Amount: dec("0.005"), AccountID: "acc-1"})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(dec("0.01")))

	_, err = ledger.RecordAtomic(ctx, store, ledger.Entry{Type: ledger.TxIncome, Amount: ledger.MaxAmount, AccountID: "acc-1"})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(ledger.MaxAmount.Add(dec("1000.01"))))

	stored, err := store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.BalanceImpact.IsPositive())
}

func TestRecorder_CurrencyMustMatchAccount(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "1000")

	_, err := ledger.RecordAtomic(ctx, store, ledger.Entry{
		Type: ledger.TxIncome, Amount: dec("500"), AccountID: "acc-1", Currency: "USD",
	})
	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "currency", ve.Field)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("1000")))

	_, err = ledger.RecordAtomic(ctx, store, ledger.Entry{
		Type: ledger.TxIncome, Amount: dec("500"), AccountID: "acc-1", Currency: "try",
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("1500")))
}

// =============================================================================
// COUNTERPARTY REGISTRY
// =============================================================================

func TestRegistry_ResolvesToOnePerson(t *testing.T) {
	// GIVEN: A person auto-created from a name
	// WHEN: The same name arrives with different case, then by IBAN only
	// THEN: Every resolve returns the same person

	ctx := context.Background()
	store := newStore(t)
	reg := ledger.NewRegistry(store)

	id, err := reg.Resolve(ctx, ledger.Counterparty{Name: "Ayşe Yılmaz", IBAN: "TR980006400000011223344556", Source: "payment_order"})
	require.NoError(t, err)

	again, err := reg.Resolve(ctx, ledger.Counterparty{Name: "  AYŞE YILMAZ "})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	byIBAN, err := reg.Resolve(ctx, ledger.Counterparty{IBAN: "TR980006400000011223344556"})
	require.NoError(t, err)
	assert.Equal(t, id, byIBAN)

	p, err := store.GetPerson(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.PersonIndividual, p.Type)
	assert.Equal(t, "payment_order", p.CreationSource)

	_, err = reg.Resolve(ctx, ledger.Counterparty{IBAN: "TR000000000000000000000000"})
	assert.ErrorIs(t, err, ledger.ErrValidation, "an unknown IBAN alone cannot create a person")
}

// missOnce hides the first lookup, as if another writer inserted the person
// between our lookup and our insert.
type missOnce struct {
	ledger.PersonStore
	missed bool
}

func (m *missOnce) FindPerson(ctx context.Context, name, iban, taxNumber string) (*ledger.Person, error) {
	if !m.missed {
		m.missed = true
		return nil, &ledger.NotFoundError{Kind: "person", ID: name}
	}
	return m.PersonStore.FindPerson(ctx, name, iban, taxNumber)
}

func TestRegistry_DuplicateInsertRetriesAsLookup(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	existing, err := ledger.NewRegistry(store).Resolve(ctx, ledger.Counterparty{Name: "Deniz Kaya"})
	require.NoError(t, err)

	got, err := ledger.NewRegistry(&missOnce{PersonStore: store}).Resolve(ctx, ledger.Counterparty{Name: "deniz kaya"})
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	people, err := store.ListPeople(ctx, ledger.PersonFilter{})
	require.NoError(t, err)
	assert.Len(t, people, 1)
}

func TestRegistry_ConcurrentResolveCreatesOnePerson(t *testing.T) {
	// GIVEN: A file-backed store without the person
	// WHEN: Eight writers resolve the same new name at once, over several rounds
	// THEN: Every writer in a round gets the same PersonID

	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for round := 0; round < 10; round++ {
		name := fmt.Sprintf("Supplier %d Ltd.", round)
		ids := make([]ledger.PersonID, 8)
		errs := make([]error, 8)

		var wg sync.WaitGroup
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i], errs[i] = ledger.NewRegistry(store).Resolve(ctx, ledger.Counterparty{Name: name})
			}(i)
		}
		wg.Wait()

		for i := range ids {
			require.NoError(t, errs[i], name)
			assert.Equal(t, ids[0], ids[i], name)
		}
	}

	people, err := store.ListPeople(ctx, ledger.PersonFilter{})
	require.NoError(t, err)
	assert.Len(t, people, 10)
}

// =============================================================================
// RECONCILER
// =============================================================================

func TestReconciler_DetectsAndRepairsDrift(t *testing.T) {
	// GIVEN: An account whose stored balance was bumped outside the Recorder
	// WHEN: It is reconciled, first read-only and then with repair
	// THEN: The drift is reported, then applied and audited

	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "1000")
	_, err := ledger.RecordAtomic(ctx, store, ledger.Entry{Type: ledger.TxIncome, Amount: dec("250"), AccountID: "acc-1"})
	require.NoError(t, err)

	_, err = store.IncrementBalance(ctx, "acc-1", dec("40"), false)
	require.NoError(t, err)

	r := ledger.NewReconciler(store, nil)
	d, err := r.Recompute(ctx, "acc-1", false, "system:reconciler")
	require.NoError(t, err)
	assert.False(t, d.Consistent())
	assert.True(t, d.Stored.Equal(dec("1290")))
	assert.True(t, d.Calculated.Equal(dec("1250")))
	assert.True(t, d.Drift.Equal(dec("-40")))
	assert.False(t, d.Repaired)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("1290")), "read-only run changes nothing")

	drifts, err := r.RecomputeAll(ctx, true, "system:reconciler")
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].Repaired)
	assert.True(t, balanceOf(t, store, "acc-1").Equal(dec("1250")))

	entries, err := store.QueryAudit(ctx, ledger.AuditFilter{Actions: []ledger.AuditAction{ledger.AuditReconciliation}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system:reconciler", entries[0].ActorID)

	d, err = r.Recompute(ctx, "acc-1", true, "system:reconciler")
	require.NoError(t, err)
	assert.True(t, d.Consistent())
	assert.False(t, d.Repaired)
}

// =============================================================================
// STATEMENT
// =============================================================================

func TestBuildStatement(t *testing.T) {
	// GIVEN: An account opened with 1000, income in February, expense and fee in March
	// WHEN: The March statement is built
	// THEN: February lands in the opening balance and closing matches the live balance

	ctx := context.Background()
	store := newStore(t)
	openAccount(t, store, "acc-1", "1000")

	entries := []ledger.Entry{
		{Type: ledger.TxIncome, Amount: dec("250"), AccountID: "acc-1", Date: ledger.NewDate(2024, time.February, 20)},
		{Type: ledger.TxExpense, Amount: dec("300"), Fees: dec("2.5"), AccountID: "acc-1", Date: ledger.NewDate(2024, time.March, 14)},
		{Type: ledger.TxRefund, Amount: dec("40"), AccountID: "acc-1", Date: time.Date(2024, time.March, 31, 22, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		_, err := ledger.RecordAtomic(ctx, store, e)
		require.NoError(t, err)
	}

	march := ledger.PeriodConfig{Type: ledger.PeriodMonth}.PeriodFor(ledger.NewDate(2024, time.March, 1))
	st, err := ledger.BuildStatement(ctx, store, "acc-1", march)
	require.NoError(t, err)
	assert.Equal(t, "TRY", st.Currency)
	assert.True(t, st.Opening.Equal(dec("1250")))
	assert.True(t, st.Inflows.Equal(dec("40")))
	assert.True(t, st.Outflows.Equal(dec("302.5")))
	assert.True(t, st.Closing.Equal(dec("987.5")))
	assert.Equal(t, 2, st.Count)
	assert.True(t, st.Closing.Equal(balanceOf(t, store, "acc-1")))

	_, err = ledger.BuildStatement(ctx, store, "missing", march)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
