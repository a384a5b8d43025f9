package lifecycle_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/events"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	admin = ledger.Actor{ID: "admin-1", IsAdmin: true}
	user  = ledger.Actor{ID: "user-1"}
	other = ledger.Actor{ID: "user-2"}

	// Friday 15 March 2024, mid-morning
	testNow   = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	testToday = ledger.DateOf(testNow)
)

type testEnv struct {
	svc    *lifecycle.Service
	store  *sqlite.Store
	events *events.Recorder
}

func newTestEnv(t *testing.T, extractor extract.Extractor) *testEnv {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newEnvOn(t, store, extractor)
}

// newFileTestEnv uses a database file so concurrent writers really contend.
func newFileTestEnv(t *testing.T) *testEnv {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newEnvOn(t, store, nil)
}

func newEnvOn(t *testing.T, store *sqlite.Store, extractor extract.Extractor) *testEnv {
	rec := &events.Recorder{}
	svc := lifecycle.NewService(store, lifecycle.Options{
		Extractor: extractor,
		Events:    rec,
		Policy:    lifecycle.DefaultExtractionPolicy(),
		Now:       ledger.FixedClock(testNow),
	})
	return &testEnv{svc: svc, store: store, events: rec}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (e *testEnv) account(t *testing.T, initial string) *ledger.Account {
	a, err := e.svc.CreateAccount(context.Background(), admin, lifecycle.AccountInput{
		Name:           "Main " + initial,
		BankName:       "Garanti",
		Type:           ledger.AccountBusiness,
		InitialBalance: dec(initial),
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) balance(t *testing.T, id ledger.AccountID) decimal.Decimal {
	a, err := e.svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.CurrentBalance
}

// assertConsistent checks current_balance == initial + Σ completed impacts.
func (e *testEnv) assertConsistent(t *testing.T, id ledger.AccountID) {
	t.Helper()
	d, err := e.svc.Reconcile(context.Background(), admin, id, false)
	require.NoError(t, err)
	assert.True(t, d.Consistent(), "drift %s on %s", d.Drift, id)
}

// stubExtractor returns a canned reading.
type stubExtractor struct {
	res   *extract.Result
	err   error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, receiptRef string) (*extract.Result, error) {
	s.calls++
	return s.res, s.err
}

// =============================================================================
// PERMISSIONS
// =============================================================================

func TestMoneyMovingOperations_RequireAdmin(t *testing.T) {
	// GIVEN: A non-admin actor
	// WHEN: They try to create entities or move money
	// THEN: Every call fails with ErrInsufficientPermission

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "100")

	_, err := env.svc.CreateAccount(ctx, user, lifecycle.AccountInput{Name: "x"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.AdjustBalance(ctx, user, acc.ID, dec("10"), "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreateTransaction(ctx, user, lifecycle.TransactionInput{
		Type: ledger.TxIncome, Amount: dec("10"), AccountID: acc.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreateDebt(ctx, user, lifecycle.DebtInput{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreateCheck(ctx, user, lifecycle.CheckInput{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreateCard(ctx, user, lifecycle.CardInput{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreatePerson(ctx, user, lifecycle.PersonInput{Name: "Ali"})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.QueryAudit(ctx, user, ledger.AuditFilter{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission)

	_, err = env.svc.CreateOrder(ctx, ledger.Actor{}, lifecycle.OrderInput{RecipientName: "x", Amount: dec("1")})
	assert.ErrorIs(t, err, ledger.ErrInsufficientPermission, "anonymous callers are refused")

	assert.True(t, env.balance(t, acc.ID).Equal(dec("100")), "balance untouched")
}
