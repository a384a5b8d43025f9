package lifecycle_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// =============================================================================
// AMOUNT BOUNDS
// =============================================================================

func TestInputs_RefuseSubCentAndOversizedAmounts(t *testing.T) {
	// GIVEN: One account, one card
	// WHEN: Every entity is created with an amount that rounds to zero or
	//       one past int64 minor units
	// THEN: Each is a validation error and nothing moves

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "1000")
	c := env.card(t, "1000")

	create := map[string]func(amount decimal.Decimal) error{
		"order": func(a decimal.Decimal) error {
			_, err := env.svc.CreateOrder(ctx, admin, lifecycle.OrderInput{RecipientName: "Ayşe Yılmaz", Amount: a, AccountID: acc.ID})
			return err
		},
		"debt": func(a decimal.Decimal) error {
			_, err := env.svc.CreateDebt(ctx, admin, lifecycle.DebtInput{
				CreditorName: "Tedarik A.Ş.", Amount: a, Type: ledger.DebtPayable, DueDate: testToday,
			})
			return err
		},
		"check": func(a decimal.Decimal) error {
			_, err := env.svc.CreateCheck(ctx, admin, lifecycle.CheckInput{
				Amount: a, Number: "CHK-1", DueDate: testToday, Type: ledger.CheckReceived,
			})
			return err
		},
		"card limit": func(a decimal.Decimal) error {
			_, err := env.svc.CreateCard(ctx, admin, lifecycle.CardInput{Name: "Gold", Limit: a, StatementDay: 1, DueDay: 10})
			return err
		},
		"card charge": func(a decimal.Decimal) error {
			_, _, err := env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{Amount: a})
			return err
		},
		"income": func(a decimal.Decimal) error {
			_, err := env.svc.CreateIncome(ctx, admin, lifecycle.IncomeInput{CompanyName: "Beta A.Ş.", Amount: a, AccountID: acc.ID})
			return err
		},
		"transaction": func(a decimal.Decimal) error {
			_, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{Type: ledger.TxIncome, Amount: a, AccountID: acc.ID})
			return err
		},
		"adjustment": func(a decimal.Decimal) error {
			_, err := env.svc.AdjustBalance(ctx, admin, acc.ID, a, "")
			return err
		},
	}

	for name, fn := range create {
		for _, amount := range []string{"0.004", "100000000000000000"} {
			assert.ErrorIs(t, fn(dec(amount)), ledger.ErrValidation, "%s %s", name, amount)
		}
	}

	_, err := env.svc.CreateAccount(ctx, admin, lifecycle.AccountInput{Name: "Huge", InitialBalance: dec("-100000000000000000")})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	assert.True(t, env.balance(t, acc.ID).Equal(dec("1000")))
	env.assertConsistent(t, acc.ID)
}

func TestCreateOrder_SubCentAmountNeverReachesCompletion(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "1000")

	_, err := env.svc.CreateOrder(ctx, admin, lifecycle.OrderInput{RecipientName: "Ayşe Yılmaz", Amount: dec("0.004"), AccountID: acc.ID})
	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "amount", ve.Field)

	orders, err := env.svc.ListOrders(ctx, admin, ledger.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

// =============================================================================
// WORKFLOW-OWNED TRANSACTIONS
// =============================================================================

func TestDeleteTransaction_RefusesWorkflowTransactions(t *testing.T) {
	// GIVEN: A completed order and a paid debt, both booked on one account
	// WHEN: Their transactions are deleted directly
	// THEN: Both are refused and the order, the debt and the balance stay put

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "1000")

	o := env.approvedOrder(t, "100", acc.ID)
	_, err := env.svc.CompleteOrder(ctx, admin, o.ID, lifecycle.CompleteInput{})
	require.NoError(t, err)

	d := env.payableDebt(t, "400", 10)
	_, payment, err := env.svc.PayDebt(ctx, admin, d.ID, lifecycle.DebtPaymentInput{Amount: dec("400"), AccountID: acc.ID})
	require.NoError(t, err)
	require.NotEmpty(t, payment.TransactionID)

	orderTxs, _, err := env.svc.ListTransactions(ctx, ledger.TransactionFilter{PaymentOrderID: o.ID})
	require.NoError(t, err)
	require.Len(t, orderTxs, 1)

	for _, id := range []ledger.TransactionID{orderTxs[0].ID, payment.TransactionID} {
		_, err := env.svc.DeleteTransaction(ctx, admin, id)
		var de *ledger.DependentsError
		require.ErrorAs(t, err, &de, string(id))
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}

	assert.True(t, env.balance(t, acc.ID).Equal(dec("500")))
	paid, err := env.svc.GetDebt(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DebtPaid, paid.DebtState.Status)
	completed, err := env.svc.GetOrder(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.OrderCompleted, completed.Status)

	// a manual entry on the same account still deletes
	manual, err := env.svc.CreateTransaction(ctx, admin, lifecycle.TransactionInput{Type: ledger.TxFee, Amount: dec("5"), AccountID: acc.ID})
	require.NoError(t, err)
	_, err = env.svc.DeleteTransaction(ctx, admin, manual.ID)
	require.NoError(t, err)
	env.assertConsistent(t, acc.ID)
}

// =============================================================================
// CURRENCY
// =============================================================================

func TestWorkflows_RefuseCurrencyMismatch(t *testing.T) {
	// GIVEN: A TRY account and USD income, debt, check and order records
	// WHEN: Each is booked against the TRY account
	// THEN: Every booking is a validation error and the balance stays 1000

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "1000")

	r, err := env.svc.CreateIncome(ctx, user, lifecycle.IncomeInput{
		CompanyName: "Globex Inc.", Amount: dec("500"), Currency: "USD", AccountID: acc.ID,
	})
	require.NoError(t, err)
	_, err = env.svc.VerifyIncome(ctx, admin, r.ID)
	assertCurrencyRefused(t, err, "income")
	pending, err := env.svc.GetIncome(ctx, admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.IncomePending, pending.Status)

	d, err := env.svc.CreateDebt(ctx, admin, lifecycle.DebtInput{
		CreditorName: "Acme Inc.", Amount: dec("300"), Currency: "USD", Type: ledger.DebtPayable, DueDate: testToday,
	})
	require.NoError(t, err)
	_, _, err = env.svc.PayDebt(ctx, admin, d.ID, lifecycle.DebtPaymentInput{Amount: dec("100"), AccountID: acc.ID})
	assertCurrencyRefused(t, err, "debt")
	unpaid, err := env.svc.GetDebt(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, unpaid.PaidAmount.IsZero())

	c, err := env.svc.CreateCheck(ctx, admin, lifecycle.CheckInput{
		Amount: dec("200"), Currency: "EUR", Number: "CHK-9", DueDate: testToday, Type: ledger.CheckReceived,
	})
	require.NoError(t, err)
	_, _, err = env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{Type: ledger.CheckOpCash, AccountID: acc.ID})
	assertCurrencyRefused(t, err, "check")

	o, err := env.svc.CreateOrder(ctx, admin, lifecycle.OrderInput{
		RecipientName: "Ayşe Yılmaz", Amount: dec("50"), Currency: "USD", AccountID: acc.ID,
	})
	require.NoError(t, err)
	_, err = env.svc.CompleteOrder(ctx, admin, o.ID, lifecycle.CompleteInput{})
	assertCurrencyRefused(t, err, "order")

	assert.True(t, env.balance(t, acc.ID).Equal(dec("1000")))
	env.assertConsistent(t, acc.ID)
}

func assertCurrencyRefused(t *testing.T, err error, what string) {
	t.Helper()
	var ve *ledger.ValidationError
	require.ErrorAs(t, err, &ve, what)
	assert.Equal(t, "currency", ve.Field, what)
}

// =============================================================================
// SERVICE DEFAULTS
// =============================================================================

func TestNewService_DefaultsExtractionPolicy(t *testing.T) {
	env := newTestEnv(t, nil)

	svc := lifecycle.NewService(env.store, lifecycle.Options{})
	assert.Equal(t, lifecycle.DefaultExtractionPolicy().MinConfidence, svc.Policy.MinConfidence)
	assert.True(t, svc.Policy.AmountTolerancePercent.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, lifecycle.DefaultExtractionPolicy().Timeout, svc.Policy.Timeout)

	custom := lifecycle.ExtractionPolicy{MinConfidence: 0.9}
	svc = lifecycle.NewService(env.store, lifecycle.Options{Policy: custom})
	assert.Equal(t, 0.9, svc.Policy.MinConfidence)
	assert.True(t, svc.Policy.AmountTolerancePercent.IsZero(), "an explicit policy is kept as given")
}
