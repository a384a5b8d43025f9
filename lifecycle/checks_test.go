package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

func (e *testEnv) check(t *testing.T, typ ledger.CheckType, amount, rate string) *lifecycle.CheckView {
	c, err := e.svc.CreateCheck(context.Background(), admin, lifecycle.CheckInput{
		Amount:            dec(amount),
		Number:            "CHK-0042",
		BankName:          "Ziraat",
		DrawerName:        "Yıldız Tekstil Ltd.",
		PayeeName:         "Kaya İnşaat A.Ş.",
		DueDate:           testToday.AddDate(0, 0, 30),
		Type:              typ,
		EarlyDiscountRate: dec(rate),
	})
	require.NoError(t, err)
	return c
}

func TestCheck_EarlyCashExample(t *testing.T) {
	// GIVEN: A received check of 10000 with a 2% early discount, due in 30 days
	// WHEN: It is early-cashed into an account
	// THEN: 9800 is credited as income and the check is early_cashed

	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "0")
	c := env.check(t, ledger.CheckReceived, "10000", "2")

	assert.True(t, c.EarlyCashAmount.Equal(dec("9800")))
	assert.Equal(t, 30, c.DaysToDue)
	assert.False(t, c.IsOverdue)

	v, op, err := env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{
		Type:      ledger.CheckOpEarlyCash,
		AccountID: acc.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.CheckEarlyCashed, v.Status)
	assert.Equal(t, acc.ID, v.CashAccountID)
	require.NotNil(t, v.CashDate)
	assert.True(t, op.Amount.Equal(dec("9800")))
	assert.True(t, op.DiscountRate.Equal(dec("2")))
	assert.True(t, env.balance(t, acc.ID).Equal(dec("9800")))

	tx, err := env.svc.GetTransaction(ctx, op.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxIncome, tx.Type)
	assert.Equal(t, c.ID, tx.Links.CheckID)
	env.assertConsistent(t, acc.ID)
}

func TestCheck_CashWithFees_IssuedIsExpense(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "5000")
	c := env.check(t, ledger.CheckIssued, "1200", "0")

	_, op, err := env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{
		Type:      ledger.CheckOpCash,
		AccountID: acc.ID,
		Fees:      dec("15"),
	})
	require.NoError(t, err)
	assert.True(t, op.Amount.Equal(dec("1200")))

	tx, err := env.svc.GetTransaction(ctx, op.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledger.TxExpense, tx.Type)
	assert.True(t, tx.Amount.Equal(dec("1185")), "amount minus fees")
	assert.True(t, env.balance(t, acc.ID).Equal(dec("3815")))

	p, err := env.svc.GetPerson(ctx, tx.PersonID)
	require.NoError(t, err)
	assert.Equal(t, "Kaya İnşaat A.Ş.", p.Name, "issued checks pay the payee")
}

func TestCheck_OperationsOnlyWhileActive(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	c := env.check(t, ledger.CheckReceived, "100", "0")

	v, _, err := env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{
		Type: ledger.CheckOpReturn, Reason: "insufficient funds at drawer",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.CheckReturned, v.Status)
	assert.Equal(t, "insufficient funds at drawer", v.ReturnReason)

	for _, op := range []ledger.CheckOpType{ledger.CheckOpCash, ledger.CheckOpEarlyCash, ledger.CheckOpCancel, ledger.CheckOpLost} {
		_, _, err := env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{Type: op})
		assert.ErrorIs(t, err, ledger.ErrInvalidTransition, op)
	}

	_, _, err = env.svc.OperateCheck(ctx, admin, c.ID, lifecycle.CheckOperationInput{Type: "bounce"})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = env.svc.UpdateCheck(ctx, admin, c.ID, lifecycle.CheckInput{
		Amount: dec("1"), Number: "X", DueDate: testToday, Type: ledger.CheckReceived,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestCheck_FeesMayNotExceedAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	acc := env.account(t, "0")
	c := env.check(t, ledger.CheckReceived, "100", "0")

	_, _, err := env.svc.OperateCheck(context.Background(), admin, c.ID, lifecycle.CheckOperationInput{
		Type: ledger.CheckOpCash, AccountID: acc.ID, Fees: dec("100"),
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	cur, err := env.svc.GetCheck(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.CheckActive, cur.Status)
}

func TestDeleteCheck_RefusedWithOperations(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	lost := env.check(t, ledger.CheckReceived, "100", "0")
	fresh := env.check(t, ledger.CheckReceived, "100", "0")

	_, _, err := env.svc.OperateCheck(ctx, admin, lost.ID, lifecycle.CheckOperationInput{Type: ledger.CheckOpLost})
	require.NoError(t, err)

	err = env.svc.DeleteCheck(ctx, admin, lost.ID)
	var de *ledger.DependentsError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "operations", de.Dependents)

	require.NoError(t, env.svc.DeleteCheck(ctx, admin, fresh.ID))

	ops, err := env.svc.ListCheckOperations(ctx, lost.ID)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, ledger.CheckOpLost, ops[0].Type)
}

func TestCheck_OverdueDerivation(t *testing.T) {
	env := newTestEnv(t, nil)
	c, err := env.svc.CreateCheck(context.Background(), admin, lifecycle.CheckInput{
		Amount: dec("50"), Number: "OLD-1", DueDate: testToday.AddDate(0, 0, -4), Type: ledger.CheckReceived,
	})
	require.NoError(t, err)
	assert.True(t, c.IsOverdue)
	assert.Equal(t, 4, c.DaysToDue)
	assert.True(t, c.EarlyCashAmount.Equal(dec("50")), "no rate, no discount")
}
