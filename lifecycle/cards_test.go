package lifecycle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

func (e *testEnv) card(t *testing.T, limit string) *lifecycle.CardView {
	c, err := e.svc.CreateCard(context.Background(), admin, lifecycle.CardInput{
		Name: "Corporate Bonus", BankName: "Garanti", Limit: dec(limit), StatementDay: 20, DueDay: 5,
	})
	require.NoError(t, err)
	return c
}

func TestChargeCard_RespectsLimit(t *testing.T) {
	// GIVEN: A card with a 1000 limit
	// WHEN: Charging 700, then 400
	// THEN: The first succeeds, the second exceeds the limit and changes nothing

	env := newTestEnv(t, nil)
	ctx := context.Background()
	c := env.card(t, "1000")

	// 15 March: statement on the 20th, due on 5 April
	assert.Equal(t, 5, c.DaysToStatement)
	assert.Equal(t, 21, c.DaysToDue)

	v, charge, err := env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{
		Amount: dec("700"), Merchant: "Teknosa", Installments: 3,
	})
	require.NoError(t, err)
	assert.True(t, v.UsedAmount.Equal(dec("700")))
	assert.True(t, v.AvailableLimit.Equal(dec("300")))
	assert.True(t, v.UsagePercentage.Equal(dec("70")))
	assert.True(t, charge.InstallmentAmount.Equal(dec("233.33")))

	_, _, err = env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{Amount: dec("400")})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	var cle *ledger.CreditLimitError
	require.ErrorAs(t, err, &cle)
	assert.True(t, cle.Available.Equal(dec("300")))

	cur, err := env.svc.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cur.UsedAmount.Equal(dec("700")))

	charges, err := env.svc.ListCardTransactions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, charges, 1)
}

func TestPayCard(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "2000")
	c := env.card(t, "1000")

	_, _, err := env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{Amount: dec("600")})
	require.NoError(t, err)

	_, _, err = env.svc.PayCard(ctx, admin, c.ID, lifecycle.CardPaymentInput{Amount: dec("601")})
	assert.ErrorIs(t, err, ledger.ErrValidation, "cannot pay more than used")

	v, p, err := env.svc.PayCard(ctx, admin, c.ID, lifecycle.CardPaymentInput{Amount: dec("250"), AccountID: acc.ID})
	require.NoError(t, err)
	assert.True(t, v.UsedAmount.Equal(dec("350")))
	assert.True(t, env.balance(t, acc.ID).Equal(dec("1750")))

	tx, err := env.svc.GetTransaction(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, tx.Links.CreditCardID)
	assert.Equal(t, ledger.TxExpense, tx.Type)

	// a full payment with no amount clears the balance
	v, p, err = env.svc.PayCard(ctx, admin, c.ID, lifecycle.CardPaymentInput{Type: ledger.CardPayFull})
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(dec("350")))
	assert.True(t, v.UsedAmount.IsZero())

	payments, err := env.svc.ListCardPayments(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	env.assertConsistent(t, acc.ID)
}

func TestPayCard_InsufficientFunds_KeepsUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, "100")
	c := env.card(t, "1000")
	_, _, err := env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{Amount: dec("500")})
	require.NoError(t, err)

	_, _, err = env.svc.PayCard(ctx, admin, c.ID, lifecycle.CardPaymentInput{Amount: dec("500"), AccountID: acc.ID})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	cur, err := env.svc.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cur.UsedAmount.Equal(dec("500")))
}

func TestUpdateCard_LimitNotBelowUsage(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	c := env.card(t, "1000")
	_, _, err := env.svc.ChargeCard(ctx, admin, c.ID, lifecycle.ChargeInput{Amount: dec("800")})
	require.NoError(t, err)

	in := lifecycle.CardInput{Name: "Corporate", Limit: dec("500"), StatementDay: 31, DueDay: 10}
	_, err = env.svc.UpdateCard(ctx, admin, c.ID, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	in.Limit = dec("2000")
	v, err := env.svc.UpdateCard(ctx, admin, c.ID, in)
	require.NoError(t, err)
	assert.True(t, v.UsagePercentage.Equal(dec("40")))
}

func TestDeleteCard_RefusedWithTransactions(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	used := env.card(t, "1000")
	unused := env.card(t, "1000")
	_, _, err := env.svc.ChargeCard(ctx, admin, used.ID, lifecycle.ChargeInput{Amount: dec("1")})
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.DeleteCard(ctx, admin, used.ID), ledger.ErrValidation)
	require.NoError(t, env.svc.DeleteCard(ctx, admin, unused.ID))
}

func TestCreateCard_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.CreateCard(context.Background(), admin, lifecycle.CardInput{
		Name: "Bad", Limit: dec("100"), StatementDay: 0, DueDay: 5,
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
