package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Friday 15 March 2024
var today = NewDate(2024, time.March, 15)

// =============================================================================
// MONEY
// =============================================================================

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1235), ToMinor(dec("12.345")))
	assert.Equal(t, int64(-50), ToMinor(dec("-0.5")))
	assert.True(t, FromMinor(1235).Equal(dec("12.35")))
	assert.True(t, FromMinor(ToMinor(dec("480"))).Equal(dec("480")))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("amount", "10.005")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("10.01")))

	_, err = ParseAmount("amount", "0")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseAmount("amount", "ten")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBalanceImpact(t *testing.T) {
	tests := []struct {
		typ        TxType
		amount     string
		fees       string
		wantImpact string
		wantNet    string
	}{
		{TxIncome, "100", "0", "100", "100"},
		{TxRefund, "40", "0", "40", "40"},
		{TxInterest, "3.5", "0", "3.5", "3.5"},
		{TxExpense, "300", "0", "-300", "300"},
		{TxExpense, "480", "5.5", "-485.5", "485.5"},
		{TxTransfer, "1000", "2", "-1002", "1002"},
		{TxFee, "12.5", "0", "-12.5", "12.5"},
	}
	for _, tc := range tests {
		t.Run(string(tc.typ), func(t *testing.T) {
			got := BalanceImpact(tc.typ, dec(tc.amount), dec(tc.fees))
			assert.True(t, got.Equal(dec(tc.wantImpact)), "impact %s", got)
			net := NetAmount(tc.typ, dec(tc.amount), dec(tc.fees))
			assert.True(t, net.Equal(dec(tc.wantNet)), "net %s", net)
		})
	}
}

// =============================================================================
// DATES
// =============================================================================

func TestDaysToDue(t *testing.T) {
	days, overdue := DaysToDue(NewDate(2024, time.April, 14), today)
	assert.Equal(t, 30, days)
	assert.False(t, overdue)

	days, overdue = DaysToDue(NewDate(2024, time.March, 10), today)
	assert.Equal(t, 5, days)
	assert.True(t, overdue)

	days, overdue = DaysToDue(today, today.Add(23*time.Hour))
	assert.Equal(t, 0, days, "same calendar day")
	assert.False(t, overdue)

	assert.Equal(t, 0, DaysOverdue(NewDate(2024, time.April, 1), today))
}

func TestDaysUntilDayOfMonth(t *testing.T) {
	assert.Equal(t, 5, DaysUntilDayOfMonth(20, today))
	assert.Equal(t, 31, DaysUntilDayOfMonth(15, today), "today rolls to next month")
	assert.Equal(t, 21, DaysUntilDayOfMonth(5, today))

	// day 31 in a leap February clamps to the 29th
	assert.Equal(t, 19, DaysUntilDayOfMonth(31, NewDate(2024, time.February, 10)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-20")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 20), d)

	d, err = ParseDate("2024-03-20T23:10:00Z")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.March, 20), d)

	_, err = ParseDate("20/03/2024")
	assert.Error(t, err)
}

// =============================================================================
// DERIVED STATUS
// =============================================================================

func TestDeriveDebt(t *testing.T) {
	due := NewDate(2024, time.March, 14)
	tests := []struct {
		name    string
		debt    Debt
		want    DebtStatus
		overdue int
	}{
		{"untouched and not due", Debt{Amount: dec("1000"), DueDate: NewDate(2024, time.April, 1)}, DebtActive, 0},
		{"partially paid", Debt{Amount: dec("1000"), PaidAmount: dec("200"), DueDate: NewDate(2024, time.April, 1)}, DebtPartial, 0},
		{"past due beats partial", Debt{Amount: dec("1000"), PaidAmount: dec("400"), DueDate: due}, DebtOverdue, 1},
		{"fully paid beats overdue", Debt{Amount: dec("1000"), PaidAmount: dec("1000"), DueDate: due}, DebtPaid, 0},
		{"cancelled is sticky", Debt{Amount: dec("1000"), DueDate: due, Status: DebtCancelled}, DebtCancelled, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := DeriveDebt(tc.debt, today)
			assert.Equal(t, tc.want, st.Status)
			assert.Equal(t, tc.overdue, st.DaysOverdue)
			assert.True(t, st.Remaining.Equal(tc.debt.Amount.Sub(tc.debt.PaidAmount)))
		})
	}
}

func TestDeriveCheck(t *testing.T) {
	st := DeriveCheck(Check{
		Amount:            dec("10000"),
		DueDate:           NewDate(2024, time.April, 14),
		EarlyDiscountRate: dec("2"),
	}, today)
	assert.Equal(t, 30, st.DaysToDue)
	assert.False(t, st.IsOverdue)
	assert.True(t, st.EarlyCashAmount.Equal(dec("9800")))

	assert.True(t, EarlyCashAmount(dec("1234.56"), decimal.Zero).Equal(dec("1234.56")))
	assert.True(t, EarlyCashAmount(dec("1000"), dec("1.25")).Equal(dec("987.5")))
}

func TestDeriveCard(t *testing.T) {
	st := DeriveCard(CreditCard{
		Limit: dec("1000"), UsedAmount: dec("333"), StatementDay: 20, DueDay: 5,
	}, today)
	assert.True(t, st.AvailableLimit.Equal(dec("667")))
	assert.True(t, st.UsagePercentage.Equal(dec("33.3")))
	assert.Equal(t, 5, st.DaysToStatement)
	assert.Equal(t, 21, st.DaysToDue)

	assert.True(t, UsagePercentage(decimal.Zero, dec("5")).IsZero())
	assert.True(t, InstallmentAmount(dec("100"), 3).Equal(dec("33.33")))
	assert.True(t, InstallmentAmount(dec("100"), 0).Equal(dec("100")))
}

// =============================================================================
// COUNTERPARTY CLASSIFICATION
// =============================================================================

func TestClassifyName(t *testing.T) {
	tests := map[string]PersonType{
		"Yıldız Tekstil A.Ş.":         PersonCompany,
		"Marmara Çelik San. Ltd.":     PersonCompany,
		"İnci Gıda Ltd.Şti.":          PersonCompany,
		"ACME Inc.":                   PersonCompany,
		"Beta Yazılım Anonim Şirketi": PersonCompany,
		"Ayşe Yılmaz":                 PersonIndividual,
		"Vincent Limitless":           PersonIndividual,
		"Aslan Ltdman":                PersonIndividual,
	}
	for name, want := range tests {
		assert.Equal(t, want, ClassifyName(name), name)
	}
}

func TestDirectionOf(t *testing.T) {
	assert.Equal(t, Received, DirectionOf(TxIncome))
	assert.Equal(t, Received, DirectionOf(TxRefund))
	assert.Equal(t, Sent, DirectionOf(TxExpense))
	assert.Equal(t, Sent, DirectionOf(TxFee))
}
