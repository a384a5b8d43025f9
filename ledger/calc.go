/*
calc.go - Pure amount and status calculators

PURPOSE:
  Time-dependent statuses (overdue, partial, early-cash value, days to a
  card statement) are never stored. They are recomputed from stored dates
  and amounts on every read, so they can never go stale.

PURITY:
  Every function here takes "today" as an argument and touches no store.
  Calling one twice with the same inputs returns the same answer.

DEBT STATUS RULE (first match wins):
  cancelled (stored)   → cancelled
  remaining <= 0       → paid
  due date passed      → overdue
  paid > 0             → partial
  otherwise            → active

SEE ALSO:
  - types.go: Records these functions read
  - api/dto.go: Derived fields surfaced on every list/get response
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysToDue returns the absolute number of days between today and due, and
// whether due is already in the past.
func DaysToDue(due, today time.Time) (days int, overdue bool) {
	d := DaysBetween(today, due)
	if d < 0 {
		return -d, true
	}
	return d, false
}

// DaysOverdue is the number of days past due, zero when not overdue.
func DaysOverdue(due, today time.Time) int {
	days, overdue := DaysToDue(due, today)
	if !overdue {
		return 0
	}
	return days
}

// Remaining is the signed outstanding amount.
func Remaining(amount, paid decimal.Decimal) decimal.Decimal {
	return amount.Sub(paid)
}

// EarlyCashAmount applies an early-cash discount: amount × (1 − rate/100).
// A zero or negative rate leaves the amount unchanged.
func EarlyCashAmount(amount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return amount
	}
	return Round(amount.Sub(Percent(amount, rate)))
}

// DebtStatusOf derives the status of a non-cancelled debt.
func DebtStatusOf(remaining, paid decimal.Decimal, overdue bool) DebtStatus {
	switch {
	case !remaining.IsPositive():
		return DebtPaid
	case overdue:
		return DebtOverdue
	case paid.IsPositive():
		return DebtPartial
	default:
		return DebtActive
	}
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// DebtState carries the derived fields of a debt.
type DebtState struct {
	Remaining   decimal.Decimal
	DaysOverdue int
	Status      DebtStatus
}

func DeriveDebt(d Debt, today time.Time) DebtState {
	remaining := Remaining(d.Amount, d.PaidAmount)
	_, overdue := DaysToDue(d.DueDate, today)

	st := DebtState{Remaining: remaining}
	if d.Status == DebtCancelled {
		st.Status = DebtCancelled
		return st
	}
	st.Status = DebtStatusOf(remaining, d.PaidAmount, overdue)
	if st.Status == DebtOverdue {
		st.DaysOverdue = DaysOverdue(d.DueDate, today)
	}
	return st
}

// CheckState carries the derived fields of a check.
type CheckState struct {
	DaysToDue       int
	IsOverdue       bool
	EarlyCashAmount decimal.Decimal
}

func DeriveCheck(c Check, today time.Time) CheckState {
	days, overdue := DaysToDue(c.DueDate, today)
	return CheckState{
		DaysToDue:       days,
		IsOverdue:       overdue,
		EarlyCashAmount: EarlyCashAmount(c.Amount, c.EarlyDiscountRate),
	}
}

// CardState carries the derived fields of a credit card.
type CardState struct {
	AvailableLimit  decimal.Decimal
	UsagePercentage decimal.Decimal
	DaysToStatement int
	DaysToDue       int
}

func DeriveCard(c CreditCard, today time.Time) CardState {
	return CardState{
		AvailableLimit:  AvailableLimit(c.Limit, c.UsedAmount),
		UsagePercentage: UsagePercentage(c.Limit, c.UsedAmount),
		DaysToStatement: DaysUntilDayOfMonth(c.StatementDay, today),
		DaysToDue:       DaysUntilDayOfMonth(c.DueDay, today),
	}
}

// AvailableLimit is limit − used.
func AvailableLimit(limit, used decimal.Decimal) decimal.Decimal {
	return limit.Sub(used)
}

// UsagePercentage is used/limit as a percentage rounded to two places.
func UsagePercentage(limit, used decimal.Decimal) decimal.Decimal {
	if !limit.IsPositive() {
		return decimal.Zero
	}
	return used.Mul(hundred).Div(limit).Round(2)
}

// InstallmentAmount splits a card charge evenly across installments.
func InstallmentAmount(amount decimal.Decimal, installments int) decimal.Decimal {
	if installments <= 1 {
		return amount
	}
	return Round(amount.Div(decimal.NewFromInt(int64(installments))))
}

// DaysUntilDayOfMonth returns the days until the next occurrence of a
// day-of-month strictly after today. Days beyond the month length clamp to
// the month's last day (a 31 in February means the 28th or 29th).
func DaysUntilDayOfMonth(day int, today time.Time) int {
	today = DateOf(today)
	target := dayInMonth(today.Year(), today.Month(), day)
	if !target.After(today) {
		next := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		target = dayInMonth(next.Year(), next.Month(), day)
	}
	return DaysBetween(today, target)
}
