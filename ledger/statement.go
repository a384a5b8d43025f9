/*
statement.go - Per-account statement for a period

PURPOSE:
  Answers "what happened to this account between two dates?". The
  statement is computed for a PERIOD from the transaction log, never from
  the stored balance, so it stays correct for past periods.

COMPONENTS:
  Opening:   InitialBalance + impact of every completed transaction before Start
  Inflows:   Sum of positive impacts inside the period
  Outflows:  Sum of negative impacts inside the period (reported positive)
  Closing:   Opening + Inflows - Outflows
  ByType:    Per transaction type totals inside the period

EXAMPLE:
  Account opened with 1000, 250 income on Feb 20, 300 expense on Mar 14:

  March statement: Opening 1250, Inflows 0, Outflows 300, Closing 950

SEE ALSO:
  - period.go:    How a period is derived from a date
  - reconcile.go: Same transaction sums, compared against the stored balance
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Statement is the movement of one account over one period.
type Statement struct {
	AccountID AccountID
	Currency  string
	Period    Period

	Opening  decimal.Decimal
	Inflows  decimal.Decimal
	Outflows decimal.Decimal
	Closing  decimal.Decimal

	// Number of completed transactions inside the period
	Count  int
	ByType []ImpactTotal
}

// Net is the change over the period.
func (s Statement) Net() decimal.Decimal {
	return s.Closing.Sub(s.Opening)
}

// StatementReader is the slice of Store a statement needs.
type StatementReader interface {
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	SummarizeImpact(ctx context.Context, accountID AccountID, from, before *time.Time) ([]ImpactTotal, error)
}

// BuildStatement reads the transaction log of one account and folds it
// into a statement for p.
func BuildStatement(ctx context.Context, r StatementReader, id AccountID, p Period) (*Statement, error) {
	account, err := r.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end := p.Start, p.EndExclusive()
	before, err := r.SummarizeImpact(ctx, id, nil, &start)
	if err != nil {
		return nil, err
	}
	within, err := r.SummarizeImpact(ctx, id, &start, &end)
	if err != nil {
		return nil, err
	}

	st := FoldStatement(account.InitialBalance, before, within)
	st.AccountID = id
	st.Currency = account.Currency
	st.Period = p
	return &st, nil
}

// FoldStatement computes the statement figures from per-type totals.
// Types never mix signs: an inflow type only ever carries positive impact.
func FoldStatement(initial decimal.Decimal, before, within []ImpactTotal) Statement {
	st := Statement{
		Opening:  initial,
		Inflows:  decimal.Zero,
		Outflows: decimal.Zero,
		ByType:   within,
	}
	for _, t := range before {
		st.Opening = st.Opening.Add(t.Impact)
	}
	for _, t := range within {
		if t.Impact.IsNegative() {
			st.Outflows = st.Outflows.Add(t.Impact.Neg())
		} else {
			st.Inflows = st.Inflows.Add(t.Impact)
		}
		st.Count += t.Count
	}
	st.Closing = st.Opening.Add(st.Inflows).Sub(st.Outflows)
	return st
}
