package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// DEBTS
//
// Only active and cancelled are stored. Partial, overdue and paid are
// derived on every read from paid_amount and due_date (ledger.DeriveDebt).
// =============================================================================

const debtKind = "debt"

// DebtView is a stored debt together with its derived fields.
type DebtView struct {
	ledger.Debt
	ledger.DebtState
}

func (s *Service) debtView(d ledger.Debt) DebtView {
	return DebtView{Debt: d, DebtState: ledger.DeriveDebt(d, s.today())}
}

type DebtInput struct {
	CreditorName string
	DebtorName   string
	Amount       decimal.Decimal
	Currency     string
	Description  string
	Category     string
	Type         ledger.DebtType
	DueDate      time.Time
	InterestRate decimal.Decimal
	PaymentTerms string
	Notes        string
}

func (in DebtInput) validate() error {
	if _, err := ledger.CheckAmount("amount", in.Amount); err != nil {
		return err
	}
	if in.DueDate.IsZero() {
		return ledger.Invalid("due_date", "required")
	}
	switch in.Type {
	case ledger.DebtPayable:
		if strings.TrimSpace(in.CreditorName) == "" {
			return ledger.Invalid("creditor_name", "required for a payable debt")
		}
	case ledger.DebtReceivable:
		if strings.TrimSpace(in.DebtorName) == "" {
			return ledger.Invalid("debtor_name", "required for a receivable debt")
		}
	default:
		return ledger.Invalid("debt_type", "must be payable or receivable")
	}
	if in.InterestRate.IsNegative() {
		return ledger.Invalid("interest_rate", "must not be negative")
	}
	return nil
}

func (in DebtInput) apply(d *ledger.Debt) {
	d.CreditorName = strings.TrimSpace(in.CreditorName)
	d.DebtorName = strings.TrimSpace(in.DebtorName)
	d.Amount = ledger.Round(in.Amount)
	d.Currency = orDefault(in.Currency, orDefault(d.Currency, DefaultCurrency))
	d.Description = in.Description
	d.Category = in.Category
	d.Type = in.Type
	d.DueDate = ledger.DateOf(in.DueDate)
	d.InterestRate = in.InterestRate
	d.PaymentTerms = in.PaymentTerms
	d.Notes = in.Notes
}

// counterparty is the other side of the debt.
func counterpartyOf(d *ledger.Debt) string {
	if d.Type == ledger.DebtPayable {
		return d.CreditorName
	}
	return d.DebtorName
}

func (s *Service) CreateDebt(ctx context.Context, actor ledger.Actor, in DebtInput) (*DebtView, error) {
	if err := requireAdmin(actor, "create debts"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	d := ledger.Debt{
		ID:         ledger.DebtID(s.NewID()),
		PaidAmount: decimal.Zero,
		Status:     ledger.DebtActive,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.apply(&d)
	if err := s.Store.InsertDebt(ctx, d); err != nil {
		return nil, err
	}
	v := s.debtView(d)
	return &v, nil
}

func (s *Service) GetDebt(ctx context.Context, id ledger.DebtID) (*DebtView, error) {
	d, err := s.Store.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.debtView(*d)
	return &v, nil
}

// DebtListFilter adds a filter on the derived status.
type DebtListFilter struct {
	ledger.DebtFilter
	Status ledger.DebtStatus
}

// ListDebts returns debts with derived fields. A status filter is applied
// after derivation, so paging happens in memory in that case.
func (s *Service) ListDebts(ctx context.Context, f DebtListFilter) ([]DebtView, error) {
	base := f.DebtFilter
	if f.Status != "" {
		base.Page = ledger.Page{}
	}
	debts, err := s.Store.ListDebts(ctx, base)
	if err != nil {
		return nil, err
	}

	views := make([]DebtView, 0, len(debts))
	for _, d := range debts {
		v := s.debtView(d)
		if f.Status != "" && v.DebtState.Status != f.Status {
			continue
		}
		views = append(views, v)
	}
	if f.Status != "" {
		views = pageSlice(views, f.Page)
	}
	return views, nil
}

// UpdateDebt edits a debt that is not cancelled. The amount may not drop
// below what has already been paid.
func (s *Service) UpdateDebt(ctx context.Context, actor ledger.Actor, id ledger.DebtID, in DebtInput) (*DebtView, error) {
	if err := requireAdmin(actor, "update debts"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out ledger.Debt
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		d, err := tx.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		if d.Status == ledger.DebtCancelled {
			return &ledger.TransitionError{Kind: debtKind, ID: string(id), From: string(d.Status), To: "updated"}
		}
		if ledger.Round(in.Amount).LessThan(d.PaidAmount) {
			return ledger.Invalid("amount", "cannot be lower than the %s already paid", money(d.PaidAmount))
		}
		in.apply(d)
		d.UpdatedAt = s.Now()
		if err := tx.UpdateDebt(ctx, *d, ledger.DebtActive); err != nil {
			return conflict(err, debtKind, string(id), string(ledger.DebtActive), "updated")
		}
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := s.debtView(out)
	return &v, nil
}

type DebtPaymentInput struct {
	Amount      decimal.Decimal
	Date        time.Time
	Method      string
	AccountID   ledger.AccountID // optional; books the payment on this account
	Description string
}

// PayDebt records a (partial) payment. The amount may not exceed what
// remains. With an account, one expense (payable) or income (receivable)
// transaction is recorded as well.
func (s *Service) PayDebt(ctx context.Context, actor ledger.Actor, id ledger.DebtID, in DebtPaymentInput) (*DebtView, *ledger.DebtPayment, error) {
	if err := requireAdmin(actor, "pay debts"); err != nil {
		return nil, nil, err
	}
	amount := ledger.Round(in.Amount)
	if !amount.IsPositive() {
		return nil, nil, ledger.Invalid("amount", "must be positive")
	}
	date := ledger.DateOf(dateOr(in.Date, s.Now()))

	var (
		out     ledger.Debt
		payment ledger.DebtPayment
	)
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		d, err := tx.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		st := ledger.DeriveDebt(*d, s.today())
		if st.Status == ledger.DebtPaid || st.Status == ledger.DebtCancelled {
			return &ledger.TransitionError{Kind: debtKind, ID: string(id), From: string(st.Status), To: string(ledger.DebtPaid)}
		}
		if amount.GreaterThan(st.Remaining) {
			return ledger.Invalid("amount", "payment %s exceeds remaining %s", money(amount), money(st.Remaining))
		}

		if err := tx.IncrementDebtPaid(ctx, id, amount, date); err != nil {
			if errors.Is(err, ledger.ErrConcurrentModification) {
				return ledger.Invalid("amount", "payment exceeds remaining amount")
			}
			return err
		}

		payment = ledger.DebtPayment{
			ID:          s.NewID(),
			DebtID:      id,
			Amount:      amount,
			Date:        date,
			Method:      in.Method,
			AccountID:   in.AccountID,
			Description: in.Description,
			CreatedBy:   actor.ID,
			CreatedAt:   s.Now(),
		}

		if in.AccountID != "" {
			typ := ledger.TxIncome
			if d.Type == ledger.DebtPayable {
				typ = ledger.TxExpense
			}
			t, err := s.recorder(tx).Record(ctx, ledger.Entry{
				Type:         typ,
				Amount:       amount,
				AccountID:    in.AccountID,
				Currency:     d.Currency,
				Counterparty: &ledger.Counterparty{Name: counterpartyOf(d), Source: "debt"},
				Links:        ledger.Links{DebtID: id},
				Description:  orDefault(in.Description, "Debt payment: "+orDefault(d.Description, counterpartyOf(d))),
				Date:         date,
				CreatedBy:    actor.ID,
				RequireFunds: true,
			})
			if err != nil {
				return err
			}
			payment.TransactionID = t.ID
		}

		if err := tx.InsertDebtPayment(ctx, payment); err != nil {
			return err
		}

		cur, err := tx.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		out = *cur
		return s.audit(ctx, tx, actor, ledger.AuditDebtPaid, "debt", string(id), map[string]any{
			"amount":         money(amount),
			"paid_amount":    money(cur.PaidAmount),
			"transaction_id": string(payment.TransactionID),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	v := s.debtView(out)
	s.publish(ctx, "debt.paid", "debt", string(id), actor, map[string]any{
		"amount":    money(amount),
		"remaining": money(v.Remaining),
		"status":    string(v.DebtState.Status),
	})
	return &v, &payment, nil
}

// CancelDebt writes off a debt that is not yet fully paid.
func (s *Service) CancelDebt(ctx context.Context, actor ledger.Actor, id ledger.DebtID) (*DebtView, error) {
	if err := requireAdmin(actor, "cancel debts"); err != nil {
		return nil, err
	}
	var out ledger.Debt
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		d, err := tx.GetDebt(ctx, id)
		if err != nil {
			return err
		}
		st := ledger.DeriveDebt(*d, s.today())
		if st.Status == ledger.DebtPaid || st.Status == ledger.DebtCancelled {
			return &ledger.TransitionError{Kind: debtKind, ID: string(id), From: string(st.Status), To: string(ledger.DebtCancelled)}
		}
		d.Status = ledger.DebtCancelled
		d.UpdatedAt = s.Now()
		if err := tx.UpdateDebt(ctx, *d, ledger.DebtActive); err != nil {
			return conflict(err, debtKind, string(id), string(ledger.DebtActive), string(ledger.DebtCancelled))
		}
		out = *d
		return s.audit(ctx, tx, actor, ledger.AuditDebtCancelled, "debt", string(id), map[string]any{
			"remaining": money(st.Remaining),
		})
	})
	if err != nil {
		return nil, err
	}
	v := s.debtView(out)
	return &v, nil
}

// DeleteDebt refuses while payments exist.
func (s *Service) DeleteDebt(ctx context.Context, actor ledger.Actor, id ledger.DebtID) error {
	if err := requireAdmin(actor, "delete debts"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.GetDebt(ctx, id); err != nil {
			return err
		}
		payments, err := tx.ListDebtPayments(ctx, id)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return &ledger.DependentsError{Kind: debtKind, ID: string(id), Dependents: "payments", Count: len(payments)}
		}
		return tx.DeleteDebt(ctx, id)
	})
}

func (s *Service) ListDebtPayments(ctx context.Context, id ledger.DebtID) ([]ledger.DebtPayment, error) {
	if _, err := s.Store.GetDebt(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListDebtPayments(ctx, id)
}
