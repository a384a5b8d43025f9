package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// INCOME RECORDS
//
//   pending ──verify──▶ verified   (one income transaction recorded)
//      └─────reject──▶ rejected
//
// An admin's record is verified on creation.
// =============================================================================

const incomeKind = "income record"

type IncomeInput struct {
	CompanyName string
	Amount      decimal.Decimal
	Currency    string
	AccountID   ledger.AccountID
	Description string
	Date        time.Time
	ReceiptRef  string
}

func (in IncomeInput) validate() error {
	if strings.TrimSpace(in.CompanyName) == "" {
		return ledger.Invalid("company_name", "required")
	}
	if _, err := ledger.CheckAmount("amount", in.Amount); err != nil {
		return err
	}
	if in.AccountID == "" {
		return ledger.Invalid("account_id", "required")
	}
	return nil
}

func visibleIncome(actor ledger.Actor, r *ledger.IncomeRecord) error {
	if actor.IsAdmin || r.CreatedBy == actor.ID {
		return nil
	}
	return &ledger.NotFoundError{Kind: incomeKind, ID: string(r.ID)}
}

// CreateIncome files an income record. An admin's record is verified at once.
func (s *Service) CreateIncome(ctx context.Context, actor ledger.Actor, in IncomeInput) (*ledger.IncomeRecord, error) {
	if err := requireActor(actor, "create income records"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	r := ledger.IncomeRecord{
		ID:          ledger.IncomeID(s.NewID()),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Amount:      ledger.Round(in.Amount),
		Currency:    orDefault(in.Currency, DefaultCurrency),
		AccountID:   in.AccountID,
		Description: in.Description,
		Date:        ledger.DateOf(dateOr(in.Date, now)),
		ReceiptRef:  in.ReceiptRef,
		Status:      ledger.IncomePending,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.GetAccount(ctx, r.AccountID); err != nil {
			return err
		}
		if err := tx.InsertIncome(ctx, r); err != nil {
			return err
		}
		if !actor.IsAdmin {
			return nil
		}
		verified, err := s.verifyIncome(ctx, tx, actor, &r)
		if err != nil {
			return err
		}
		r = *verified
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.Status == ledger.IncomeVerified {
		s.publishIncomeVerified(ctx, actor, &r)
	}
	return &r, nil
}

func (s *Service) GetIncome(ctx context.Context, actor ledger.Actor, id ledger.IncomeID) (*ledger.IncomeRecord, error) {
	r, err := s.Store.GetIncome(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibleIncome(actor, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListIncome returns income records. Non-admins only see their own.
func (s *Service) ListIncome(ctx context.Context, actor ledger.Actor, f ledger.IncomeFilter) ([]ledger.IncomeRecord, error) {
	if !actor.IsAdmin {
		f.CreatedBy = actor.ID
	}
	return s.Store.ListIncome(ctx, f)
}

// VerifyIncome confirms a pending record and books its income transaction.
func (s *Service) VerifyIncome(ctx context.Context, actor ledger.Actor, id ledger.IncomeID) (*ledger.IncomeRecord, error) {
	if err := requireAdmin(actor, "verify income records"); err != nil {
		return nil, err
	}
	var out *ledger.IncomeRecord
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		r, err := tx.GetIncome(ctx, id)
		if err != nil {
			return err
		}
		out, err = s.verifyIncome(ctx, tx, actor, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishIncomeVerified(ctx, actor, out)
	return out, nil
}

func (s *Service) verifyIncome(ctx context.Context, tx ledger.Store, actor ledger.Actor, r *ledger.IncomeRecord) (*ledger.IncomeRecord, error) {
	if r.Status != ledger.IncomePending {
		return nil, &ledger.TransitionError{Kind: incomeKind, ID: string(r.ID), From: string(r.Status), To: string(ledger.IncomeVerified)}
	}

	t, err := s.recorder(tx).Record(ctx, ledger.Entry{
		Type:         ledger.TxIncome,
		Amount:       r.Amount,
		AccountID:    r.AccountID,
		Currency:     r.Currency,
		Counterparty: &ledger.Counterparty{Name: r.CompanyName, Source: "income_record"},
		Links:        ledger.Links{IncomeRecordID: r.ID},
		Description:  orDefault(r.Description, "Income: "+r.CompanyName),
		ReceiptRef:   r.ReceiptRef,
		Date:         r.Date,
		CreatedBy:    actor.ID,
	})
	if err != nil {
		return nil, err
	}

	now := s.Now()
	updated := *r
	updated.Status = ledger.IncomeVerified
	updated.VerifiedBy = actor.ID
	updated.VerifiedAt = &now
	updated.TransactionID = t.ID
	updated.UpdatedAt = now
	if err := tx.UpdateIncome(ctx, updated, ledger.IncomePending); err != nil {
		return nil, conflict(err, incomeKind, string(r.ID), string(ledger.IncomePending), string(ledger.IncomeVerified))
	}

	if err := s.audit(ctx, tx, actor, ledger.AuditIncomeVerified, "income_record", string(r.ID), map[string]any{
		"amount":         money(r.Amount),
		"transaction_id": string(t.ID),
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Service) publishIncomeVerified(ctx context.Context, actor ledger.Actor, r *ledger.IncomeRecord) {
	s.publish(ctx, "income.verified", "income_record", string(r.ID), actor, map[string]any{
		"amount":         money(r.Amount),
		"company_name":   r.CompanyName,
		"transaction_id": string(r.TransactionID),
	})
}

// RejectIncome turns down a pending record. A reason is required.
func (s *Service) RejectIncome(ctx context.Context, actor ledger.Actor, id ledger.IncomeID, reason string) (*ledger.IncomeRecord, error) {
	if err := requireAdmin(actor, "reject income records"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ledger.Invalid("reason", "required")
	}

	var out ledger.IncomeRecord
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		r, err := tx.GetIncome(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != ledger.IncomePending {
			return &ledger.TransitionError{Kind: incomeKind, ID: string(id), From: string(r.Status), To: string(ledger.IncomeRejected)}
		}
		out = *r
		out.Status = ledger.IncomeRejected
		out.RejectionReason = reason
		out.UpdatedAt = s.Now()
		if err := tx.UpdateIncome(ctx, out, ledger.IncomePending); err != nil {
			return conflict(err, incomeKind, string(id), string(ledger.IncomePending), string(ledger.IncomeRejected))
		}
		return s.audit(ctx, tx, actor, ledger.AuditIncomeRejected, "income_record", string(id), map[string]any{"reason": reason})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "income.rejected", "income_record", string(id), actor, map[string]any{"reason": reason})
	return &out, nil
}

// DeleteIncome removes a record. Deleting a verified record reverses its
// transaction in the same storage transaction. Non-admins may only delete
// their own pending records.
func (s *Service) DeleteIncome(ctx context.Context, actor ledger.Actor, id ledger.IncomeID) error {
	if err := requireActor(actor, "delete income records"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		r, err := tx.GetIncome(ctx, id)
		if err != nil {
			return err
		}
		if err := visibleIncome(actor, r); err != nil {
			return err
		}
		if !actor.IsAdmin && r.Status != ledger.IncomePending {
			return &ledger.PermissionError{ActorID: actor.ID, Action: "delete a " + string(r.Status) + " income record"}
		}

		payload := map[string]any{"status": string(r.Status), "amount": money(r.Amount)}
		if r.Status == ledger.IncomeVerified && r.TransactionID != "" {
			_, err := s.recorder(tx).Reverse(ctx, r.TransactionID)
			switch {
			case err == nil:
				payload["reversed_transaction_id"] = string(r.TransactionID)
			case !ledger.IsNotFound(err):
				return err
			}
		}

		if err := tx.DeleteIncome(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditIncomeDeleted, "income_record", string(id), payload)
	})
}
