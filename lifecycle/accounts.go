package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountInput struct {
	Name           string
	IBAN           string
	BankName       string
	Type           ledger.AccountType
	Currency       string
	InitialBalance decimal.Decimal
}

func (in AccountInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.Invalid("name", "required")
	}
	if in.Type != "" && !in.Type.Valid() {
		return ledger.Invalid("account_type", "unknown account type %q", in.Type)
	}
	if _, err := ledger.CheckSigned("initial_balance", in.InitialBalance); err != nil {
		return err
	}
	return nil
}

// CreateAccount opens an account. current_balance starts equal to
// initial_balance, which satisfies the balance invariant with no transactions.
func (s *Service) CreateAccount(ctx context.Context, actor ledger.Actor, in AccountInput) (*ledger.Account, error) {
	if err := requireAdmin(actor, "create accounts"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	initial := ledger.Round(in.InitialBalance)
	a := ledger.Account{
		ID:             ledger.AccountID(s.NewID()),
		Name:           strings.TrimSpace(in.Name),
		IBAN:           strings.TrimSpace(in.IBAN),
		BankName:       in.BankName,
		Type:           in.Type,
		Currency:       orDefault(in.Currency, DefaultCurrency),
		InitialBalance: initial,
		CurrentBalance: initial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if a.Type == "" {
		a.Type = ledger.AccountChecking
	}

	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditAccountCreated, "account", string(a.ID), map[string]any{
			"name":            a.Name,
			"initial_balance": money(initial),
		})
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return s.Store.GetAccount(ctx, id)
}

func (s *Service) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.Store.ListAccounts(ctx)
}

// UpdateAccount changes descriptive fields. Balances and currency are fixed.
func (s *Service) UpdateAccount(ctx context.Context, actor ledger.Actor, id ledger.AccountID, in AccountInput) (*ledger.Account, error) {
	if err := requireAdmin(actor, "update accounts"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	a, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Name = strings.TrimSpace(in.Name)
	a.IBAN = strings.TrimSpace(in.IBAN)
	a.BankName = in.BankName
	if in.Type != "" {
		a.Type = in.Type
	}
	a.UpdatedAt = s.Now()
	if err := s.Store.UpdateAccountDetails(ctx, *a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAccount refuses while any transaction references the account.
func (s *Service) DeleteAccount(ctx context.Context, actor ledger.Actor, id ledger.AccountID) error {
	if err := requireAdmin(actor, "delete accounts"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		a, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountTransactions(ctx, ledger.TransactionFilter{AccountID: id})
		if err != nil {
			return err
		}
		if n > 0 {
			return &ledger.DependentsError{Kind: "account", ID: string(id), Dependents: "transactions", Count: n}
		}
		if err := tx.DeleteAccount(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditAccountDeleted, "account", string(id), map[string]any{
			"name":    a.Name,
			"balance": money(a.CurrentBalance),
		})
	})
}

// AdjustBalance books a manual correction: a positive delta as income, a
// negative one as expense. The balance never changes without a transaction.
func (s *Service) AdjustBalance(ctx context.Context, actor ledger.Actor, id ledger.AccountID, delta decimal.Decimal, description string) (*ledger.Transaction, error) {
	if err := requireAdmin(actor, "adjust balances"); err != nil {
		return nil, err
	}
	delta = ledger.Round(delta)
	if delta.IsZero() {
		return nil, ledger.Invalid("amount", "must not be zero")
	}

	typ := ledger.TxIncome
	if delta.IsNegative() {
		typ = ledger.TxExpense
	}
	if description == "" {
		description = "Manual balance adjustment"
	}

	var out *ledger.Transaction
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		t, err := s.recorder(tx).Record(ctx, ledger.Entry{
			Type:        typ,
			Amount:      delta.Abs(),
			AccountID:   id,
			Description: description,
			CreatedBy:   actor.ID,
		})
		if err != nil {
			return err
		}
		out = t
		return s.audit(ctx, tx, actor, ledger.AuditBalanceAdjusted, "account", string(id), map[string]any{
			"delta":          money(delta),
			"transaction_id": string(t.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reconcile recomputes one account's balance from its transactions.
func (s *Service) Reconcile(ctx context.Context, actor ledger.Actor, id ledger.AccountID, repair bool) (ledger.Drift, error) {
	if err := requireAdmin(actor, "reconcile accounts"); err != nil {
		return ledger.Drift{}, err
	}
	r := ledger.NewReconciler(s.Store, s.Logger)
	r.Now = s.Now
	d, err := r.Recompute(ctx, id, repair, actor.ID)
	if err != nil {
		return d, err
	}
	if !d.Consistent() {
		s.publish(ctx, "account.drift", "account", string(id), actor, map[string]any{
			"drift":    money(d.Drift),
			"repaired": d.Repaired,
		})
	}
	return d, nil
}

// ReconcileAll runs Reconcile over every account.
func (s *Service) ReconcileAll(ctx context.Context, actor ledger.Actor, repair bool) ([]ledger.Drift, error) {
	if err := requireAdmin(actor, "reconcile accounts"); err != nil {
		return nil, err
	}
	r := ledger.NewReconciler(s.Store, s.Logger)
	r.Now = s.Now
	drifts, err := r.RecomputeAll(ctx, repair, actor.ID)
	for _, d := range drifts {
		if !d.Consistent() {
			s.publish(ctx, "account.drift", "account", string(d.AccountID), actor, map[string]any{
				"drift":    money(d.Drift),
				"repaired": d.Repaired,
			})
		}
	}
	return drifts, err
}

// AccountStatement folds the account's completed transactions into
// opening, inflow, outflow and closing figures for p.
func (s *Service) AccountStatement(ctx context.Context, id ledger.AccountID, p ledger.Period) (*ledger.Statement, error) {
	return ledger.BuildStatement(ctx, s.Store, id, p)
}

// =============================================================================
// TRANSACTIONS - manual entries
// =============================================================================

type TransactionInput struct {
	Type             ledger.TxType
	Amount           decimal.Decimal
	Fees             decimal.Decimal
	AccountID        ledger.AccountID
	PersonID         ledger.PersonID
	CounterpartyName string
	CounterpartyIBAN string
	TaxNumber        string
	Description      string
	Reference        string
	ReceiptRef       string
	Date             time.Time
}

// CreateTransaction books a manual transaction through the Recorder.
func (s *Service) CreateTransaction(ctx context.Context, actor ledger.Actor, in TransactionInput) (*ledger.Transaction, error) {
	if err := requireAdmin(actor, "create transactions"); err != nil {
		return nil, err
	}

	e := ledger.Entry{
		Type:        in.Type,
		Amount:      in.Amount,
		Fees:        in.Fees,
		AccountID:   in.AccountID,
		PersonID:    in.PersonID,
		Description: in.Description,
		Reference:   in.Reference,
		ReceiptRef:  in.ReceiptRef,
		Date:        in.Date,
		CreatedBy:   actor.ID,
	}
	if in.PersonID == "" && (in.CounterpartyName != "" || in.CounterpartyIBAN != "" || in.TaxNumber != "") {
		e.Counterparty = &ledger.Counterparty{
			Name:      in.CounterpartyName,
			IBAN:      in.CounterpartyIBAN,
			TaxNumber: in.TaxNumber,
			Source:    "transaction",
		}
	}

	var out *ledger.Transaction
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if in.PersonID != "" {
			if _, err := tx.GetPerson(ctx, in.PersonID); err != nil {
				return err
			}
		}
		t, err := s.recorder(tx).Record(ctx, e)
		if err != nil {
			return err
		}
		out = t
		return s.audit(ctx, tx, actor, ledger.AuditTransactionCreated, "transaction", string(t.ID), map[string]any{
			"account_id":     string(t.AccountID),
			"type":           string(t.Type),
			"balance_impact": money(t.BalanceImpact),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return s.Store.GetTransaction(ctx, id)
}

// ListTransactions returns one page and the total matching count.
func (s *Service) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, int, error) {
	txs, err := s.Store.ListTransactions(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.CountTransactions(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// DeleteTransaction removes a manual transaction and applies the
// compensating balance delta in the same storage transaction. Transactions
// produced by a workflow record are refused; they go away with that record.
func (s *Service) DeleteTransaction(ctx context.Context, actor ledger.Actor, id ledger.TransactionID) (*ledger.Transaction, error) {
	if err := requireAdmin(actor, "delete transactions"); err != nil {
		return nil, err
	}
	var out *ledger.Transaction
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		existing, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if owner := existing.Links.Owner(); owner != "" {
			return &ledger.DependentsError{Kind: "transaction", ID: string(id), Dependents: "linked " + owner, Count: 1}
		}
		t, err := s.recorder(tx).Reverse(ctx, id)
		if err != nil {
			return err
		}
		out = t
		return s.audit(ctx, tx, actor, ledger.AuditTransactionDeleted, "transaction", string(id), map[string]any{
			"account_id":     string(t.AccountID),
			"balance_impact": money(t.BalanceImpact),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryAudit exposes the audit log to admins.
func (s *Service) QueryAudit(ctx context.Context, actor ledger.Actor, f ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	if err := requireAdmin(actor, "read the audit log"); err != nil {
		return nil, err
	}
	return s.Store.QueryAudit(ctx, f)
}
