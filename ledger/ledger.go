/*
ledger.go - Balance Writer and Transaction Recorder

PURPOSE:
  The Writer is the single code path allowed to change an account's
  current_balance. The Recorder is the single code path allowed to create
  or delete a Transaction, and it always pairs that with one Writer call
  so the balance invariant holds:

    current_balance == initial_balance + Σ balance_impact(completed)

SIGN CONVENTION:
  income, refund, interest   +amount
  expense, transfer          −(amount + fees)
  fee                        −amount

  net_amount is amount + fees for expense/transfer, amount otherwise.
  balance_impact is fixed when the transaction is created and never
  recomputed.

ATOMICITY:
  Recorder methods expect a transaction-scoped Store (the argument handed
  to TxStore.WithTx). Insert, balance change and counterparty update then
  commit or roll back together. RecordAtomic wraps that for callers that
  are not already inside WithTx.

EXAMPLE FLOW (payment order completion):
  1. Insert expense, balance_impact −500
  2. Writer.ApplyDebit(acc, 500)        balance 500 → 0 (guarded ≥ 0);
                                        a refusal rolls back step 1
  3. Registry.RecordMovement(recipient, sent, 500)

SEE ALSO:
  - counterparty.go: Counterparty Registry
  - reconcile.go: Recomputes the invariant and reports drift
  - lifecycle/: Controllers that call the Recorder
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// WRITER - The only writer of current_balance
// =============================================================================

type Writer struct {
	Store AccountStore
}

func NewWriter(store AccountStore) *Writer {
	return &Writer{Store: store}
}

// ApplyDelta atomically adds delta to the account balance and returns the
// new balance. Returns ErrNotFound for an unknown account.
func (w *Writer) ApplyDelta(ctx context.Context, accountID AccountID, delta decimal.Decimal) (decimal.Decimal, error) {
	return w.Store.IncrementBalance(ctx, accountID, Round(delta), false)
}

// ApplyDebit subtracts amount only if the balance stays non-negative. The
// check and the write are one statement, so two concurrent debits cannot
// both pass the check.
func (w *Writer) ApplyDebit(ctx context.Context, accountID AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	return w.Store.IncrementBalance(ctx, accountID, Round(amount).Neg(), true)
}

// =============================================================================
// SIGN RULES
// =============================================================================

// BalanceImpact returns the signed effect of a transaction on its account.
func BalanceImpact(t TxType, amount, fees decimal.Decimal) decimal.Decimal {
	switch t {
	case TxExpense, TxTransfer:
		return amount.Add(fees).Neg()
	case TxFee:
		return amount.Neg()
	default:
		return amount
	}
}

// NetAmount is the gross outflow for expense/transfer and amount otherwise.
func NetAmount(t TxType, amount, fees decimal.Decimal) decimal.Decimal {
	if t == TxExpense || t == TxTransfer {
		return amount.Add(fees)
	}
	return amount
}

// =============================================================================
// RECORDER
// =============================================================================

// Counterparty identifies the other side of a transaction. Any one of the
// keys is enough for the Registry to resolve a Person.
type Counterparty struct {
	Name      string
	IBAN      string
	TaxNumber string
	Source    string // creation_source when a Person is auto-created
}

func (c *Counterparty) empty() bool {
	return c == nil || (strings.TrimSpace(c.Name) == "" && c.IBAN == "" && c.TaxNumber == "")
}

// Entry is the input to Record.
type Entry struct {
	Type         TxType
	Amount       decimal.Decimal
	Fees         decimal.Decimal
	AccountID    AccountID

	// Currency of the record the entry books. When set it must match the
	// account; there is no conversion.
	Currency string

	Counterparty *Counterparty
	PersonID     PersonID // skips resolution when already known
	Links        Links
	Description  string
	Reference    string
	ReceiptRef   string
	Date         time.Time
	CreatedBy    string

	// RequireFunds refuses an outflow that would take the balance below zero.
	RequireFunds bool
}

type Recorder struct {
	Store    Store
	Writer   *Writer
	Registry *Registry
	NewID    func() string
	Now      Clock
}

// NewRecorder builds a Recorder over a (normally transaction-scoped) Store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		Store:    store,
		Writer:   NewWriter(store),
		Registry: NewRegistry(store),
		NewID:    uuid.NewString,
		Now:      SystemClock,
	}
}

func (e Entry) validate() error {
	if !e.Type.Valid() {
		return Invalid("type", "unknown transaction type %q", e.Type)
	}
	if _, err := CheckAmount("amount", e.Amount); err != nil {
		return err
	}
	if _, err := CheckNonNegative("fees", e.Fees); err != nil {
		return err
	}
	if e.AccountID == "" {
		return Invalid("account_id", "required")
	}
	return nil
}

// Record persists a completed transaction, applies its balance impact and
// updates the counterparty's totals.
func (r *Recorder) Record(ctx context.Context, e Entry) (*Transaction, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}

	account, err := r.Store.GetAccount(ctx, e.AccountID)
	if err != nil {
		return nil, err
	}
	if e.Currency != "" && !strings.EqualFold(e.Currency, account.Currency) {
		return nil, Invalid("currency", "%s does not match account currency %s", e.Currency, account.Currency)
	}

	amount, fees := Round(e.Amount), Round(e.Fees)
	impact := BalanceImpact(e.Type, amount, fees)
	now := r.Now()
	date := e.Date
	if date.IsZero() {
		date = now
	}

	personID := e.PersonID
	if personID == "" && !e.Counterparty.empty() {
		personID, err = r.Registry.Resolve(ctx, *e.Counterparty)
		if err != nil {
			return nil, fmt.Errorf("resolve counterparty: %w", err)
		}
	}

	tx := Transaction{
		ID:              TransactionID(r.NewID()),
		AccountID:       e.AccountID,
		Type:            e.Type,
		Status:          TxCompleted,
		Amount:          amount,
		Fees:            fees,
		NetAmount:       NetAmount(e.Type, amount, fees),
		BalanceImpact:   impact,
		Currency:        account.Currency,
		PersonID:        personID,
		Links:           e.Links,
		Description:     e.Description,
		ReferenceNumber: e.Reference,
		ReceiptRef:      e.ReceiptRef,
		Date:            date,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       now,
	}

	if err := r.Store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if e.RequireFunds && impact.IsNegative() {
		_, err = r.Writer.ApplyDebit(ctx, e.AccountID, impact.Neg())
	} else {
		_, err = r.Writer.ApplyDelta(ctx, e.AccountID, impact)
	}
	if err != nil {
		return nil, err
	}

	if personID != "" {
		if err := r.Registry.RecordMovement(ctx, personID, DirectionOf(e.Type), amount, date); err != nil {
			return nil, fmt.Errorf("record counterparty movement: %w", err)
		}
	}

	return &tx, nil
}

// Reverse deletes a transaction and applies the compensating delta. The
// counterparty totals are walked back as well.
func (r *Recorder) Reverse(ctx context.Context, id TransactionID) (*Transaction, error) {
	tx, err := r.Store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.Store.DeleteTransaction(ctx, id); err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}

	if tx.Status != TxCompleted {
		return tx, nil
	}

	if _, err := r.Writer.ApplyDelta(ctx, tx.AccountID, tx.BalanceImpact.Neg()); err != nil {
		// The account may already be gone; nothing left to compensate.
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if tx.PersonID != "" {
		err := r.Registry.RevertMovement(ctx, tx.PersonID, DirectionOf(tx.Type), tx.Amount)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("revert counterparty movement: %w", err)
		}
	}

	return tx, nil
}

// RecordAtomic runs Record in its own storage transaction.
func RecordAtomic(ctx context.Context, store TxStore, e Entry) (*Transaction, error) {
	var out *Transaction
	err := store.WithTx(ctx, func(s Store) error {
		tx, err := NewRecorder(s).Record(ctx, e)
		out = tx
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
