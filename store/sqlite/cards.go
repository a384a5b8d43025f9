package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// CREDIT CARDS (ledger.CardStore interface)
// =============================================================================

const cardColumns = `id, name, bank_name, credit_limit, used_amount, statement_day, due_day,
	flexible_account, created_at, updated_at`

func (s *Store) InsertCard(ctx context.Context, c ledger.CreditCard) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO credit_cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullString(c.BankName), ledger.ToMinor(c.Limit), ledger.ToMinor(c.UsedAmount),
		c.StatementDay, c.DueDay, c.FlexibleAccount, ts(c.CreatedAt), ts(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit card: %w", err)
	}
	return nil
}

func (s *Store) GetCard(ctx context.Context, id ledger.CardID) (*ledger.CreditCard, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM credit_cards WHERE id = ?", id)
	c, err := scanCard(row)
	if err != nil {
		return nil, notFound(err, "credit card", string(id))
	}
	return &c, nil
}

func (s *Store) ListCards(ctx context.Context) ([]ledger.CreditCard, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+cardColumns+" FROM credit_cards ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []ledger.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// UpdateCardDetails refuses a limit below the current usage.
func (s *Store) UpdateCardDetails(ctx context.Context, c ledger.CreditCard) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE credit_cards SET name = ?, bank_name = ?, credit_limit = ?, statement_day = ?,
			due_day = ?, flexible_account = ?, updated_at = ?
		WHERE id = ? AND used_amount <= ?`,
		c.Name, nullString(c.BankName), ledger.ToMinor(c.Limit), c.StatementDay, c.DueDay,
		c.FlexibleAccount, ts(c.UpdatedAt), c.ID, ledger.ToMinor(c.Limit),
	)
	if err != nil {
		return fmt.Errorf("failed to update credit card: %w", err)
	}
	err = s.affected(ctx, res, "credit_cards", "credit card", string(c.ID))
	if errors.Is(err, ledger.ErrConcurrentModification) {
		return ledger.Invalid("limit", "cannot be lower than the amount already used")
	}
	return err
}

func (s *Store) DeleteCard(ctx context.Context, id ledger.CardID) error {
	return s.deleteByID(ctx, "credit_cards", "credit card", string(id))
}

// AdjustCardUsage keeps 0 <= used_amount <= credit_limit in one statement.
func (s *Store) AdjustCardUsage(ctx context.Context, id ledger.CardID, delta decimal.Decimal) (decimal.Decimal, error) {
	d := ledger.ToMinor(delta)
	var used int64
	err := s.q.QueryRowContext(ctx, `
		UPDATE credit_cards SET used_amount = used_amount + ?, updated_at = ?
		WHERE id = ? AND used_amount + ? <= credit_limit AND used_amount + ? >= 0
		RETURNING used_amount`,
		d, ts(time.Now()), id, d, d,
	).Scan(&used)
	if err == nil {
		return ledger.FromMinor(used), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to update card usage: %w", err)
	}

	card, err := s.GetCard(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if delta.IsPositive() {
		return decimal.Zero, &ledger.CreditLimitError{
			CardID:    id,
			Available: ledger.AvailableLimit(card.Limit, card.UsedAmount),
			Requested: delta,
		}
	}
	return decimal.Zero, ledger.Invalid("amount", "payment %s exceeds used amount %s",
		delta.Neg().StringFixed(2), card.UsedAmount.StringFixed(2))
}

func (s *Store) InsertCardTransaction(ctx context.Context, t ledger.CardTransaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO card_transactions (id, card_id, amount, description, category, merchant,
			tx_date, installments, installment_amount, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CardID, ledger.ToMinor(t.Amount), nullString(t.Description), nullString(t.Category),
		nullString(t.Merchant), ts(t.Date), t.Installments, ledger.ToMinor(t.InstallmentAmount),
		nullString(t.CreatedBy), ts(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card transaction: %w", err)
	}
	return nil
}

func (s *Store) ListCardTransactions(ctx context.Context, id ledger.CardID) ([]ledger.CardTransaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, card_id, amount, description, category, merchant, tx_date, installments,
			installment_amount, created_by, created_at
		FROM card_transactions WHERE card_id = ? ORDER BY tx_date DESC, created_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list card transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.CardTransaction
	for rows.Next() {
		var (
			t                                   ledger.CardTransaction
			amount, installment                 int64
			desc, category, merchant, createdBy sql.NullString
			date, created                       string
		)
		if err := rows.Scan(&t.ID, &t.CardID, &amount, &desc, &category, &merchant, &date,
			&t.Installments, &installment, &createdBy, &created); err != nil {
			return nil, err
		}
		t.Amount = ledger.FromMinor(amount)
		t.InstallmentAmount = ledger.FromMinor(installment)
		t.Description = desc.String
		t.Category = category.String
		t.Merchant = merchant.String
		t.Date = parseTS(date)
		t.CreatedBy = createdBy.String
		t.CreatedAt = parseTS(created)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) InsertCardPayment(ctx context.Context, p ledger.CardPayment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO card_payments (id, card_id, amount, payment_date, payment_type, account_id,
			transaction_id, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CardID, ledger.ToMinor(p.Amount), ts(p.Date), p.Type,
		nullString(string(p.AccountID)), nullString(string(p.TransactionID)),
		nullString(p.Description), nullString(p.CreatedBy), ts(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card payment: %w", err)
	}
	return nil
}

func (s *Store) ListCardPayments(ctx context.Context, id ledger.CardID) ([]ledger.CardPayment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, card_id, amount, payment_date, payment_type, account_id, transaction_id,
			description, created_by, created_at
		FROM card_payments WHERE card_id = ? ORDER BY payment_date DESC, created_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list card payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.CardPayment
	for rows.Next() {
		var (
			p                                ledger.CardPayment
			amount                           int64
			accountID, txID, desc, createdBy sql.NullString
			date, created                    string
		)
		if err := rows.Scan(&p.ID, &p.CardID, &amount, &date, &p.Type, &accountID, &txID,
			&desc, &createdBy, &created); err != nil {
			return nil, err
		}
		p.Amount = ledger.FromMinor(amount)
		p.Date = parseTS(date)
		p.AccountID = ledger.AccountID(accountID.String)
		p.TransactionID = ledger.TransactionID(txID.String)
		p.Description = desc.String
		p.CreatedBy = createdBy.String
		p.CreatedAt = parseTS(created)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanCard(row scanner) (ledger.CreditCard, error) {
	var (
		c                ledger.CreditCard
		bank             sql.NullString
		limit, used      int64
		created, updated string
	)
	err := row.Scan(&c.ID, &c.Name, &bank, &limit, &used, &c.StatementDay, &c.DueDay,
		&c.FlexibleAccount, &created, &updated)
	if err != nil {
		return c, err
	}
	c.BankName = bank.String
	c.Limit = ledger.FromMinor(limit)
	c.UsedAmount = ledger.FromMinor(used)
	c.CreatedAt = parseTS(created)
	c.UpdatedAt = parseTS(updated)
	return c, nil
}
