package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// DEBTS (ledger.DebtStore interface)
// =============================================================================

const debtColumns = `id, creditor_name, debtor_name, amount, paid_amount, currency, description,
	category, debt_type, due_date, interest_rate, payment_terms, notes, payment_count,
	last_payment_date, status, created_by, created_at, updated_at`

func (s *Store) InsertDebt(ctx context.Context, d ledger.Debt) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreditorName, d.DebtorName, ledger.ToMinor(d.Amount), ledger.ToMinor(d.PaidAmount),
		d.Currency, nullString(d.Description), nullString(d.Category), d.Type, ts(d.DueDate),
		decText(d.InterestRate), nullString(d.PaymentTerms), nullString(d.Notes), d.PaymentCount,
		nullTS(d.LastPaymentDate), d.Status, nullString(d.CreatedBy), ts(d.CreatedAt), ts(d.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}
	return nil
}

func (s *Store) GetDebt(ctx context.Context, id ledger.DebtID) (*ledger.Debt, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE id = ?", id)
	d, err := scanDebt(row)
	if err != nil {
		return nil, notFound(err, "debt", string(id))
	}
	return &d, nil
}

func (s *Store) ListDebts(ctx context.Context, f ledger.DebtFilter) ([]ledger.Debt, error) {
	w := &where{}
	if f.Type != "" {
		w.add("debt_type = ?", f.Type)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts"+w.String()+" ORDER BY due_date ASC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []ledger.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// UpdateDebt writes descriptive fields and the stored status. paid_amount,
// payment_count and last_payment_date belong to IncrementDebtPaid.
func (s *Store) UpdateDebt(ctx context.Context, d ledger.Debt, expected ledger.DebtStatus) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE debts SET creditor_name = ?, debtor_name = ?, amount = ?, currency = ?, description = ?,
			category = ?, debt_type = ?, due_date = ?, interest_rate = ?, payment_terms = ?, notes = ?,
			status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND paid_amount <= ?`,
		d.CreditorName, d.DebtorName, ledger.ToMinor(d.Amount), d.Currency, nullString(d.Description),
		nullString(d.Category), d.Type, ts(d.DueDate), decText(d.InterestRate),
		nullString(d.PaymentTerms), nullString(d.Notes), d.Status, ts(d.UpdatedAt),
		d.ID, expected, ledger.ToMinor(d.Amount),
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	return s.affected(ctx, res, "debts", "debt", string(d.ID))
}

func (s *Store) DeleteDebt(ctx context.Context, id ledger.DebtID) error {
	return s.deleteByID(ctx, "debts", "debt", string(id))
}

func (s *Store) IncrementDebtPaid(ctx context.Context, id ledger.DebtID, amount decimal.Decimal, date time.Time) error {
	m := ledger.ToMinor(amount)
	res, err := s.q.ExecContext(ctx, `
		UPDATE debts SET
			paid_amount = paid_amount + ?,
			payment_count = payment_count + 1,
			last_payment_date = ?,
			updated_at = ?
		WHERE id = ? AND status <> ? AND paid_amount + ? <= amount`,
		m, ts(date), ts(time.Now()), id, ledger.DebtCancelled, m,
	)
	if err != nil {
		return fmt.Errorf("failed to record debt payment: %w", err)
	}
	return s.affected(ctx, res, "debts", "debt", string(id))
}

func (s *Store) InsertDebtPayment(ctx context.Context, p ledger.DebtPayment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO debt_payments (id, debt_id, amount, payment_date, method, account_id,
			transaction_id, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DebtID, ledger.ToMinor(p.Amount), ts(p.Date), nullString(p.Method),
		nullString(string(p.AccountID)), nullString(string(p.TransactionID)),
		nullString(p.Description), nullString(p.CreatedBy), ts(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt payment: %w", err)
	}
	return nil
}

func (s *Store) ListDebtPayments(ctx context.Context, id ledger.DebtID) ([]ledger.DebtPayment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, debt_id, amount, payment_date, method, account_id, transaction_id,
			description, created_by, created_at
		FROM debt_payments WHERE debt_id = ? ORDER BY payment_date ASC, created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt payments: %w", err)
	}
	defer rows.Close()

	var payments []ledger.DebtPayment
	for rows.Next() {
		var (
			p                                        ledger.DebtPayment
			amount                                   int64
			method, accountID, txID, desc, createdBy sql.NullString
			date, created                            string
		)
		if err := rows.Scan(&p.ID, &p.DebtID, &amount, &date, &method, &accountID, &txID,
			&desc, &createdBy, &created); err != nil {
			return nil, err
		}
		p.Amount = ledger.FromMinor(amount)
		p.Date = parseTS(date)
		p.Method = method.String
		p.AccountID = ledger.AccountID(accountID.String)
		p.TransactionID = ledger.TransactionID(txID.String)
		p.Description = desc.String
		p.CreatedBy = createdBy.String
		p.CreatedAt = parseTS(created)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanDebt(row scanner) (ledger.Debt, error) {
	var (
		d                                    ledger.Debt
		amount, paid                         int64
		description, category, rate          sql.NullString
		terms, notes, lastPayment, createdBy sql.NullString
		due, created, updated                string
	)
	err := row.Scan(&d.ID, &d.CreditorName, &d.DebtorName, &amount, &paid, &d.Currency,
		&description, &category, &d.Type, &due, &rate, &terms, &notes, &d.PaymentCount,
		&lastPayment, &d.Status, &createdBy, &created, &updated)
	if err != nil {
		return d, err
	}
	d.Amount = ledger.FromMinor(amount)
	d.PaidAmount = ledger.FromMinor(paid)
	d.Description = description.String
	d.Category = category.String
	d.DueDate = parseTS(due)
	d.InterestRate = parseDecText(rate)
	d.PaymentTerms = terms.String
	d.Notes = notes.String
	d.LastPaymentDate = parseNullTS(lastPayment)
	d.CreatedBy = createdBy.String
	d.CreatedAt = parseTS(created)
	d.UpdatedAt = parseTS(updated)
	return d, nil
}
