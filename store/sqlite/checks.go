package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// CHECKS (ledger.CheckStore interface)
// =============================================================================

const checkColumns = `id, amount, currency, check_number, bank_name, branch, account_number,
	drawer_name, drawer_id_number, payee_name, issue_date, due_date, check_type, status,
	early_discount_rate, cash_date, cash_account_id, return_reason, description, notes,
	created_by, created_at, updated_at`

func checkArgs(c ledger.Check) []any {
	return []any{
		ledger.ToMinor(c.Amount), c.Currency, c.Number, nullString(c.BankName), nullString(c.Branch),
		nullString(c.AccountNumber), nullString(c.DrawerName), nullString(c.DrawerIDNumber),
		nullString(c.PayeeName), ts(c.IssueDate), ts(c.DueDate), c.Type, c.Status,
		decText(c.EarlyDiscountRate), nullTS(c.CashDate), nullString(string(c.CashAccountID)),
		nullString(c.ReturnReason), nullString(c.Description), nullString(c.Notes),
		nullString(c.CreatedBy),
	}
}

func (s *Store) InsertCheck(ctx context.Context, c ledger.Check) error {
	args := append([]any{c.ID}, checkArgs(c)...)
	args = append(args, ts(c.CreatedAt), ts(c.UpdatedAt))
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO checks (`+checkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert check: %w", err)
	}
	return nil
}

func (s *Store) GetCheck(ctx context.Context, id ledger.CheckID) (*ledger.Check, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+checkColumns+" FROM checks WHERE id = ?", id)
	c, err := scanCheck(row)
	if err != nil {
		return nil, notFound(err, "check", string(id))
	}
	return &c, nil
}

func (s *Store) ListChecks(ctx context.Context, f ledger.CheckFilter) ([]ledger.Check, error) {
	w := &where{}
	if f.Type != "" {
		w.add("check_type = ?", f.Type)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+checkColumns+" FROM checks"+w.String()+" ORDER BY due_date ASC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	var checks []ledger.Check
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (s *Store) UpdateCheck(ctx context.Context, c ledger.Check, expected ledger.CheckStatus) error {
	args := checkArgs(c)
	args = append(args, ts(c.UpdatedAt), c.ID, expected)
	res, err := s.q.ExecContext(ctx, `
		UPDATE checks SET amount = ?, currency = ?, check_number = ?, bank_name = ?, branch = ?,
			account_number = ?, drawer_name = ?, drawer_id_number = ?, payee_name = ?, issue_date = ?,
			due_date = ?, check_type = ?, status = ?, early_discount_rate = ?, cash_date = ?,
			cash_account_id = ?, return_reason = ?, description = ?, notes = ?, created_by = ?,
			updated_at = ?
		WHERE id = ? AND status = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update check: %w", err)
	}
	return s.affected(ctx, res, "checks", "check", string(c.ID))
}

func (s *Store) DeleteCheck(ctx context.Context, id ledger.CheckID) error {
	return s.deleteByID(ctx, "checks", "check", string(id))
}

func (s *Store) InsertCheckOperation(ctx context.Context, op ledger.CheckOperation) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO check_operations (id, check_id, operation_type, operation_date, amount,
			account_id, discount_rate, fees, description, transaction_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.CheckID, op.Type, ts(op.Date), ledger.ToMinor(op.Amount),
		nullString(string(op.AccountID)), decText(op.DiscountRate), ledger.ToMinor(op.Fees),
		nullString(op.Description), nullString(string(op.TransactionID)),
		nullString(op.CreatedBy), ts(op.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check operation: %w", err)
	}
	return nil
}

func (s *Store) ListCheckOperations(ctx context.Context, id ledger.CheckID) ([]ledger.CheckOperation, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, check_id, operation_type, operation_date, amount, account_id, discount_rate,
			fees, description, transaction_id, created_by, created_at
		FROM check_operations WHERE check_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list check operations: %w", err)
	}
	defer rows.Close()

	var ops []ledger.CheckOperation
	for rows.Next() {
		var (
			op                                     ledger.CheckOperation
			amount, fees                           int64
			accountID, rate, desc, txID, createdBy sql.NullString
			date, created                          string
		)
		if err := rows.Scan(&op.ID, &op.CheckID, &op.Type, &date, &amount, &accountID, &rate,
			&fees, &desc, &txID, &createdBy, &created); err != nil {
			return nil, err
		}
		op.Date = parseTS(date)
		op.Amount = ledger.FromMinor(amount)
		op.AccountID = ledger.AccountID(accountID.String)
		op.DiscountRate = parseDecText(rate)
		op.Fees = ledger.FromMinor(fees)
		op.Description = desc.String
		op.TransactionID = ledger.TransactionID(txID.String)
		op.CreatedBy = createdBy.String
		op.CreatedAt = parseTS(created)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func scanCheck(row scanner) (ledger.Check, error) {
	var (
		c                                             ledger.Check
		amount                                        int64
		bank, branch, accountNo, drawer, drawerID     sql.NullString
		payee, rate, cashDate, cashAccount, returnWhy sql.NullString
		description, notes, createdBy                 sql.NullString
		issue, due, created, updated                  string
	)
	err := row.Scan(&c.ID, &amount, &c.Currency, &c.Number, &bank, &branch, &accountNo,
		&drawer, &drawerID, &payee, &issue, &due, &c.Type, &c.Status,
		&rate, &cashDate, &cashAccount, &returnWhy, &description, &notes,
		&createdBy, &created, &updated)
	if err != nil {
		return c, err
	}
	c.Amount = ledger.FromMinor(amount)
	c.BankName = bank.String
	c.Branch = branch.String
	c.AccountNumber = accountNo.String
	c.DrawerName = drawer.String
	c.DrawerIDNumber = drawerID.String
	c.PayeeName = payee.String
	c.IssueDate = parseTS(issue)
	c.DueDate = parseTS(due)
	c.EarlyDiscountRate = parseDecText(rate)
	c.CashDate = parseNullTS(cashDate)
	c.CashAccountID = ledger.AccountID(cashAccount.String)
	c.ReturnReason = returnWhy.String
	c.Description = description.String
	c.Notes = notes.String
	c.CreatedBy = createdBy.String
	c.CreatedAt = parseTS(created)
	c.UpdatedAt = parseTS(updated)
	return c, nil
}
