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
// ACCOUNTS (ledger.AccountStore interface)
// =============================================================================

const accountColumns = `id, name, iban, bank_name, account_type, currency,
	initial_balance, current_balance, created_at, updated_at`

// CreateAccount inserts an account. current_balance starts at initial_balance.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, nullString(a.IBAN), nullString(a.BankName), a.Type, a.Currency,
		ledger.ToMinor(a.InitialBalance), ledger.ToMinor(a.InitialBalance),
		ts(a.CreatedAt), ts(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if err != nil {
		return nil, notFound(err, "account", string(id))
	}
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccountDetails never touches initial_balance or current_balance.
func (s *Store) UpdateAccountDetails(ctx context.Context, a ledger.Account) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE accounts SET name = ?, iban = ?, bank_name = ?, account_type = ?, currency = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, nullString(a.IBAN), nullString(a.BankName), a.Type, a.Currency, ts(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return s.affected(ctx, res, "accounts", "account", string(a.ID))
}

func (s *Store) DeleteAccount(ctx context.Context, id ledger.AccountID) error {
	return s.deleteByID(ctx, "accounts", "account", string(id))
}

// IncrementBalance is the single statement that changes current_balance.
func (s *Store) IncrementBalance(ctx context.Context, id ledger.AccountID, delta decimal.Decimal, requireNonNegative bool) (decimal.Decimal, error) {
	d := ledger.ToMinor(delta)
	query := `UPDATE accounts SET current_balance = current_balance + ?, updated_at = ? WHERE id = ?`
	args := []any{d, ts(time.Now()), id}
	if requireNonNegative {
		query += ` AND current_balance + ? >= 0`
		args = append(args, d)
	}
	query += ` RETURNING current_balance`

	var balance int64
	err := s.q.QueryRowContext(ctx, query, args...).Scan(&balance)
	if err == nil {
		return ledger.FromMinor(balance), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	// No row updated: either the account is missing or the guard refused.
	err = s.q.QueryRowContext(ctx, "SELECT current_balance FROM accounts WHERE id = ?", id).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err, "account", string(id))
	}
	return decimal.Zero, &ledger.InsufficientFundsError{
		AccountID: id,
		Available: ledger.FromMinor(balance),
		Requested: delta.Neg(),
	}
}

func scanAccount(row scanner) (ledger.Account, error) {
	var (
		a                ledger.Account
		iban, bankName   sql.NullString
		initial, current int64
		created, updated string
	)
	err := row.Scan(&a.ID, &a.Name, &iban, &bankName, &a.Type, &a.Currency,
		&initial, &current, &created, &updated)
	if err != nil {
		return a, err
	}
	a.IBAN = iban.String
	a.BankName = bankName.String
	a.InitialBalance = ledger.FromMinor(initial)
	a.CurrentBalance = ledger.FromMinor(current)
	a.CreatedAt = parseTS(created)
	a.UpdatedAt = parseTS(updated)
	return a, nil
}

// =============================================================================
// TRANSACTIONS (ledger.TransactionStore interface)
// =============================================================================

const transactionColumns = `id, account_id, tx_type, status, amount, fees, net_amount, balance_impact,
	currency, person_id, payment_order_id, debt_id, check_id, credit_card_id, income_record_id,
	description, reference_number, receipt_ref, tx_date, created_by, created_at`

func (s *Store) InsertTransaction(ctx context.Context, tx ledger.Transaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.AccountID, tx.Type, tx.Status,
		ledger.ToMinor(tx.Amount), ledger.ToMinor(tx.Fees),
		ledger.ToMinor(tx.NetAmount), ledger.ToMinor(tx.BalanceImpact),
		nullString(tx.Currency), nullString(string(tx.PersonID)),
		nullString(string(tx.Links.PaymentOrderID)), nullString(string(tx.Links.DebtID)),
		nullString(string(tx.Links.CheckID)), nullString(string(tx.Links.CreditCardID)),
		nullString(string(tx.Links.IncomeRecordID)),
		nullString(tx.Description), nullString(tx.ReferenceNumber), nullString(tx.ReceiptRef),
		ts(tx.Date), nullString(tx.CreatedBy), ts(tx.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err, "transaction", string(id))
	}
	return &tx, nil
}

func transactionWhere(f ledger.TransactionFilter) *where {
	w := &where{}
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	if f.PersonID != "" {
		w.add("person_id = ?", f.PersonID)
	}
	if f.Type != "" {
		w.add("tx_type = ?", f.Type)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.PaymentOrderID != "" {
		w.add("payment_order_id = ?", f.PaymentOrderID)
	}
	if f.DebtID != "" {
		w.add("debt_id = ?", f.DebtID)
	}
	if f.CheckID != "" {
		w.add("check_id = ?", f.CheckID)
	}
	if f.CreditCardID != "" {
		w.add("credit_card_id = ?", f.CreditCardID)
	}
	if f.IncomeRecordID != "" {
		w.add("income_record_id = ?", f.IncomeRecordID)
	}
	if f.From != nil {
		w.add("tx_date >= ?", ts(*f.From))
	}
	if f.To != nil {
		w.add("tx_date <= ?", ts(*f.To))
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		w.add("(description LIKE ? OR reference_number LIKE ?)", like, like)
	}
	return w
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	w := transactionWhere(f)
	limit, args := page(f.Page, w.args)
	query := "SELECT " + transactionColumns + " FROM transactions" + w.String() +
		" ORDER BY tx_date DESC, created_at DESC" + limit

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) CountTransactions(ctx context.Context, f ledger.TransactionFilter) (int, error) {
	w := transactionWhere(f)
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+w.String(), w.args...).Scan(&n)
	return n, err
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	return s.deleteByID(ctx, "transactions", "transaction", string(id))
}

func (s *Store) SumBalanceImpact(ctx context.Context, accountID ledger.AccountID) (decimal.Decimal, error) {
	var sum int64
	err := s.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance_impact), 0) FROM transactions
		WHERE account_id = ? AND status = ?`,
		accountID, ledger.TxCompleted,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.FromMinor(sum), nil
}

func (s *Store) SummarizeImpact(ctx context.Context, accountID ledger.AccountID, from, before *time.Time) ([]ledger.ImpactTotal, error) {
	w := &where{}
	w.add("account_id = ?", accountID)
	w.add("status = ?", ledger.TxCompleted)
	if from != nil {
		w.add("tx_date >= ?", ts(*from))
	}
	if before != nil {
		w.add("tx_date < ?", ts(*before))
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT tx_type, COALESCE(SUM(balance_impact), 0), COUNT(*) FROM transactions`+w.String()+`
		GROUP BY tx_type ORDER BY tx_type`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	defer rows.Close()

	var totals []ledger.ImpactTotal
	for rows.Next() {
		var (
			t     ledger.ImpactTotal
			minor int64
		)
		if err := rows.Scan(&t.Type, &minor, &t.Count); err != nil {
			return nil, err
		}
		t.Impact = ledger.FromMinor(minor)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx                                         ledger.Transaction
		amount, fees, net, impact                  int64
		currency, personID                         sql.NullString
		orderID, debtID, checkID, cardID, incomeID sql.NullString
		description, reference, receipt, createdBy sql.NullString
		date, created                              string
	)
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.Type, &tx.Status,
		&amount, &fees, &net, &impact,
		&currency, &personID, &orderID, &debtID, &checkID, &cardID, &incomeID,
		&description, &reference, &receipt, &date, &createdBy, &created)
	if err != nil {
		return tx, err
	}
	tx.Amount = ledger.FromMinor(amount)
	tx.Fees = ledger.FromMinor(fees)
	tx.NetAmount = ledger.FromMinor(net)
	tx.BalanceImpact = ledger.FromMinor(impact)
	tx.Currency = currency.String
	tx.PersonID = ledger.PersonID(personID.String)
	tx.Links = ledger.Links{
		PaymentOrderID: ledger.OrderID(orderID.String),
		DebtID:         ledger.DebtID(debtID.String),
		CheckID:        ledger.CheckID(checkID.String),
		CreditCardID:   ledger.CardID(cardID.String),
		IncomeRecordID: ledger.IncomeID(incomeID.String),
	}
	tx.Description = description.String
	tx.ReferenceNumber = reference.String
	tx.ReceiptRef = receipt.String
	tx.Date = parseTS(date)
	tx.CreatedBy = createdBy.String
	tx.CreatedAt = parseTS(created)
	return tx, nil
}
