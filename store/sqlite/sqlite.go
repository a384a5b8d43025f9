/*
Package sqlite provides a SQLite-backed implementation of the ledger storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. The same Store
  type serves both roles: the root Store talks to *sql.DB, and WithTx hands
  the callback a Store bound to the open *sql.Tx.

MONEY ENCODING:
  Every amount is an INTEGER of minor units (kuruş/cents). Balance, card
  usage and person totals change through "SET x = x + ?" so concurrent
  writers never lose an update and decimal rounding never drifts.

KEY TABLES:
  accounts:          Bank accounts and their stored balances
  transactions:      Money movements with fixed balance_impact
  people:            Counterparties (UNIQUE name_key)
  payment_orders:    Order workflow
  debts, debt_payments
  checks, check_operations
  credit_cards, card_transactions, card_payments
  income_records
  audit_log:         Append-only who/what/when

CONCURRENCY:
  Transactions are opened with BEGIN IMMEDIATE (_txlock=immediate), so a
  writer holds SQLite's single write lock from its first statement and a
  second writer waits (_busy_timeout) instead of failing on upgrade.
  Status changes are guarded with "WHERE status = ?".

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery
  ":memory:" databases are pinned to one connection so every query sees
  the same database.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.WithTx(ctx, func(s ledger.Store) error {
      _, err := ledger.NewRecorder(s).Record(ctx, entry)
      return err
  })

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/ledger.go: Writer and Recorder using Store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	tx *sql.Tx // non-nil when bound to a transaction
}

var _ ledger.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. Called on a Store that
// is already bound to a transaction, fn simply joins it.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Store{db: s.db, q: sqlTx, tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		iban TEXT,
		bank_name TEXT,
		account_type TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'TRY',
		initial_balance INTEGER NOT NULL DEFAULT 0,
		current_balance INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Transactions: balance_impact is written once and never updated
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		status TEXT NOT NULL,
		amount INTEGER NOT NULL,
		fees INTEGER NOT NULL DEFAULT 0,
		net_amount INTEGER NOT NULL,
		balance_impact INTEGER NOT NULL,
		currency TEXT,
		person_id TEXT,
		payment_order_id TEXT,
		debt_id TEXT,
		check_id TEXT,
		credit_card_id TEXT,
		income_record_id TEXT,
		description TEXT,
		reference_number TEXT,
		receipt_ref TEXT,
		tx_date TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, tx_date DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_person
		ON transactions(person_id) WHERE person_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_order
		ON transactions(payment_order_id) WHERE payment_order_id IS NOT NULL;

	-- People: name_key is the case-folded name; uniqueness stops two
	-- concurrent resolves from creating twins
	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL UNIQUE,
		iban TEXT,
		tax_number TEXT,
		phone TEXT,
		email TEXT,
		company TEXT,
		address TEXT,
		notes TEXT,
		person_type TEXT NOT NULL,
		auto_created BOOLEAN NOT NULL DEFAULT FALSE,
		creation_source TEXT,
		total_sent INTEGER NOT NULL DEFAULT 0,
		total_received INTEGER NOT NULL DEFAULT 0,
		transaction_count INTEGER NOT NULL DEFAULT 0,
		last_transaction_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_iban
		ON people(iban) WHERE iban IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_people_tax_number
		ON people(tax_number) WHERE tax_number IS NOT NULL;

	CREATE TABLE IF NOT EXISTS payment_orders (
		id TEXT PRIMARY KEY,
		recipient_name TEXT NOT NULL,
		recipient_iban TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		description TEXT,
		category TEXT,
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_by TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		account_id TEXT,
		receipt_ref TEXT,
		actual_amount INTEGER,
		actual_fees INTEGER,
		net_deducted INTEGER,
		extraction_confidence REAL DEFAULT 0,
		extraction_note TEXT,
		completed_at TEXT,
		completed_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payment_orders_status
		ON payment_orders(status);
	CREATE INDEX IF NOT EXISTS idx_payment_orders_created_by
		ON payment_orders(created_by);

	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		creditor_name TEXT NOT NULL,
		debtor_name TEXT NOT NULL,
		amount INTEGER NOT NULL,
		paid_amount INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL,
		description TEXT,
		category TEXT,
		debt_type TEXT NOT NULL,
		due_date TEXT NOT NULL,
		interest_rate TEXT,
		payment_terms TEXT,
		notes TEXT,
		payment_count INTEGER NOT NULL DEFAULT 0,
		last_payment_date TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (paid_amount <= amount)
	);

	CREATE TABLE IF NOT EXISTS debt_payments (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		payment_date TEXT NOT NULL,
		method TEXT,
		account_id TEXT,
		transaction_id TEXT,
		description TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_debt_payments_debt
		ON debt_payments(debt_id);

	CREATE TABLE IF NOT EXISTS checks (
		id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		check_number TEXT NOT NULL,
		bank_name TEXT,
		branch TEXT,
		account_number TEXT,
		drawer_name TEXT,
		drawer_id_number TEXT,
		payee_name TEXT,
		issue_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		check_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		early_discount_rate TEXT,
		cash_date TEXT,
		cash_account_id TEXT,
		return_reason TEXT,
		description TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS check_operations (
		id TEXT PRIMARY KEY,
		check_id TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		operation_date TEXT NOT NULL,
		amount INTEGER NOT NULL,
		account_id TEXT,
		discount_rate TEXT,
		fees INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		transaction_id TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_check_operations_check
		ON check_operations(check_id);

	CREATE TABLE IF NOT EXISTS credit_cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bank_name TEXT,
		credit_limit INTEGER NOT NULL,
		used_amount INTEGER NOT NULL DEFAULT 0,
		statement_day INTEGER NOT NULL,
		due_day INTEGER NOT NULL,
		flexible_account BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (used_amount >= 0 AND used_amount <= credit_limit)
	);

	CREATE TABLE IF NOT EXISTS card_transactions (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		description TEXT,
		category TEXT,
		merchant TEXT,
		tx_date TEXT NOT NULL,
		installments INTEGER NOT NULL DEFAULT 1,
		installment_amount INTEGER NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_card_transactions_card
		ON card_transactions(card_id);

	CREATE TABLE IF NOT EXISTS card_payments (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		payment_date TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		account_id TEXT,
		transaction_id TEXT,
		description TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_card_payments_card
		ON card_payments(card_id);

	CREATE TABLE IF NOT EXISTS income_records (
		id TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		account_id TEXT NOT NULL,
		description TEXT,
		income_date TEXT NOT NULL,
		receipt_ref TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		verified_by TEXT,
		verified_at TEXT,
		rejection_reason TEXT,
		transaction_id TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_income_records_status
		ON income_records(status);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_entity
		ON audit_log(entity_kind, entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears every table. Used by tests and the CLI.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"accounts", "transactions", "people", "payment_orders", "debts",
		"debt_payments", "checks", "check_operations", "credit_cards",
		"card_transactions", "card_payments", "income_records", "audit_log",
	}
	return s.WithTx(ctx, func(ls ledger.Store) error {
		q := ls.(*Store).q
		for _, t := range tables {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000Z"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func nullTS(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ts(*t), Valid: true}
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func parseNullTS(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTS(ns.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullMinor(d decimal.NullDecimal) sql.NullInt64 {
	if !d.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ledger.ToMinor(d.Decimal), Valid: true}
}

func fromNullMinor(n sql.NullInt64) decimal.NullDecimal {
	if !n.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(ledger.FromMinor(n.Int64))
}

func decText(d decimal.Decimal) string { return d.String() }

func parseDecText(ns sql.NullString) decimal.Decimal {
	if !ns.Valid {
		return decimal.Zero
	}
	return ledger.MustParseDecimal(ns.String)
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// where joins conditions with AND.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET. A non-positive limit means no limit.
func page(p ledger.Page, args []any) (string, []any) {
	limit := p.Limit
	if limit <= 0 {
		limit = -1
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	return " LIMIT ? OFFSET ?", append(args, limit, skip)
}

// affected turns a zero-row guarded update into NotFound or ConcurrentModification.
func (s *Store) affected(ctx context.Context, res sql.Result, table, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return ledger.ErrConcurrentModification
}

// deleteByID removes one row, returning NotFound when absent.
func (s *Store) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &ledger.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
