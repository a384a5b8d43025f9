/*
store.go - Persistence interfaces for the ledger engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Lifecycle controllers only ever see these interfaces, never SQL.

KEY INTERFACES:
  AccountStore:      Accounts plus the atomic balance increment
  TransactionStore:  Transactions (insert, delete, sums for reconciliation)
  PersonStore:       Counterparties and their running totals
  OrderStore, DebtStore, CheckStore, CardStore, IncomeStore: workflow records
  AuditLog:          Who did what when
  Store:             All of the above
  TxStore:           Store plus WithTx for atomic multi-table writes

ATOMIC INCREMENTS:
  IncrementBalance, AddPersonMovement, IncrementDebtPaid and
  AdjustCardUsage are single "SET x = x + ?" statements. Implementations
  must not read-modify-write these fields in application code.

GUARDED TRANSITIONS:
  UpdateOrder, UpdateDebt, UpdateCheck and UpdateIncome take the status
  the caller last saw. If the stored status differs the write is refused
  with ErrConcurrentModification.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (file or ":memory:")

SEE ALSO:
  - ledger.go: Writer and Recorder built on these interfaces
  - lifecycle/: Controllers that run inside WithTx
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Page is the limit/skip pair carried by every list filter.
type Page struct {
	Limit int
	Skip  int
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id AccountID) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)

	// UpdateAccountDetails writes descriptive fields only. Balances are untouched.
	UpdateAccountDetails(ctx context.Context, a Account) error
	DeleteAccount(ctx context.Context, id AccountID) error

	// IncrementBalance atomically adds delta to current_balance and returns
	// the new balance. With requireNonNegative the write is refused when the
	// result would drop below zero, returning an *InsufficientFundsError.
	IncrementBalance(ctx context.Context, id AccountID, delta decimal.Decimal, requireNonNegative bool) (decimal.Decimal, error)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionFilter struct {
	AccountID      AccountID
	PersonID       PersonID
	Type           TxType
	Status         TxStatus
	PaymentOrderID OrderID
	DebtID         DebtID
	CheckID        CheckID
	CreditCardID   CardID
	IncomeRecordID IncomeID
	From           *time.Time
	To             *time.Time
	Search         string
	Page
}

type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	CountTransactions(ctx context.Context, f TransactionFilter) (int, error)
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// SumBalanceImpact totals balance_impact over completed transactions.
	SumBalanceImpact(ctx context.Context, accountID AccountID) (decimal.Decimal, error)

	// SummarizeImpact groups completed transactions of one account by type
	// over the half-open range [from, before). Nil bounds are open.
	SummarizeImpact(ctx context.Context, accountID AccountID, from, before *time.Time) ([]ImpactTotal, error)
}

// ImpactTotal is the summed balance impact of one transaction type.
type ImpactTotal struct {
	Type   TxType
	Impact decimal.Decimal
	Count  int
}

// =============================================================================
// PEOPLE
// =============================================================================

type PersonFilter struct {
	Type   PersonType
	Search string
	Page
}

type PersonStore interface {
	// InsertPerson returns ErrDuplicate if the name (case-insensitive) is taken.
	InsertPerson(ctx context.Context, p Person) error
	GetPerson(ctx context.Context, id PersonID) (*Person, error)

	// FindPerson matches name case-insensitively, or IBAN / tax number exactly.
	// Empty keys are ignored. Returns ErrNotFound when nothing matches.
	FindPerson(ctx context.Context, name, iban, taxNumber string) (*Person, error)
	ListPeople(ctx context.Context, f PersonFilter) ([]Person, error)
	UpdatePerson(ctx context.Context, p Person) error
	DeletePerson(ctx context.Context, id PersonID) error

	// AddPersonMovement atomically adds to the running totals. last_transaction_date
	// only moves forward; a nil date leaves it alone.
	AddPersonMovement(ctx context.Context, id PersonID, sent, received decimal.Decimal, count int, date *time.Time) error
}

// =============================================================================
// PAYMENT ORDERS
// =============================================================================

type OrderFilter struct {
	Status    OrderStatus
	CreatedBy string
	Page
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o PaymentOrder) error
	GetOrder(ctx context.Context, id OrderID) (*PaymentOrder, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]PaymentOrder, error)
	UpdateOrder(ctx context.Context, o PaymentOrder, expected OrderStatus) error
	DeleteOrder(ctx context.Context, id OrderID) error
}

// =============================================================================
// DEBTS
// =============================================================================

type DebtFilter struct {
	Type     DebtType
	Category string
	Page
}

type DebtStore interface {
	InsertDebt(ctx context.Context, d Debt) error
	GetDebt(ctx context.Context, id DebtID) (*Debt, error)
	ListDebts(ctx context.Context, f DebtFilter) ([]Debt, error)
	UpdateDebt(ctx context.Context, d Debt, expected DebtStatus) error
	DeleteDebt(ctx context.Context, id DebtID) error

	// IncrementDebtPaid atomically adds to paid_amount and payment_count.
	// Refused with ErrConcurrentModification if paid_amount would exceed amount.
	IncrementDebtPaid(ctx context.Context, id DebtID, amount decimal.Decimal, date time.Time) error
	InsertDebtPayment(ctx context.Context, p DebtPayment) error
	ListDebtPayments(ctx context.Context, id DebtID) ([]DebtPayment, error)
}

// =============================================================================
// CHECKS
// =============================================================================

type CheckFilter struct {
	Type   CheckType
	Status CheckStatus
	Page
}

type CheckStore interface {
	InsertCheck(ctx context.Context, c Check) error
	GetCheck(ctx context.Context, id CheckID) (*Check, error)
	ListChecks(ctx context.Context, f CheckFilter) ([]Check, error)
	UpdateCheck(ctx context.Context, c Check, expected CheckStatus) error
	DeleteCheck(ctx context.Context, id CheckID) error
	InsertCheckOperation(ctx context.Context, op CheckOperation) error
	ListCheckOperations(ctx context.Context, id CheckID) ([]CheckOperation, error)
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

type CardStore interface {
	InsertCard(ctx context.Context, c CreditCard) error
	GetCard(ctx context.Context, id CardID) (*CreditCard, error)
	ListCards(ctx context.Context) ([]CreditCard, error)
	UpdateCardDetails(ctx context.Context, c CreditCard) error
	DeleteCard(ctx context.Context, id CardID) error

	// AdjustCardUsage atomically adds delta to used_amount, refusing results
	// above the limit (*CreditLimitError) or below zero (*ValidationError).
	AdjustCardUsage(ctx context.Context, id CardID, delta decimal.Decimal) (decimal.Decimal, error)
	InsertCardTransaction(ctx context.Context, t CardTransaction) error
	ListCardTransactions(ctx context.Context, id CardID) ([]CardTransaction, error)
	InsertCardPayment(ctx context.Context, p CardPayment) error
	ListCardPayments(ctx context.Context, id CardID) ([]CardPayment, error)
}

// =============================================================================
// INCOME RECORDS
// =============================================================================

type IncomeFilter struct {
	Status    IncomeStatus
	CreatedBy string
	Page
}

type IncomeStore interface {
	InsertIncome(ctx context.Context, r IncomeRecord) error
	GetIncome(ctx context.Context, id IncomeID) (*IncomeRecord, error)
	ListIncome(ctx context.Context, f IncomeFilter) ([]IncomeRecord, error)
	UpdateIncome(ctx context.Context, r IncomeRecord, expected IncomeStatus) error
	DeleteIncome(ctx context.Context, id IncomeID) error
}

// =============================================================================
// AUDIT LOG - Separate from ledger, tracks who did what when
// =============================================================================

type AuditAction string

const (
	AuditAccountCreated     AuditAction = "account_created"
	AuditAccountDeleted     AuditAction = "account_deleted"
	AuditBalanceAdjusted    AuditAction = "balance_adjusted"
	AuditTransactionCreated AuditAction = "transaction_created"
	AuditTransactionDeleted AuditAction = "transaction_deleted"
	AuditOrderCreated       AuditAction = "order_created"
	AuditOrderApproved      AuditAction = "order_approved"
	AuditOrderRejected      AuditAction = "order_rejected"
	AuditOrderCancelled     AuditAction = "order_cancelled"
	AuditOrderCompleted     AuditAction = "order_completed"
	AuditOrderDeleted       AuditAction = "order_deleted"
	AuditDebtPaid           AuditAction = "debt_paid"
	AuditDebtCancelled      AuditAction = "debt_cancelled"
	AuditCheckOperation     AuditAction = "check_operation"
	AuditCardCharged        AuditAction = "card_charged"
	AuditCardPaid           AuditAction = "card_paid"
	AuditIncomeVerified     AuditAction = "income_verified"
	AuditIncomeRejected     AuditAction = "income_rejected"
	AuditIncomeDeleted      AuditAction = "income_deleted"
	AuditReconciliation     AuditAction = "reconciliation"
)

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string
	Action     AuditAction
	EntityKind string
	EntityID   string
	Payload    map[string]any
}

type AuditFilter struct {
	EntityKind string
	EntityID   string
	ActorID    string
	Actions    []AuditAction
	Page
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	QueryAudit(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// =============================================================================
// STORE / TRANSACTIONAL STORE
// =============================================================================

// Store is the full persistence surface.
type Store interface {
	AccountStore
	TransactionStore
	PersonStore
	OrderStore
	DebtStore
	CheckStore
	CardStore
	IncomeStore
	AuditLog
}

// TxStore wraps Store with transaction support.
// Use this for every money-moving operation.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
