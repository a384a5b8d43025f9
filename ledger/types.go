/*
Package ledger provides the core accounting engine for the back-office service.

PURPOSE:
  Holds the domain records (accounts, transactions, payment orders, debts,
  checks, credit cards, income records, people) together with the pieces
  that keep account balances honest: the balance Writer, the transaction
  Recorder, the counterparty Registry and the Reconciler.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: a bank account with a stored current_balance
  - Transaction: an immutable money movement with a signed balance_impact
  - PaymentOrder / Debt / Check / CreditCard / IncomeRecord: workflow records
  - Person: a counterparty with running totals

BALANCE INVARIANT:
  For every account,
    current_balance == initial_balance + Σ balance_impact(completed transactions)
  The Writer is the only code path that changes current_balance, and every
  call to it is paired with exactly one transaction insert or delete.

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal in memory, integer minor units on disk
  2. Type Safety: strong typing for IDs prevents mixing account/order IDs
  3. Derived state: overdue/partial/early-cash figures are never stored

SEE ALSO:
  - calc.go: Pure status/amount calculators
  - ledger.go: Writer and Recorder
  - store.go: Persistence interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type TransactionID string
type PersonID string
type OrderID string
type DebtID string
type CheckID string
type CardID string
type IncomeID string

// Actor is the authenticated caller as reported by the auth collaborator.
type Actor struct {
	ID      string
	IsAdmin bool
}

// =============================================================================
// ACCOUNT
// =============================================================================

type AccountType string

const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountBusiness AccountType = "business"
	AccountForeign  AccountType = "foreign"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountBusiness, AccountForeign:
		return true
	}
	return false
}

type Account struct {
	ID             AccountID
	Name           string
	IBAN           string
	BankName       string
	Type           AccountType
	Currency       string
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// =============================================================================
// TRANSACTION - Immutable money movement on one account
// =============================================================================

type TxType string

const (
	TxIncome   TxType = "income"
	TxExpense  TxType = "expense"
	TxTransfer TxType = "transfer"
	TxFee      TxType = "fee"
	TxInterest TxType = "interest"
	TxRefund   TxType = "refund"
)

func (t TxType) Valid() bool {
	switch t {
	case TxIncome, TxExpense, TxTransfer, TxFee, TxInterest, TxRefund:
		return true
	}
	return false
}

// Inflow reports whether the type credits the account.
func (t TxType) Inflow() bool {
	return t == TxIncome || t == TxRefund || t == TxInterest
}

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

// Links ties a transaction to the workflow record that produced it.
type Links struct {
	PaymentOrderID OrderID
	DebtID         DebtID
	CheckID        CheckID
	CreditCardID   CardID
	IncomeRecordID IncomeID
}

// Owner names the workflow record that produced a transaction, or "" for a
// manual entry.
func (l Links) Owner() string {
	switch {
	case l.PaymentOrderID != "":
		return "payment order"
	case l.DebtID != "":
		return "debt"
	case l.CheckID != "":
		return "check"
	case l.CreditCardID != "":
		return "credit card"
	case l.IncomeRecordID != "":
		return "income record"
	}
	return ""
}

type Transaction struct {
	ID              TransactionID
	AccountID       AccountID
	Type            TxType
	Status          TxStatus
	Amount          decimal.Decimal
	Fees            decimal.Decimal
	NetAmount       decimal.Decimal
	BalanceImpact   decimal.Decimal // signed, fixed at creation
	Currency        string
	PersonID        PersonID
	Links           Links
	Description     string
	ReferenceNumber string
	ReceiptRef      string
	Date            time.Time
	CreatedBy       string
	CreatedAt       time.Time
}

// =============================================================================
// PERSON - Counterparty with running totals
// =============================================================================

type PersonType string

const (
	PersonIndividual PersonType = "individual"
	PersonCompany    PersonType = "company"
)

type Person struct {
	ID                  PersonID
	Name                string
	IBAN                string
	TaxNumber           string
	Phone               string
	Email               string
	Company             string
	Address             string
	Notes               string
	Type                PersonType
	AutoCreated         bool
	CreationSource      string
	TotalSent           decimal.Decimal
	TotalReceived       decimal.Decimal
	TransactionCount    int
	LastTransactionDate *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// =============================================================================
// PAYMENT ORDER
// =============================================================================

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderCompleted OrderStatus = "completed"
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentOrder struct {
	ID                   OrderID
	RecipientName        string
	RecipientIBAN        string
	Amount               decimal.Decimal
	Currency             string
	Description          string
	Category             string
	DueDate              *time.Time
	Status               OrderStatus
	CreatedBy            string
	ApprovedBy           string
	ApprovedAt           *time.Time
	RejectionReason      string
	AccountID            AccountID
	ReceiptRef           string
	ActualAmount         decimal.NullDecimal
	ActualFees           decimal.NullDecimal
	NetDeducted          decimal.NullDecimal
	ExtractionConfidence float64
	ExtractionNote       string
	CompletedAt          *time.Time
	CompletedBy          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// =============================================================================
// DEBT
// =============================================================================

type DebtType string

const (
	DebtPayable    DebtType = "payable"
	DebtReceivable DebtType = "receivable"
)

type DebtStatus string

const (
	DebtActive    DebtStatus = "active"
	DebtPartial   DebtStatus = "partial"
	DebtPaid      DebtStatus = "paid"
	DebtOverdue   DebtStatus = "overdue"
	DebtCancelled DebtStatus = "cancelled"
)

// Debt holds the stored fields only. Remaining, days overdue and the
// effective status come from DeriveDebt.
type Debt struct {
	ID              DebtID
	CreditorName    string
	DebtorName      string
	Amount          decimal.Decimal
	PaidAmount      decimal.Decimal
	Currency        string
	Description     string
	Category        string
	Type            DebtType
	DueDate         time.Time
	InterestRate    decimal.Decimal
	PaymentTerms    string
	Notes           string
	PaymentCount    int
	LastPaymentDate *time.Time
	Status          DebtStatus // only DebtActive or DebtCancelled are stored
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type DebtPayment struct {
	ID            string
	DebtID        DebtID
	Amount        decimal.Decimal
	Date          time.Time
	Method        string
	AccountID     AccountID
	TransactionID TransactionID
	Description   string
	CreatedBy     string
	CreatedAt     time.Time
}

// =============================================================================
// CHECK
// =============================================================================

type CheckType string

const (
	CheckReceived CheckType = "received"
	CheckIssued   CheckType = "issued"
)

type CheckStatus string

const (
	CheckActive      CheckStatus = "active"
	CheckCashed      CheckStatus = "cashed"
	CheckEarlyCashed CheckStatus = "early_cashed"
	CheckReturned    CheckStatus = "returned"
	CheckCancelled   CheckStatus = "cancelled"
	CheckLost        CheckStatus = "lost"
)

type Check struct {
	ID                CheckID
	Amount            decimal.Decimal
	Currency          string
	Number            string
	BankName          string
	Branch            string
	AccountNumber     string
	DrawerName        string
	DrawerIDNumber    string
	PayeeName         string
	IssueDate         time.Time
	DueDate           time.Time
	Type              CheckType
	Status            CheckStatus
	EarlyDiscountRate decimal.Decimal
	CashDate          *time.Time
	CashAccountID     AccountID
	ReturnReason      string
	Description       string
	Notes             string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type CheckOpType string

const (
	CheckOpCash      CheckOpType = "cash"
	CheckOpEarlyCash CheckOpType = "early_cash"
	CheckOpReturn    CheckOpType = "return"
	CheckOpCancel    CheckOpType = "cancel"
	CheckOpLost      CheckOpType = "lost"
)

type CheckOperation struct {
	ID            string
	CheckID       CheckID
	Type          CheckOpType
	Date          time.Time
	Amount        decimal.Decimal
	AccountID     AccountID
	DiscountRate  decimal.Decimal
	Fees          decimal.Decimal
	Description   string
	TransactionID TransactionID
	CreatedBy     string
	CreatedAt     time.Time
}

// =============================================================================
// CREDIT CARD
// =============================================================================

type CreditCard struct {
	ID              CardID
	Name            string
	BankName        string
	Limit           decimal.Decimal
	UsedAmount      decimal.Decimal
	StatementDay    int
	DueDay          int
	FlexibleAccount bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CardTransaction struct {
	ID                string
	CardID            CardID
	Amount            decimal.Decimal
	Description       string
	Category          string
	Merchant          string
	Date              time.Time
	Installments      int
	InstallmentAmount decimal.Decimal
	CreatedBy         string
	CreatedAt         time.Time
}

type CardPaymentType string

const (
	CardPayMinimum CardPaymentType = "minimum"
	CardPayFull    CardPaymentType = "full"
	CardPayPartial CardPaymentType = "partial"
)

type CardPayment struct {
	ID            string
	CardID        CardID
	Amount        decimal.Decimal
	Date          time.Time
	Type          CardPaymentType
	AccountID     AccountID
	TransactionID TransactionID
	Description   string
	CreatedBy     string
	CreatedAt     time.Time
}

// =============================================================================
// INCOME RECORD
// =============================================================================

type IncomeStatus string

const (
	IncomePending  IncomeStatus = "pending"
	IncomeVerified IncomeStatus = "verified"
	IncomeRejected IncomeStatus = "rejected"
)

type IncomeRecord struct {
	ID              IncomeID
	CompanyName     string
	Amount          decimal.Decimal
	Currency        string
	AccountID       AccountID
	Description     string
	Date            time.Time
	ReceiptRef      string
	Status          IncomeStatus
	VerifiedBy      string
	VerifiedAt      *time.Time
	RejectionReason string
	TransactionID   TransactionID
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
