/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are decimal.Decimal on both sides. Responses encode them as JSON
  strings ("1250.5"); requests accept either a string or a number.

DATES:
  Calendar dates are "YYYY-MM-DD". Timestamps are RFC3339. Request dates
  accept either form.

DERIVED FIELDS:
  Debt, check and credit card responses always carry their derived state
  (remaining, days overdue, early cash amount, available limit, ...)
  computed at read time.

VALIDATION:
  Validation is done in the lifecycle package, not in DTOs. DTOs are pure
  data carriers; the only checks here are date parsing.

SEE ALSO:
  - handlers.go: Uses these types
  - lifecycle/: The input structs these requests convert into
*/
package api

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

const dateLayout = "2006-01-02"

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	IBAN           string          `json:"iban,omitempty"`
	BankName       string          `json:"bank_name,omitempty"`
	Type           string          `json:"account_type"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type AccountRequest struct {
	Name           string          `json:"name"`
	IBAN           string          `json:"iban"`
	BankName       string          `json:"bank_name"`
	Type           string          `json:"account_type"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (r AccountRequest) input() lifecycle.AccountInput {
	return lifecycle.AccountInput{
		Name:           r.Name,
		IBAN:           r.IBAN,
		BankName:       r.BankName,
		Type:           ledger.AccountType(r.Type),
		Currency:       r.Currency,
		InitialBalance: r.InitialBalance,
	}
}

// AdjustBalanceRequest moves the balance by a signed delta.
type AdjustBalanceRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type DriftDTO struct {
	AccountID  string          `json:"account_id"`
	Stored     decimal.Decimal `json:"stored_balance"`
	Calculated decimal.Decimal `json:"calculated_balance"`
	Drift      decimal.Decimal `json:"drift"`
	Consistent bool            `json:"consistent"`
	Repaired   bool            `json:"repaired"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		IBAN:           a.IBAN,
		BankName:       a.BankName,
		Type:           string(a.Type),
		Currency:       a.Currency,
		InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func toDriftDTO(d ledger.Drift) DriftDTO {
	return DriftDTO{
		AccountID:  string(d.AccountID),
		Stored:     d.Stored,
		Calculated: d.Calculated,
		Drift:      d.Drift,
		Consistent: d.Consistent(),
		Repaired:   d.Repaired,
	}
}

// StatementDTO is an account's movement over one period.
type StatementDTO struct {
	AccountID string          `json:"account_id"`
	Currency  string          `json:"currency"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Opening   decimal.Decimal `json:"opening_balance"`
	Inflows   decimal.Decimal `json:"inflows"`
	Outflows  decimal.Decimal `json:"outflows"`
	Closing   decimal.Decimal `json:"closing_balance"`
	Net       decimal.Decimal `json:"net_change"`
	Count     int             `json:"transaction_count"`
	ByType    []TypeTotalDTO  `json:"by_type"`
}

type TypeTotalDTO struct {
	Type   string          `json:"type"`
	Impact decimal.Decimal `json:"balance_impact"`
	Count  int             `json:"count"`
}

func toStatementDTO(st ledger.Statement) StatementDTO {
	return StatementDTO{
		AccountID: string(st.AccountID),
		Currency:  st.Currency,
		From:      st.Period.Start.Format(dateLayout),
		To:        st.Period.End.Format(dateLayout),
		Opening:   st.Opening,
		Inflows:   st.Inflows,
		Outflows:  st.Outflows,
		Closing:   st.Closing,
		Net:       st.Net(),
		Count:     st.Count,
		ByType: mapSlice(st.ByType, func(t ledger.ImpactTotal) TypeTotalDTO {
			return TypeTotalDTO{Type: string(t.Type), Impact: t.Impact, Count: t.Count}
		}),
	}
}

// statementPeriod reads either an explicit from/to range or a named period
// (month by default) around date, which defaults to today.
func statementPeriod(q url.Values, today time.Time) (ledger.Period, error) {
	from, err := parseDatePtr("from", q.Get("from"))
	if err != nil {
		return ledger.Period{}, err
	}
	to, err := parseDatePtr("to", q.Get("to"))
	if err != nil {
		return ledger.Period{}, err
	}
	if from != nil || to != nil {
		if from == nil || to == nil {
			return ledger.Period{}, ledger.Invalid("from", "from and to go together")
		}
		return ledger.NewPeriod(*from, *to)
	}

	pc := ledger.PeriodConfig{Type: ledger.PeriodMonth}
	if s := q.Get("period"); s != "" {
		if pc.Type, err = ledger.ParsePeriodType(s); err != nil {
			return ledger.Period{}, err
		}
	}
	if s := q.Get("fiscal_start"); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return ledger.Period{}, ledger.Invalid("fiscal_start", "must be a month between 1 and 12")
		}
		pc.FiscalYearStartMonth = time.Month(m)
	}
	date, err := parseDatePtr("date", q.Get("date"))
	if err != nil {
		return ledger.Period{}, err
	}
	if date == nil {
		date = &today
	}
	return pc.PeriodFor(*date), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	Type            string          `json:"transaction_type"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Fees            decimal.Decimal `json:"fees"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	BalanceImpact   decimal.Decimal `json:"balance_impact"`
	Currency        string          `json:"currency"`
	PersonID        string          `json:"person_id,omitempty"`
	PaymentOrderID  string          `json:"payment_order_id,omitempty"`
	DebtID          string          `json:"debt_id,omitempty"`
	CheckID         string          `json:"check_id,omitempty"`
	CreditCardID    string          `json:"credit_card_id,omitempty"`
	IncomeRecordID  string          `json:"income_record_id,omitempty"`
	Description     string          `json:"description,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	ReceiptRef      string          `json:"receipt_ref,omitempty"`
	Date            string          `json:"transaction_date"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       string          `json:"created_at"`
}

type TransactionRequest struct {
	Type             string          `json:"transaction_type"`
	Amount           decimal.Decimal `json:"amount"`
	Fees             decimal.Decimal `json:"fees"`
	AccountID        string          `json:"account_id"`
	PersonID         string          `json:"person_id"`
	CounterpartyName string          `json:"counterparty_name"`
	CounterpartyIBAN string          `json:"counterparty_iban"`
	TaxNumber        string          `json:"tax_number"`
	Description      string          `json:"description"`
	ReferenceNumber  string          `json:"reference_number"`
	ReceiptRef       string          `json:"receipt_ref"`
	Date             string          `json:"transaction_date"`
}

func (r TransactionRequest) input() (lifecycle.TransactionInput, error) {
	date, err := parseDate("transaction_date", r.Date)
	if err != nil {
		return lifecycle.TransactionInput{}, err
	}
	return lifecycle.TransactionInput{
		Type:             ledger.TxType(r.Type),
		Amount:           r.Amount,
		Fees:             r.Fees,
		AccountID:        ledger.AccountID(r.AccountID),
		PersonID:         ledger.PersonID(r.PersonID),
		CounterpartyName: r.CounterpartyName,
		CounterpartyIBAN: r.CounterpartyIBAN,
		TaxNumber:        r.TaxNumber,
		Description:      r.Description,
		Reference:        r.ReferenceNumber,
		ReceiptRef:       r.ReceiptRef,
		Date:             date,
	}, nil
}

// TransactionPageDTO is one page of a transaction listing.
type TransactionPageDTO struct {
	Items []TransactionDTO `json:"items"`
	Total int              `json:"total"`
	Limit int              `json:"limit"`
	Skip  int              `json:"skip"`
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:              string(t.ID),
		AccountID:       string(t.AccountID),
		Type:            string(t.Type),
		Status:          string(t.Status),
		Amount:          t.Amount,
		Fees:            t.Fees,
		NetAmount:       t.NetAmount,
		BalanceImpact:   t.BalanceImpact,
		Currency:        t.Currency,
		PersonID:        string(t.PersonID),
		PaymentOrderID:  string(t.Links.PaymentOrderID),
		DebtID:          string(t.Links.DebtID),
		CheckID:         string(t.Links.CheckID),
		CreditCardID:    string(t.Links.CreditCardID),
		IncomeRecordID:  string(t.Links.IncomeRecordID),
		Description:     t.Description,
		ReferenceNumber: t.ReferenceNumber,
		ReceiptRef:      t.ReceiptRef,
		Date:            formatDate(t.Date),
		CreatedBy:       t.CreatedBy,
		CreatedAt:       formatTime(t.CreatedAt),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// =============================================================================
// PEOPLE
// =============================================================================

type PersonDTO struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	IBAN                string          `json:"iban,omitempty"`
	TaxNumber           string          `json:"tax_number,omitempty"`
	Phone               string          `json:"phone,omitempty"`
	Email               string          `json:"email,omitempty"`
	Company             string          `json:"company,omitempty"`
	Address             string          `json:"address,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	Type                string          `json:"person_type"`
	AutoCreated         bool            `json:"auto_created"`
	CreationSource      string          `json:"creation_source,omitempty"`
	TotalSent           decimal.Decimal `json:"total_sent"`
	TotalReceived       decimal.Decimal `json:"total_received"`
	TransactionCount    int             `json:"transaction_count"`
	LastTransactionDate *string         `json:"last_transaction_date,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

type PersonRequest struct {
	Name      string `json:"name"`
	IBAN      string `json:"iban"`
	TaxNumber string `json:"tax_number"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	Type      string `json:"person_type"`
}

func (r PersonRequest) input() lifecycle.PersonInput {
	return lifecycle.PersonInput{
		Name:      r.Name,
		IBAN:      r.IBAN,
		TaxNumber: r.TaxNumber,
		Phone:     r.Phone,
		Email:     r.Email,
		Company:   r.Company,
		Address:   r.Address,
		Notes:     r.Notes,
		Type:      ledger.PersonType(r.Type),
	}
}

func toPersonDTO(p ledger.Person) PersonDTO {
	return PersonDTO{
		ID:                  string(p.ID),
		Name:                p.Name,
		IBAN:                p.IBAN,
		TaxNumber:           p.TaxNumber,
		Phone:               p.Phone,
		Email:               p.Email,
		Company:             p.Company,
		Address:             p.Address,
		Notes:               p.Notes,
		Type:                string(p.Type),
		AutoCreated:         p.AutoCreated,
		CreationSource:      p.CreationSource,
		TotalSent:           p.TotalSent,
		TotalReceived:       p.TotalReceived,
		TransactionCount:    p.TransactionCount,
		LastTransactionDate: formatDatePtr(p.LastTransactionDate),
		CreatedAt:           formatTime(p.CreatedAt),
	}
}

// =============================================================================
// PAYMENT ORDERS
// =============================================================================

type PaymentOrderDTO struct {
	ID                   string           `json:"id"`
	RecipientName        string           `json:"recipient_name"`
	RecipientIBAN        string           `json:"recipient_iban"`
	Amount               decimal.Decimal  `json:"amount"`
	Currency             string           `json:"currency"`
	Description          string           `json:"description,omitempty"`
	Category             string           `json:"category,omitempty"`
	DueDate              *string          `json:"due_date,omitempty"`
	Status               string           `json:"status"`
	CreatedBy            string           `json:"created_by"`
	ApprovedBy           string           `json:"approved_by,omitempty"`
	ApprovedAt           *string          `json:"approved_at,omitempty"`
	RejectionReason      string           `json:"rejection_reason,omitempty"`
	AccountID            string           `json:"account_id,omitempty"`
	ReceiptRef           string           `json:"receipt_ref,omitempty"`
	ActualAmount         *decimal.Decimal `json:"actual_amount,omitempty"`
	ActualFees           *decimal.Decimal `json:"actual_fees,omitempty"`
	NetDeducted          *decimal.Decimal `json:"net_deducted,omitempty"`
	ExtractionConfidence float64          `json:"extraction_confidence,omitempty"`
	ExtractionNote       string           `json:"extraction_note,omitempty"`
	CompletedAt          *string          `json:"completed_at,omitempty"`
	CompletedBy          string           `json:"completed_by,omitempty"`
	CreatedAt            string           `json:"created_at"`
}

type PaymentOrderRequest struct {
	RecipientName string          `json:"recipient_name"`
	RecipientIBAN string          `json:"recipient_iban"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	DueDate       string          `json:"due_date"`
	AccountID     string          `json:"account_id"`
	ReceiptRef    string          `json:"receipt_ref"`
}

func (r PaymentOrderRequest) input() (lifecycle.OrderInput, error) {
	due, err := parseDatePtr("due_date", r.DueDate)
	if err != nil {
		return lifecycle.OrderInput{}, err
	}
	return lifecycle.OrderInput{
		RecipientName: r.RecipientName,
		RecipientIBAN: r.RecipientIBAN,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Description:   r.Description,
		Category:      r.Category,
		DueDate:       due,
		AccountID:     ledger.AccountID(r.AccountID),
		ReceiptRef:    r.ReceiptRef,
	}, nil
}

type CompleteOrderRequest struct {
	AccountID  string `json:"account_id"`
	ReceiptRef string `json:"receipt_ref"`
}

// ReasonRequest carries the reason for a rejection.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func toPaymentOrderDTO(o ledger.PaymentOrder) PaymentOrderDTO {
	return PaymentOrderDTO{
		ID:                   string(o.ID),
		RecipientName:        o.RecipientName,
		RecipientIBAN:        o.RecipientIBAN,
		Amount:               o.Amount,
		Currency:             o.Currency,
		Description:          o.Description,
		Category:             o.Category,
		DueDate:              formatDatePtr(o.DueDate),
		Status:               string(o.Status),
		CreatedBy:            o.CreatedBy,
		ApprovedBy:           o.ApprovedBy,
		ApprovedAt:           formatTimePtr(o.ApprovedAt),
		RejectionReason:      o.RejectionReason,
		AccountID:            string(o.AccountID),
		ReceiptRef:           o.ReceiptRef,
		ActualAmount:         nullDecimal(o.ActualAmount),
		ActualFees:           nullDecimal(o.ActualFees),
		NetDeducted:          nullDecimal(o.NetDeducted),
		ExtractionConfidence: o.ExtractionConfidence,
		ExtractionNote:       o.ExtractionNote,
		CompletedAt:          formatTimePtr(o.CompletedAt),
		CompletedBy:          o.CompletedBy,
		CreatedAt:            formatTime(o.CreatedAt),
	}
}

// =============================================================================
// DEBTS
// =============================================================================

type DebtDTO struct {
	ID              string          `json:"id"`
	CreditorName    string          `json:"creditor_name,omitempty"`
	DebtorName      string          `json:"debtor_name,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Category        string          `json:"category,omitempty"`
	Type            string          `json:"debt_type"`
	DueDate         string          `json:"due_date"`
	DaysOverdue     int             `json:"days_overdue"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	PaymentTerms    string          `json:"payment_terms,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PaymentCount    int             `json:"payment_count"`
	LastPaymentDate *string         `json:"last_payment_date,omitempty"`
	Status          string          `json:"status"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       string          `json:"created_at"`
}

type DebtRequest struct {
	CreditorName string          `json:"creditor_name"`
	DebtorName   string          `json:"debtor_name"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Type         string          `json:"debt_type"`
	DueDate      string          `json:"due_date"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	PaymentTerms string          `json:"payment_terms"`
	Notes        string          `json:"notes"`
}

func (r DebtRequest) input() (lifecycle.DebtInput, error) {
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return lifecycle.DebtInput{}, err
	}
	return lifecycle.DebtInput{
		CreditorName: r.CreditorName,
		DebtorName:   r.DebtorName,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Description:  r.Description,
		Category:     r.Category,
		Type:         ledger.DebtType(r.Type),
		DueDate:      due,
		InterestRate: r.InterestRate,
		PaymentTerms: r.PaymentTerms,
		Notes:        r.Notes,
	}, nil
}

type DebtPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"payment_date"`
	Method      string          `json:"payment_method"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
}

func (r DebtPaymentRequest) input() (lifecycle.DebtPaymentInput, error) {
	date, err := parseDate("payment_date", r.Date)
	if err != nil {
		return lifecycle.DebtPaymentInput{}, err
	}
	return lifecycle.DebtPaymentInput{
		Amount:      r.Amount,
		Date:        date,
		Method:      r.Method,
		AccountID:   ledger.AccountID(r.AccountID),
		Description: r.Description,
	}, nil
}

type DebtPaymentDTO struct {
	ID            string          `json:"id"`
	DebtID        string          `json:"debt_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"payment_date"`
	Method        string          `json:"payment_method,omitempty"`
	AccountID     string          `json:"account_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedBy     string          `json:"created_by"`
}

// DebtPaymentResponse is returned by POST /debts/{id}/pay.
type DebtPaymentResponse struct {
	Debt    DebtDTO        `json:"debt"`
	Payment DebtPaymentDTO `json:"payment"`
}

func toDebtDTO(v lifecycle.DebtView) DebtDTO {
	d := v.Debt
	return DebtDTO{
		ID:              string(d.ID),
		CreditorName:    d.CreditorName,
		DebtorName:      d.DebtorName,
		Amount:          d.Amount,
		PaidAmount:      d.PaidAmount,
		RemainingAmount: v.Remaining,
		Currency:        d.Currency,
		Description:     d.Description,
		Category:        d.Category,
		Type:            string(d.Type),
		DueDate:         formatDate(d.DueDate),
		DaysOverdue:     v.DaysOverdue,
		InterestRate:    d.InterestRate,
		PaymentTerms:    d.PaymentTerms,
		Notes:           d.Notes,
		PaymentCount:    d.PaymentCount,
		LastPaymentDate: formatDatePtr(d.LastPaymentDate),
		Status:          string(v.DebtState.Status),
		CreatedBy:       d.CreatedBy,
		CreatedAt:       formatTime(d.CreatedAt),
	}
}

func toDebtPaymentDTO(p ledger.DebtPayment) DebtPaymentDTO {
	return DebtPaymentDTO{
		ID:            p.ID,
		DebtID:        string(p.DebtID),
		Amount:        p.Amount,
		Date:          formatDate(p.Date),
		Method:        p.Method,
		AccountID:     string(p.AccountID),
		TransactionID: string(p.TransactionID),
		Description:   p.Description,
		CreatedBy:     p.CreatedBy,
	}
}

// =============================================================================
// CHECKS
// =============================================================================

type CheckDTO struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Number            string          `json:"check_number"`
	BankName          string          `json:"bank_name,omitempty"`
	Branch            string          `json:"branch,omitempty"`
	AccountNumber     string          `json:"account_number,omitempty"`
	DrawerName        string          `json:"drawer_name,omitempty"`
	DrawerIDNumber    string          `json:"drawer_id_number,omitempty"`
	PayeeName         string          `json:"payee_name,omitempty"`
	IssueDate         string          `json:"issue_date"`
	DueDate           string          `json:"due_date"`
	DaysToDue         int             `json:"days_to_due"`
	IsOverdue         bool            `json:"is_overdue"`
	Type              string          `json:"check_type"`
	Status            string          `json:"status"`
	EarlyDiscountRate decimal.Decimal `json:"early_discount_rate"`
	EarlyCashAmount   decimal.Decimal `json:"early_cash_amount"`
	CashDate          *string         `json:"cash_date,omitempty"`
	CashAccountID     string          `json:"cash_account_id,omitempty"`
	ReturnReason      string          `json:"return_reason,omitempty"`
	Description       string          `json:"description,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by"`
	CreatedAt         string          `json:"created_at"`
}

type CheckRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Number            string          `json:"check_number"`
	BankName          string          `json:"bank_name"`
	Branch            string          `json:"branch"`
	AccountNumber     string          `json:"account_number"`
	DrawerName        string          `json:"drawer_name"`
	DrawerIDNumber    string          `json:"drawer_id_number"`
	PayeeName         string          `json:"payee_name"`
	IssueDate         string          `json:"issue_date"`
	DueDate           string          `json:"due_date"`
	Type              string          `json:"check_type"`
	EarlyDiscountRate decimal.Decimal `json:"early_discount_rate"`
	Description       string          `json:"description"`
	Notes             string          `json:"notes"`
}

func (r CheckRequest) input() (lifecycle.CheckInput, error) {
	issue, err := parseDate("issue_date", r.IssueDate)
	if err != nil {
		return lifecycle.CheckInput{}, err
	}
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return lifecycle.CheckInput{}, err
	}
	return lifecycle.CheckInput{
		Amount:            r.Amount,
		Currency:          r.Currency,
		Number:            r.Number,
		BankName:          r.BankName,
		Branch:            r.Branch,
		AccountNumber:     r.AccountNumber,
		DrawerName:        r.DrawerName,
		DrawerIDNumber:    r.DrawerIDNumber,
		PayeeName:         r.PayeeName,
		IssueDate:         issue,
		DueDate:           due,
		Type:              ledger.CheckType(r.Type),
		EarlyDiscountRate: r.EarlyDiscountRate,
		Description:       r.Description,
		Notes:             r.Notes,
	}, nil
}

type CheckOperationRequest struct {
	Type         string          `json:"operation_type"`
	Date         string          `json:"operation_date"`
	Amount       decimal.Decimal `json:"amount"`
	AccountID    string          `json:"account_id"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Fees         decimal.Decimal `json:"fees"`
	Description  string          `json:"description"`
	Reason       string          `json:"reason"`
}

func (r CheckOperationRequest) input() (lifecycle.CheckOperationInput, error) {
	date, err := parseDate("operation_date", r.Date)
	if err != nil {
		return lifecycle.CheckOperationInput{}, err
	}
	return lifecycle.CheckOperationInput{
		Type:         ledger.CheckOpType(r.Type),
		Date:         date,
		Amount:       r.Amount,
		AccountID:    ledger.AccountID(r.AccountID),
		DiscountRate: r.DiscountRate,
		Fees:         r.Fees,
		Description:  r.Description,
		Reason:       r.Reason,
	}, nil
}

type CheckOperationDTO struct {
	ID            string          `json:"id"`
	CheckID       string          `json:"check_id"`
	Type          string          `json:"operation_type"`
	Date          string          `json:"operation_date"`
	Amount        decimal.Decimal `json:"amount"`
	AccountID     string          `json:"account_id,omitempty"`
	DiscountRate  decimal.Decimal `json:"discount_rate"`
	Fees          decimal.Decimal `json:"fees"`
	Description   string          `json:"description,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CreatedBy     string          `json:"created_by"`
}

// CheckOperationResponse is returned by POST /checks/{id}/operations.
type CheckOperationResponse struct {
	Check     CheckDTO          `json:"check"`
	Operation CheckOperationDTO `json:"operation"`
}

func toCheckDTO(v lifecycle.CheckView) CheckDTO {
	c := v.Check
	return CheckDTO{
		ID:                string(c.ID),
		Amount:            c.Amount,
		Currency:          c.Currency,
		Number:            c.Number,
		BankName:          c.BankName,
		Branch:            c.Branch,
		AccountNumber:     c.AccountNumber,
		DrawerName:        c.DrawerName,
		DrawerIDNumber:    c.DrawerIDNumber,
		PayeeName:         c.PayeeName,
		IssueDate:         formatDate(c.IssueDate),
		DueDate:           formatDate(c.DueDate),
		DaysToDue:         v.DaysToDue,
		IsOverdue:         v.IsOverdue,
		Type:              string(c.Type),
		Status:            string(c.Status),
		EarlyDiscountRate: c.EarlyDiscountRate,
		EarlyCashAmount:   v.EarlyCashAmount,
		CashDate:          formatDatePtr(c.CashDate),
		CashAccountID:     string(c.CashAccountID),
		ReturnReason:      c.ReturnReason,
		Description:       c.Description,
		Notes:             c.Notes,
		CreatedBy:         c.CreatedBy,
		CreatedAt:         formatTime(c.CreatedAt),
	}
}

func toCheckOperationDTO(op ledger.CheckOperation) CheckOperationDTO {
	return CheckOperationDTO{
		ID:            op.ID,
		CheckID:       string(op.CheckID),
		Type:          string(op.Type),
		Date:          formatDate(op.Date),
		Amount:        op.Amount,
		AccountID:     string(op.AccountID),
		DiscountRate:  op.DiscountRate,
		Fees:          op.Fees,
		Description:   op.Description,
		TransactionID: string(op.TransactionID),
		CreatedBy:     op.CreatedBy,
	}
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

type CreditCardDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	BankName        string          `json:"bank_name,omitempty"`
	Limit           decimal.Decimal `json:"limit"`
	UsedAmount      decimal.Decimal `json:"used_amount"`
	AvailableLimit  decimal.Decimal `json:"available_limit"`
	UsagePercentage decimal.Decimal `json:"usage_percentage"`
	StatementDay    int             `json:"statement_day"`
	DueDay          int             `json:"due_day"`
	DaysToStatement int             `json:"days_to_statement"`
	DaysToDue       int             `json:"days_to_due"`
	FlexibleAccount bool            `json:"flexible_account"`
	CreatedAt       string          `json:"created_at"`
}

type CreditCardRequest struct {
	Name            string          `json:"name"`
	BankName        string          `json:"bank_name"`
	Limit           decimal.Decimal `json:"limit"`
	StatementDay    int             `json:"statement_day"`
	DueDay          int             `json:"due_day"`
	FlexibleAccount bool            `json:"flexible_account"`
}

func (r CreditCardRequest) input() lifecycle.CardInput {
	return lifecycle.CardInput{
		Name:            r.Name,
		BankName:        r.BankName,
		Limit:           r.Limit,
		StatementDay:    r.StatementDay,
		DueDay:          r.DueDay,
		FlexibleAccount: r.FlexibleAccount,
	}
}

type CardChargeRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Merchant     string          `json:"merchant"`
	Date         string          `json:"transaction_date"`
	Installments int             `json:"installments"`
}

func (r CardChargeRequest) input() (lifecycle.ChargeInput, error) {
	date, err := parseDate("transaction_date", r.Date)
	if err != nil {
		return lifecycle.ChargeInput{}, err
	}
	return lifecycle.ChargeInput{
		Amount:       r.Amount,
		Description:  r.Description,
		Category:     r.Category,
		Merchant:     r.Merchant,
		Date:         date,
		Installments: r.Installments,
	}, nil
}

type CardPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"payment_date"`
	Type        string          `json:"payment_type"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
}

func (r CardPaymentRequest) input() (lifecycle.CardPaymentInput, error) {
	date, err := parseDate("payment_date", r.Date)
	if err != nil {
		return lifecycle.CardPaymentInput{}, err
	}
	return lifecycle.CardPaymentInput{
		Amount:      r.Amount,
		Date:        date,
		Type:        ledger.CardPaymentType(r.Type),
		AccountID:   ledger.AccountID(r.AccountID),
		Description: r.Description,
	}, nil
}

type CardTransactionDTO struct {
	ID                string          `json:"id"`
	CardID            string          `json:"card_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Merchant          string          `json:"merchant,omitempty"`
	Date              string          `json:"transaction_date"`
	Installments      int             `json:"installments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	CreatedBy         string          `json:"created_by"`
}

type CardPaymentDTO struct {
	ID            string          `json:"id"`
	CardID        string          `json:"card_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"payment_date"`
	Type          string          `json:"payment_type"`
	AccountID     string          `json:"account_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedBy     string          `json:"created_by"`
}

// CardChargeResponse is returned by POST /credit-cards/{id}/charge.
type CardChargeResponse struct {
	Card        CreditCardDTO      `json:"card"`
	Transaction CardTransactionDTO `json:"transaction"`
}

// CardPaymentResponse is returned by POST /credit-cards/{id}/pay.
type CardPaymentResponse struct {
	Card    CreditCardDTO  `json:"card"`
	Payment CardPaymentDTO `json:"payment"`
}

func toCreditCardDTO(v lifecycle.CardView) CreditCardDTO {
	c := v.CreditCard
	return CreditCardDTO{
		ID:              string(c.ID),
		Name:            c.Name,
		BankName:        c.BankName,
		Limit:           c.Limit,
		UsedAmount:      c.UsedAmount,
		AvailableLimit:  v.AvailableLimit,
		UsagePercentage: v.UsagePercentage,
		StatementDay:    c.StatementDay,
		DueDay:          c.DueDay,
		DaysToStatement: v.DaysToStatement,
		DaysToDue:       v.CardState.DaysToDue,
		FlexibleAccount: c.FlexibleAccount,
		CreatedAt:       formatTime(c.CreatedAt),
	}
}

func toCardTransactionDTO(t ledger.CardTransaction) CardTransactionDTO {
	return CardTransactionDTO{
		ID:                t.ID,
		CardID:            string(t.CardID),
		Amount:            t.Amount,
		Description:       t.Description,
		Category:          t.Category,
		Merchant:          t.Merchant,
		Date:              formatDate(t.Date),
		Installments:      t.Installments,
		InstallmentAmount: t.InstallmentAmount,
		CreatedBy:         t.CreatedBy,
	}
}

func toCardPaymentDTO(p ledger.CardPayment) CardPaymentDTO {
	return CardPaymentDTO{
		ID:            p.ID,
		CardID:        string(p.CardID),
		Amount:        p.Amount,
		Date:          formatDate(p.Date),
		Type:          string(p.Type),
		AccountID:     string(p.AccountID),
		TransactionID: string(p.TransactionID),
		Description:   p.Description,
		CreatedBy:     p.CreatedBy,
	}
}

// =============================================================================
// INCOME RECORDS
// =============================================================================

type IncomeRecordDTO struct {
	ID              string          `json:"id"`
	CompanyName     string          `json:"company_name"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	AccountID       string          `json:"account_id"`
	Description     string          `json:"description,omitempty"`
	Date            string          `json:"income_date"`
	ReceiptRef      string          `json:"receipt_ref,omitempty"`
	Status          string          `json:"status"`
	VerifiedBy      string          `json:"verified_by,omitempty"`
	VerifiedAt      *string         `json:"verified_at,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       string          `json:"created_at"`
}

type IncomeRecordRequest struct {
	CompanyName string          `json:"company_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
	Date        string          `json:"income_date"`
	ReceiptRef  string          `json:"receipt_ref"`
}

func (r IncomeRecordRequest) input() (lifecycle.IncomeInput, error) {
	date, err := parseDate("income_date", r.Date)
	if err != nil {
		return lifecycle.IncomeInput{}, err
	}
	return lifecycle.IncomeInput{
		CompanyName: r.CompanyName,
		Amount:      r.Amount,
		Currency:    r.Currency,
		AccountID:   ledger.AccountID(r.AccountID),
		Description: r.Description,
		Date:        date,
		ReceiptRef:  r.ReceiptRef,
	}, nil
}

func toIncomeRecordDTO(r ledger.IncomeRecord) IncomeRecordDTO {
	return IncomeRecordDTO{
		ID:              string(r.ID),
		CompanyName:     r.CompanyName,
		Amount:          r.Amount,
		Currency:        r.Currency,
		AccountID:       string(r.AccountID),
		Description:     r.Description,
		Date:            formatDate(r.Date),
		ReceiptRef:      r.ReceiptRef,
		Status:          string(r.Status),
		VerifiedBy:      r.VerifiedBy,
		VerifiedAt:      formatTimePtr(r.VerifiedAt),
		RejectionReason: r.RejectionReason,
		TransactionID:   string(r.TransactionID),
		CreatedBy:       r.CreatedBy,
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toAuditEntryDTO(e ledger.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  formatTime(e.Timestamp),
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    e.Payload,
	}
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

// mapSlice converts a slice of records into DTOs. It never returns nil so
// empty listings encode as [].
func mapSlice[T, D any](items []T, f func(T) D) []D {
	out := make([]D, len(items))
	for i, it := range items {
		out[i] = f(it)
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func nullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

// parseDate accepts "YYYY-MM-DD" or RFC3339. An empty string is the zero
// time, which the lifecycle layer replaces with today.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ledger.Invalid(field, "invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

func parseDatePtr(field, s string) (*time.Time, error) {
	t, err := parseDate(field, s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
