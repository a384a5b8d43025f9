/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	back-office data. Every record is created through the lifecycle
	service, so balances, counterparties and the audit log come out exactly
	as if an operator had entered them by hand.

AVAILABLE SCENARIOS:

	small-business:  Two accounts, manual transactions, orders in every state
	receivables:     Overdue and partial debts, cheques, pending income
	credit-cards:    A corporate card with instalment charges and a payment

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create accounts with opening balances
 3. Walk the workflow records through their transitions
 4. Dates are relative to the service clock, so derived fields
    (overdue days, days to due) always look plausible

USAGE:

	POST /api/scenarios/load   {"scenario_id": "receivables"}   (admin)
	ledgerctl seed receivables

NOTE:

	Scenarios reset the database. The HTTP endpoints are only mounted when
	ENABLE_DEMO_SCENARIOS is set.

SEE ALSO:
  - server.go: Mounts /api/scenarios when a Resetter is configured
  - cmd/ledgerctl/seed.go: CLI entry point
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Resetter clears every table before a scenario is loaded.
type Resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var Scenarios = []ScenarioDTO{
	{
		ID:          "small-business",
		Name:        "Small Business",
		Description: "Checking and savings accounts, manual transactions, payment orders in every state",
	},
	{
		ID:          "receivables",
		Name:        "Debts, Cheques & Income",
		Description: "Overdue payable, partially collected receivable, cheques, pending income records",
	},
	{
		ID:          "credit-cards",
		Name:        "Corporate Cards",
		Description: "Card with instalment charges, a partial payment from the bank account",
	},
}

var loaders = map[string]func(context.Context, *lifecycle.Service, ledger.Actor) error{
	"small-business": loadSmallBusinessScenario,
	"receivables":    loadReceivablesScenario,
	"credit-cards":   loadCreditCardsScenario,
}

// LoadScenario resets the store and loads the named scenario as actor,
// who must be an admin.
func LoadScenario(ctx context.Context, svc *lifecycle.Service, reset Resetter, actor ledger.Actor, id string) error {
	load, ok := loaders[id]
	if !ok {
		return ledger.Invalid("scenario_id", "unknown scenario %q", id)
	}
	if !actor.IsAdmin {
		return &ledger.PermissionError{ActorID: actor.ID, Action: "load demo scenarios"}
	}
	if err := reset.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}
	if err := load(ctx, svc, actor); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	return nil
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := LoadScenario(r.Context(), h.Service, h.Resetter, ActorFrom(r.Context()), req.ScenarioID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SMALL BUSINESS
// =============================================================================

func loadSmallBusinessScenario(ctx context.Context, svc *lifecycle.Service, admin ledger.Actor) error {
	today := ledger.DateOf(svc.Now())
	clerk := ledger.Actor{ID: "demo-clerk"}

	checking, err := svc.CreateAccount(ctx, admin, lifecycle.AccountInput{
		Name: "İş Bankası Ticari", IBAN: "TR330006100519786457841326", BankName: "İş Bankası",
		Type: ledger.AccountBusiness, InitialBalance: d("250000"),
	})
	if err != nil {
		return err
	}
	if _, err := svc.CreateAccount(ctx, admin, lifecycle.AccountInput{
		Name: "Garanti Vadeli", BankName: "Garanti BBVA",
		Type: ledger.AccountSavings, InitialBalance: d("100000"),
	}); err != nil {
		return err
	}

	manual := []lifecycle.TransactionInput{
		{Type: ledger.TxIncome, Amount: d("42500"), CounterpartyName: "Anadolu Lojistik A.Ş.", Description: "Invoice 2024-118", Date: today.AddDate(0, 0, -12)},
		{Type: ledger.TxExpense, Amount: d("18000"), CounterpartyName: "Kadıköy Emlak Ltd.", Description: "Office rent", Date: today.AddDate(0, 0, -10)},
		{Type: ledger.TxFee, Amount: d("35.50"), Description: "EFT fee", Date: today.AddDate(0, 0, -10)},
		{Type: ledger.TxInterest, Amount: d("812.40"), Description: "Overnight interest", Date: today.AddDate(0, 0, -1)},
	}
	for _, in := range manual {
		in.AccountID = checking.ID
		if _, err := svc.CreateTransaction(ctx, admin, in); err != nil {
			return err
		}
	}

	// One order in each state.
	completed, err := svc.CreateOrder(ctx, admin, lifecycle.OrderInput{
		RecipientName: "Mehmet Demir", RecipientIBAN: "TR120006200000000123456789",
		Amount: d("7500"), Description: "Freelance design work", Category: "services", AccountID: checking.ID,
	})
	if err != nil {
		return err
	}
	if _, err := svc.CompleteOrder(ctx, admin, completed.ID, lifecycle.CompleteInput{}); err != nil {
		return err
	}

	if _, err := svc.CreateOrder(ctx, admin, lifecycle.OrderInput{
		RecipientName: "Ege Kırtasiye", RecipientIBAN: "TR640001000000000987654321",
		Amount: d("1240.90"), Category: "supplies", AccountID: checking.ID,
	}); err != nil {
		return err
	}

	if _, err := svc.CreateOrder(ctx, clerk, lifecycle.OrderInput{
		RecipientName: "Ayşe Yılmaz", RecipientIBAN: "TR980006400000011223344556",
		Amount: d("3200"), Description: "Travel reimbursement", Category: "travel",
	}); err != nil {
		return err
	}

	rejected, err := svc.CreateOrder(ctx, clerk, lifecycle.OrderInput{
		RecipientName: "Unknown Vendor", RecipientIBAN: "TR000000000000000000000000",
		Amount: d("99999"),
	})
	if err != nil {
		return err
	}
	_, err = svc.RejectOrder(ctx, admin, rejected.ID, "no supporting invoice")
	return err
}

// =============================================================================
// DEBTS, CHEQUES, INCOME
// =============================================================================

func loadReceivablesScenario(ctx context.Context, svc *lifecycle.Service, admin ledger.Actor) error {
	today := ledger.DateOf(svc.Now())

	acc, err := svc.CreateAccount(ctx, admin, lifecycle.AccountInput{
		Name: "Ziraat Ticari", BankName: "Ziraat Bankası", Type: ledger.AccountChecking, InitialBalance: d("60000"),
	})
	if err != nil {
		return err
	}

	// Payable, due last week, partly paid: shows as overdue.
	supplier, err := svc.CreateDebt(ctx, admin, lifecycle.DebtInput{
		CreditorName: "Marmara Çelik San.", Amount: d("25000"), Type: ledger.DebtPayable,
		Category: "suppliers", DueDate: today.AddDate(0, 0, -7),
	})
	if err != nil {
		return err
	}
	if _, _, err := svc.PayDebt(ctx, admin, supplier.ID, lifecycle.DebtPaymentInput{
		Amount: d("10000"), AccountID: acc.ID, Method: "eft", Date: today.AddDate(0, 0, -3),
	}); err != nil {
		return err
	}

	// Receivable, due next month, one instalment collected.
	customer, err := svc.CreateDebt(ctx, admin, lifecycle.DebtInput{
		DebtorName: "Karadeniz Gıda Ltd.", Amount: d("18000"), Type: ledger.DebtReceivable,
		Category: "customers", DueDate: today.AddDate(0, 1, 0), PaymentTerms: "3 monthly instalments",
	})
	if err != nil {
		return err
	}
	if _, _, err := svc.PayDebt(ctx, admin, customer.ID, lifecycle.DebtPaymentInput{
		Amount: d("6000"), AccountID: acc.ID, Method: "transfer",
	}); err != nil {
		return err
	}

	// Received cheque eligible for early cash, and one already cashed.
	if _, err := svc.CreateCheck(ctx, admin, lifecycle.CheckInput{
		Amount: d("10000"), Number: "0041877", BankName: "Akbank", DrawerName: "Yıldız Tekstil Ltd.",
		DueDate: today.AddDate(0, 0, 30), Type: ledger.CheckReceived, EarlyDiscountRate: d("2"),
	}); err != nil {
		return err
	}
	cashed, err := svc.CreateCheck(ctx, admin, lifecycle.CheckInput{
		Amount: d("4500"), Number: "0039912", BankName: "Yapı Kredi", DrawerName: "Boğaziçi Mobilya",
		DueDate: today.AddDate(0, 0, -2), Type: ledger.CheckReceived,
	})
	if err != nil {
		return err
	}
	if _, _, err := svc.OperateCheck(ctx, admin, cashed.ID, lifecycle.CheckOperationInput{
		Type: ledger.CheckOpCash, AccountID: acc.ID, Fees: d("12.50"),
	}); err != nil {
		return err
	}
	if _, err := svc.CreateCheck(ctx, admin, lifecycle.CheckInput{
		Amount: d("7200"), Number: "A-000118", BankName: "Ziraat Bankası", PayeeName: "Marmara Çelik San.",
		DueDate: today.AddDate(0, 0, 14), Type: ledger.CheckIssued,
	}); err != nil {
		return err
	}

	// Income records: one waiting for review, one verified.
	if _, err := svc.CreateIncome(ctx, ledger.Actor{ID: "demo-sales"}, lifecycle.IncomeInput{
		CompanyName: "Beta Yazılım A.Ş.", Amount: d("12750"), AccountID: acc.ID, Description: "Consulting, March",
	}); err != nil {
		return err
	}
	_, err = svc.CreateIncome(ctx, admin, lifecycle.IncomeInput{
		CompanyName: "Gamma Danışmanlık", Amount: d("3300"), AccountID: acc.ID, Description: "Workshop",
	})
	return err
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func loadCreditCardsScenario(ctx context.Context, svc *lifecycle.Service, admin ledger.Actor) error {
	acc, err := svc.CreateAccount(ctx, admin, lifecycle.AccountInput{
		Name: "Garanti Ticari", BankName: "Garanti BBVA", Type: ledger.AccountBusiness, InitialBalance: d("40000"),
	})
	if err != nil {
		return err
	}
	card, err := svc.CreateCard(ctx, admin, lifecycle.CardInput{
		Name: "Bonus Business", BankName: "Garanti BBVA", Limit: d("50000"), StatementDay: 20, DueDay: 5,
	})
	if err != nil {
		return err
	}

	charges := []lifecycle.ChargeInput{
		{Amount: d("12999"), Merchant: "Teknosa", Category: "equipment", Installments: 6, Description: "Laptop"},
		{Amount: d("2450.75"), Merchant: "THY", Category: "travel", Description: "Flight IST-ADB"},
		{Amount: d("640"), Merchant: "Migros", Category: "office"},
	}
	for _, in := range charges {
		if _, _, err := svc.ChargeCard(ctx, admin, card.ID, in); err != nil {
			return err
		}
	}

	_, _, err = svc.PayCard(ctx, admin, card.ID, lifecycle.CardPaymentInput{
		Amount: d("5000"), Type: ledger.CardPayPartial, AccountID: acc.ID,
	})
	return err
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }
