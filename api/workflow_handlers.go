/*
workflow_handlers.go - HTTP handlers for the workflow records

PURPOSE:
  Payment orders, debts, checks, credit cards and income records. Each
  resource has CRUD plus its state-changing actions as POST sub-routes.

ENDPOINTS:
  Payment orders:
    GET/POST /api/payment-orders, GET/PUT/DELETE /api/payment-orders/{id}
    POST   /api/payment-orders/{id}/approve
    POST   /api/payment-orders/{id}/reject      {"reason"}
    POST   /api/payment-orders/{id}/cancel
    POST   /api/payment-orders/{id}/complete    {"account_id","receipt_ref"}

  Debts:
    GET/POST /api/debts, GET/PUT/DELETE /api/debts/{id}
    POST   /api/debts/{id}/pay
    POST   /api/debts/{id}/cancel
    GET    /api/debts/{id}/payments

  Checks:
    GET/POST /api/checks, GET/PUT/DELETE /api/checks/{id}
    POST   /api/checks/{id}/operations
    GET    /api/checks/{id}/operations

  Credit cards:
    GET/POST /api/credit-cards, GET/PUT/DELETE /api/credit-cards/{id}
    POST   /api/credit-cards/{id}/charge
    POST   /api/credit-cards/{id}/pay
    GET    /api/credit-cards/{id}/transactions
    GET    /api/credit-cards/{id}/payments

  Income records:
    GET/POST /api/income-records, GET/DELETE /api/income-records/{id}
    POST   /api/income-records/{id}/verify
    POST   /api/income-records/{id}/reject      {"reason"}

VISIBILITY:
  Non-admin callers only ever see their own payment orders and income
  records; the lifecycle layer reports anyone else's as not found.

SEE ALSO:
  - handlers.go: Helpers, error mapping, accounts and transactions
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// =============================================================================
// PAYMENT ORDERS
// =============================================================================

// ListPaymentOrders returns orders, optionally filtered by ?status=.
func (h *Handler) ListPaymentOrders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	orders, err := h.Service.ListOrders(r.Context(), ActorFrom(r.Context()), ledger.OrderFilter{
		Status:    ledger.OrderStatus(q.Get("status")),
		CreatedBy: q.Get("created_by"),
		Page:      page,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(orders, toPaymentOrderDTO))
}

func (h *Handler) GetPaymentOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.GetOrder(r.Context(), ActorFrom(r.Context()), orderID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentOrderDTO(*o))
}

// CreatePaymentOrder files an order. Orders created by an admin start
// approved; everyone else's start pending.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req PaymentOrderRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Service.CreateOrder(r.Context(), ActorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentOrderDTO(*o))
}

func (h *Handler) UpdatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req PaymentOrderRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Service.UpdateOrder(r.Context(), ActorFrom(r.Context()), orderID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentOrderDTO(*o))
}

func (h *Handler) DeletePaymentOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteOrder(r.Context(), ActorFrom(r.Context()), orderID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ApprovePaymentOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.ApproveOrder(r.Context(), ActorFrom(r.Context()), orderID(r))
	h.respondOrder(w, r, o, err)
}

func (h *Handler) RejectPaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.Service.RejectOrder(r.Context(), ActorFrom(r.Context()), orderID(r), req.Reason)
	h.respondOrder(w, r, o, err)
}

func (h *Handler) CancelPaymentOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.CancelOrder(r.Context(), ActorFrom(r.Context()), orderID(r))
	h.respondOrder(w, r, o, err)
}

// CompletePaymentOrder deducts the order from an account. The body is
// optional; without an account_id the order's own account is used.
func (h *Handler) CompletePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req CompleteOrderRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	o, err := h.Service.CompleteOrder(r.Context(), ActorFrom(r.Context()), orderID(r), lifecycle.CompleteInput{
		AccountID:  ledger.AccountID(req.AccountID),
		ReceiptRef: req.ReceiptRef,
	})
	h.respondOrder(w, r, o, err)
}

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, o *ledger.PaymentOrder, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentOrderDTO(*o))
}

func orderID(r *http.Request) ledger.OrderID { return ledger.OrderID(chi.URLParam(r, "id")) }

// =============================================================================
// DEBTS
// =============================================================================

// ListDebts filters by ?debt_type=, ?category= and the derived ?status=
// (active, partial, paid, overdue, cancelled).
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	debts, err := h.Service.ListDebts(r.Context(), lifecycle.DebtListFilter{
		DebtFilter: ledger.DebtFilter{
			Type:     ledger.DebtType(q.Get("debt_type")),
			Category: q.Get("category"),
			Page:     page,
		},
		Status: ledger.DebtStatus(q.Get("status")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(debts, toDebtDTO))
}

func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDebt(r.Context(), debtID(r))
	h.respondDebt(w, r, http.StatusOK, d, err)
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.Service.CreateDebt(r.Context(), ActorFrom(r.Context()), in)
	h.respondDebt(w, r, http.StatusCreated, d, err)
}

func (h *Handler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.Service.UpdateDebt(r.Context(), ActorFrom(r.Context()), debtID(r), in)
	h.respondDebt(w, r, http.StatusOK, d, err)
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDebt(r.Context(), ActorFrom(r.Context()), debtID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PayDebt records a (partial) payment against a debt.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, p, err := h.Service.PayDebt(r.Context(), ActorFrom(r.Context()), debtID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DebtPaymentResponse{Debt: toDebtDTO(*d), Payment: toDebtPaymentDTO(*p)})
}

func (h *Handler) CancelDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.CancelDebt(r.Context(), ActorFrom(r.Context()), debtID(r))
	h.respondDebt(w, r, http.StatusOK, d, err)
}

func (h *Handler) ListDebtPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListDebtPayments(r.Context(), debtID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(payments, toDebtPaymentDTO))
}

func (h *Handler) respondDebt(w http.ResponseWriter, r *http.Request, status int, d *lifecycle.DebtView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, toDebtDTO(*d))
}

func debtID(r *http.Request) ledger.DebtID { return ledger.DebtID(chi.URLParam(r, "id")) }

// =============================================================================
// CHECKS
// =============================================================================

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	checks, err := h.Service.ListChecks(r.Context(), ledger.CheckFilter{
		Type:   ledger.CheckType(q.Get("check_type")),
		Status: ledger.CheckStatus(q.Get("status")),
		Page:   page,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(checks, toCheckDTO))
}

func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCheck(r.Context(), checkID(r))
	h.respondCheck(w, r, http.StatusOK, c, err)
}

func (h *Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Service.CreateCheck(r.Context(), ActorFrom(r.Context()), in)
	h.respondCheck(w, r, http.StatusCreated, c, err)
}

func (h *Handler) UpdateCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.Service.UpdateCheck(r.Context(), ActorFrom(r.Context()), checkID(r), in)
	h.respondCheck(w, r, http.StatusOK, c, err)
}

func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCheck(r.Context(), ActorFrom(r.Context()), checkID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OperateCheck applies cash, early_cash, return, cancel or lost.
func (h *Handler) OperateCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckOperationRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, op, err := h.Service.OperateCheck(r.Context(), ActorFrom(r.Context()), checkID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CheckOperationResponse{Check: toCheckDTO(*c), Operation: toCheckOperationDTO(*op)})
}

func (h *Handler) ListCheckOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.Service.ListCheckOperations(r.Context(), checkID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(ops, toCheckOperationDTO))
}

func (h *Handler) respondCheck(w http.ResponseWriter, r *http.Request, status int, c *lifecycle.CheckView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, toCheckDTO(*c))
}

func checkID(r *http.Request) ledger.CheckID { return ledger.CheckID(chi.URLParam(r, "id")) }

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (h *Handler) ListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.Service.ListCards(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cards, toCreditCardDTO))
}

func (h *Handler) GetCreditCard(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCard(r.Context(), cardID(r))
	h.respondCard(w, r, http.StatusOK, c, err)
}

func (h *Handler) CreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req CreditCardRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Service.CreateCard(r.Context(), ActorFrom(r.Context()), req.input())
	h.respondCard(w, r, http.StatusCreated, c, err)
}

func (h *Handler) UpdateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req CreditCardRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Service.UpdateCard(r.Context(), ActorFrom(r.Context()), cardID(r), req.input())
	h.respondCard(w, r, http.StatusOK, c, err)
}

func (h *Handler) DeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCard(r.Context(), ActorFrom(r.Context()), cardID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChargeCard books a purchase against the card limit. Over-limit charges
// come back as 422.
func (h *Handler) ChargeCard(w http.ResponseWriter, r *http.Request) {
	var req CardChargeRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, t, err := h.Service.ChargeCard(r.Context(), ActorFrom(r.Context()), cardID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CardChargeResponse{Card: toCreditCardDTO(*c), Transaction: toCardTransactionDTO(*t)})
}

func (h *Handler) PayCard(w http.ResponseWriter, r *http.Request) {
	var req CardPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, p, err := h.Service.PayCard(r.Context(), ActorFrom(r.Context()), cardID(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CardPaymentResponse{Card: toCreditCardDTO(*c), Payment: toCardPaymentDTO(*p)})
}

func (h *Handler) ListCardTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.ListCardTransactions(r.Context(), cardID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(txs, toCardTransactionDTO))
}

func (h *Handler) ListCardPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListCardPayments(r.Context(), cardID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(payments, toCardPaymentDTO))
}

func (h *Handler) respondCard(w http.ResponseWriter, r *http.Request, status int, c *lifecycle.CardView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, toCreditCardDTO(*c))
}

func cardID(r *http.Request) ledger.CardID { return ledger.CardID(chi.URLParam(r, "id")) }

// =============================================================================
// INCOME RECORDS
// =============================================================================

func (h *Handler) ListIncomeRecords(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	records, err := h.Service.ListIncome(r.Context(), ActorFrom(r.Context()), ledger.IncomeFilter{
		Status:    ledger.IncomeStatus(q.Get("status")),
		CreatedBy: q.Get("created_by"),
		Page:      page,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(records, toIncomeRecordDTO))
}

func (h *Handler) GetIncomeRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.GetIncome(r.Context(), ActorFrom(r.Context()), incomeID(r))
	h.respondIncome(w, r, http.StatusOK, rec, err)
}

// CreateIncomeRecord submits income for verification. Admin submissions
// are verified, and credited, immediately.
func (h *Handler) CreateIncomeRecord(w http.ResponseWriter, r *http.Request) {
	var req IncomeRecordRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.Service.CreateIncome(r.Context(), ActorFrom(r.Context()), in)
	h.respondIncome(w, r, http.StatusCreated, rec, err)
}

func (h *Handler) VerifyIncomeRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.VerifyIncome(r.Context(), ActorFrom(r.Context()), incomeID(r))
	h.respondIncome(w, r, http.StatusOK, rec, err)
}

func (h *Handler) RejectIncomeRecord(w http.ResponseWriter, r *http.Request) {
	var req ReasonRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Service.RejectIncome(r.Context(), ActorFrom(r.Context()), incomeID(r), req.Reason)
	h.respondIncome(w, r, http.StatusOK, rec, err)
}

func (h *Handler) DeleteIncomeRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteIncome(r.Context(), ActorFrom(r.Context()), incomeID(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondIncome(w http.ResponseWriter, r *http.Request, status int, rec *ledger.IncomeRecord, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, toIncomeRecordDTO(*rec))
}

func incomeID(r *http.Request) ledger.IncomeID { return ledger.IncomeID(chi.URLParam(r, "id")) }
