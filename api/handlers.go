/*
handlers.go - HTTP API handlers for the back-office ledger

PURPOSE:
  Exposes the lifecycle service via REST API. Handles HTTP request and
  response, JSON serialization, and delegates every rule to the lifecycle
  package. No handler touches the store directly.

ENDPOINTS (this file):
  Accounts:
    GET    /api/accounts                  List accounts
    POST   /api/accounts                  Create account (admin)
    GET    /api/accounts/{id}             Get account
    PUT    /api/accounts/{id}             Update descriptive fields (admin)
    DELETE /api/accounts/{id}             Delete unused account (admin)
    POST   /api/accounts/{id}/adjust      Manual balance adjustment (admin)
    POST   /api/accounts/{id}/reconcile   Recompute balance, ?repair=true (admin)
    POST   /api/accounts/reconcile        Recompute every account (admin)

  Transactions:
    GET    /api/transactions              Filtered, paged listing
    POST   /api/transactions              Record manual transaction (admin)
    GET    /api/transactions/{id}         Get transaction
    DELETE /api/transactions/{id}         Delete with compensating delta (admin)

  People:
    GET/POST /api/people, GET/PUT/DELETE /api/people/{id}
    GET    /api/people/{id}/transactions

  Audit:
    GET    /api/audit                     Audit log (admin)

  Workflow endpoints (orders, debts, checks, cards, income) live in
  workflow_handlers.go.

ERROR HANDLING:
  Errors are returned as JSON with a status derived from the ledger error
  taxonomy:
  - 400: ErrValidation (bad input, refused deletes)
  - 401: Missing or invalid token (auth.go)
  - 403: ErrInsufficientPermission
  - 404: ErrNotFound
  - 409: ErrInvalidTransition, ErrConcurrentModification, ErrDuplicate
  - 422: ErrInsufficientFunds (including card limits)
  - 500: Anything else; details are logged, not returned

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - lifecycle/: Business rules
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *lifecycle.Service
	Logger  *slog.Logger

	// Resetter enables the demo scenario endpoints when set.
	Resetter Resetter
}

// NewHandler creates a new handler over the lifecycle service.
func NewHandler(svc *lifecycle.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Service: svc, Logger: logger.With("component", "api")}
}

// Health reports liveness. It is mounted outside the auth middleware.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(accounts, toAccountDTO))
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.GetAccount(r.Context(), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

// CreateAccount opens a new account with its initial balance.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Service.CreateAccount(r.Context(), ActorFrom(r.Context()), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(*a))
}

// UpdateAccount edits name, IBAN, bank and type. Balances are ignored.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.Service.UpdateAccount(r.Context(), ActorFrom(r.Context()), ledger.AccountID(chi.URLParam(r, "id")), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(*a))
}

// DeleteAccount removes an account with no transactions.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.Service.DeleteAccount(r.Context(), ActorFrom(r.Context()), ledger.AccountID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustBalance records a manual income (positive) or expense (negative).
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalanceRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := h.Service.AdjustBalance(r.Context(), ActorFrom(r.Context()),
		ledger.AccountID(chi.URLParam(r, "id")), req.Amount, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// ReconcileAccount recomputes one account's balance from its transactions.
func (h *Handler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	repair, err := queryBool(r, "repair")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.Service.Reconcile(r.Context(), ActorFrom(r.Context()), ledger.AccountID(chi.URLParam(r, "id")), repair)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDriftDTO(d))
}

// AccountStatement returns opening, inflow, outflow and closing figures
// for a period: ?period=month|quarter|year|fiscal_year&date= or ?from=&to=.
func (h *Handler) AccountStatement(w http.ResponseWriter, r *http.Request) {
	p, err := statementPeriod(r.URL.Query(), ledger.DateOf(h.Service.Now()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	st, err := h.Service.AccountStatement(r.Context(), ledger.AccountID(chi.URLParam(r, "id")), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(*st))
}

// ReconcileAll recomputes every account.
func (h *Handler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	repair, err := queryBool(r, "repair")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	drifts, err := h.Service.ReconcileAll(r.Context(), ActorFrom(r.Context()), repair)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(drifts, toDriftDTO))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns one page of transactions plus the total count.
// GET /api/transactions?account_id=&person_id=&transaction_type=&status=
//
//	&payment_order_id=&debt_id=&check_id=&credit_card_id=&income_record_id=
//	&from=&to=&search=&limit=&skip=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := ledger.TransactionFilter{
		AccountID:      ledger.AccountID(q.Get("account_id")),
		PersonID:       ledger.PersonID(q.Get("person_id")),
		Type:           ledger.TxType(q.Get("transaction_type")),
		Status:         ledger.TxStatus(q.Get("status")),
		PaymentOrderID: ledger.OrderID(q.Get("payment_order_id")),
		DebtID:         ledger.DebtID(q.Get("debt_id")),
		CheckID:        ledger.CheckID(q.Get("check_id")),
		CreditCardID:   ledger.CardID(q.Get("credit_card_id")),
		IncomeRecordID: ledger.IncomeID(q.Get("income_record_id")),
		Search:         q.Get("search"),
		Page:           page,
	}
	if f.From, err = parseDatePtr("from", q.Get("from")); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.To, err = parseDatePtr("to", q.Get("to")); err != nil {
		h.fail(w, r, err)
		return
	}

	txs, total, err := h.Service.ListTransactions(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransactionPageDTO{
		Items: toTransactionDTOs(txs),
		Total: total,
		Limit: page.Limit,
		Skip:  page.Skip,
	})
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.GetTransaction(r.Context(), ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// CreateTransaction records a manual transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tx, err := h.Service.CreateTransaction(r.Context(), ActorFrom(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// DeleteTransaction removes a transaction and restores the account balance.
// Returns the deleted transaction so clients can show what was undone.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.DeleteTransaction(r.Context(), ActorFrom(r.Context()), ledger.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// =============================================================================
// PEOPLE HANDLERS
// =============================================================================

// ListPeople returns counterparties, optionally filtered by type or name.
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	people, err := h.Service.ListPeople(r.Context(), ledger.PersonFilter{
		Type:   ledger.PersonType(q.Get("person_type")),
		Search: q.Get("search"),
		Page:   page,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(people, toPersonDTO))
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetPerson(r.Context(), ledger.PersonID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonDTO(*p))
}

func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Service.CreatePerson(r.Context(), ActorFrom(r.Context()), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPersonDTO(*p))
}

func (h *Handler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	var req PersonRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.Service.UpdatePerson(r.Context(), ActorFrom(r.Context()), ledger.PersonID(chi.URLParam(r, "id")), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonDTO(*p))
}

func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeletePerson(r.Context(), ActorFrom(r.Context()), ledger.PersonID(chi.URLParam(r, "id"))); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPersonTransactions lists the transactions booked against one person.
func (h *Handler) GetPersonTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := ledger.PersonID(chi.URLParam(r, "id"))
	if _, err := h.Service.GetPerson(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	txs, total, err := h.Service.ListTransactions(r.Context(), ledger.TransactionFilter{PersonID: id, Page: page})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransactionPageDTO{Items: toTransactionDTOs(txs), Total: total, Limit: page.Limit, Skip: page.Skip})
}

// =============================================================================
// AUDIT
// =============================================================================

// QueryAudit returns audit entries, newest first.
// GET /api/audit?entity_kind=&entity_id=&actor_id=&action=a,b&limit=&skip=
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := ledger.AuditFilter{
		EntityKind: q.Get("entity_kind"),
		EntityID:   q.Get("entity_id"),
		ActorID:    q.Get("actor_id"),
		Page:       page,
	}
	for _, a := range strings.Split(q.Get("action"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			f.Actions = append(f.Actions, ledger.AuditAction(a))
		}
	}
	entries, err := h.Service.QueryAudit(r.Context(), ActorFrom(r.Context()), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toAuditEntryDTO))
}

// =============================================================================
// HELPERS
// =============================================================================

const maxPageSize = 500

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into dst, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail maps a lifecycle error onto an HTTP response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, ErrorResponse{Error: "Internal server error", Code: code})
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var ife *ledger.InsufficientFundsError
	var cle *ledger.CreditLimitError
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ife):
		resp.Details = map[string]decimal.Decimal{
			"available": ife.Available,
			"requested": ife.Requested,
			"shortfall": ife.Shortfall(),
		}
	case errors.As(err, &cle):
		resp.Details = map[string]decimal.Decimal{
			"available": cle.Available,
			"requested": cle.Requested,
		}
	case errors.As(err, &ve) && ve.Field != "":
		resp.Details = map[string]string{"field": ve.Field}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ledger.ErrInsufficientPermission):
		return http.StatusForbidden, "insufficient_permission"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, ledger.ErrConcurrentModification), errors.Is(err, ledger.ErrDuplicate):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// pageFrom reads limit and skip. A missing limit means "no limit".
func pageFrom(r *http.Request) (ledger.Page, error) {
	var p ledger.Page
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > maxPageSize {
			return p, ledger.Invalid("limit", "must be between 0 and %d", maxPageSize)
		}
		p.Limit = n
	}
	if s := q.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return p, ledger.Invalid("skip", "must be a non-negative integer")
		}
		p.Skip = n
	}
	return p, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, ledger.Invalid(key, "must be true or false")
	}
	return b, nil
}
