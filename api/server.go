/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web frontend
  5. Auth:       Bearer token on everything under /api

ROUTE GROUPS:
  /healthz                 Liveness (public)
  /api/accounts/*          Bank accounts, statements and reconciliation
  /api/transactions/*      Money movements
  /api/people/*            Counterparties
  /api/payment-orders/*    Payment order workflow
  /api/debts/*             Payables and receivables
  /api/checks/*            Cheques
  /api/credit-cards/*      Corporate cards
  /api/income-records/*    Income submissions
  /api/audit               Audit log
  /api/scenarios/*         Demo data (only with a Resetter)

SEE ALSO:
  - handlers.go, workflow_handlers.go: Handler implementations
  - auth.go: Token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the cross-cutting parts of the router.
type RouterOptions struct {
	Auth           *Authenticator
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Post("/reconcile", h.ReconcileAll)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Post("/{id}/adjust", h.AdjustBalance)
			r.Post("/{id}/reconcile", h.ReconcileAccount)
			r.Get("/{id}/statement", h.AccountStatement)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.ListPeople)
			r.Post("/", h.CreatePerson)
			r.Get("/{id}", h.GetPerson)
			r.Put("/{id}", h.UpdatePerson)
			r.Delete("/{id}", h.DeletePerson)
			r.Get("/{id}/transactions", h.GetPersonTransactions)
		})

		r.Route("/payment-orders", func(r chi.Router) {
			r.Get("/", h.ListPaymentOrders)
			r.Post("/", h.CreatePaymentOrder)
			r.Get("/{id}", h.GetPaymentOrder)
			r.Put("/{id}", h.UpdatePaymentOrder)
			r.Delete("/{id}", h.DeletePaymentOrder)
			r.Post("/{id}/approve", h.ApprovePaymentOrder)
			r.Post("/{id}/reject", h.RejectPaymentOrder)
			r.Post("/{id}/cancel", h.CancelPaymentOrder)
			r.Post("/{id}/complete", h.CompletePaymentOrder)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Get("/{id}", h.GetDebt)
			r.Put("/{id}", h.UpdateDebt)
			r.Delete("/{id}", h.DeleteDebt)
			r.Post("/{id}/pay", h.PayDebt)
			r.Post("/{id}/cancel", h.CancelDebt)
			r.Get("/{id}/payments", h.ListDebtPayments)
		})

		r.Route("/checks", func(r chi.Router) {
			r.Get("/", h.ListChecks)
			r.Post("/", h.CreateCheck)
			r.Get("/{id}", h.GetCheck)
			r.Put("/{id}", h.UpdateCheck)
			r.Delete("/{id}", h.DeleteCheck)
			r.Post("/{id}/operations", h.OperateCheck)
			r.Get("/{id}/operations", h.ListCheckOperations)
		})

		r.Route("/credit-cards", func(r chi.Router) {
			r.Get("/", h.ListCreditCards)
			r.Post("/", h.CreateCreditCard)
			r.Get("/{id}", h.GetCreditCard)
			r.Put("/{id}", h.UpdateCreditCard)
			r.Delete("/{id}", h.DeleteCreditCard)
			r.Post("/{id}/charge", h.ChargeCard)
			r.Post("/{id}/pay", h.PayCard)
			r.Get("/{id}/transactions", h.ListCardTransactions)
			r.Get("/{id}/payments", h.ListCardPayments)
		})

		r.Route("/income-records", func(r chi.Router) {
			r.Get("/", h.ListIncomeRecords)
			r.Post("/", h.CreateIncomeRecord)
			r.Get("/{id}", h.GetIncomeRecord)
			r.Delete("/{id}", h.DeleteIncomeRecord)
			r.Post("/{id}/verify", h.VerifyIncomeRecord)
			r.Post("/{id}/reject", h.RejectIncomeRecord)
		})

		r.Get("/audit", h.QueryAudit)

		if h.Resetter != nil {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found", nil)
	})

	return r
}
