package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RECONCILER - Recomputes the balance invariant
// =============================================================================

// Drift is the outcome of one account check.
// Drift = Calculated − Stored; zero means the account is consistent.
type Drift struct {
	AccountID  AccountID
	Stored     decimal.Decimal
	Calculated decimal.Decimal
	Drift      decimal.Decimal
	Repaired   bool
}

func (d Drift) Consistent() bool { return d.Drift.IsZero() }

type Reconciler struct {
	Store  TxStore
	Logger *slog.Logger
	Now    Clock
}

func NewReconciler(store TxStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Store: store, Logger: logger, Now: SystemClock}
}

// Recompute sums the completed transactions of an account and compares the
// result with the stored balance. It is read-only unless repair is set, in
// which case the drift is applied through the Writer in the same storage
// transaction that measured it.
func (r *Reconciler) Recompute(ctx context.Context, accountID AccountID, repair bool, actorID string) (Drift, error) {
	var out Drift
	err := r.Store.WithTx(ctx, func(s Store) error {
		acc, err := s.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		sum, err := s.SumBalanceImpact(ctx, accountID)
		if err != nil {
			return fmt.Errorf("sum balance impact: %w", err)
		}

		calculated := acc.InitialBalance.Add(sum)
		out = Drift{
			AccountID:  accountID,
			Stored:     acc.CurrentBalance,
			Calculated: calculated,
			Drift:      calculated.Sub(acc.CurrentBalance),
		}
		if out.Consistent() || !repair {
			return nil
		}

		if _, err := NewWriter(s).ApplyDelta(ctx, accountID, out.Drift); err != nil {
			return fmt.Errorf("apply repair: %w", err)
		}
		out.Repaired = true

		return s.AppendAudit(ctx, AuditEntry{
			ID:         uuid.NewString(),
			Timestamp:  r.Now(),
			ActorID:    actorID,
			Action:     AuditReconciliation,
			EntityKind: "account",
			EntityID:   string(accountID),
			Payload: map[string]any{
				"stored":     out.Stored.StringFixed(2),
				"calculated": out.Calculated.StringFixed(2),
				"drift":      out.Drift.StringFixed(2),
			},
		})
	})
	if err != nil {
		return Drift{}, err
	}

	if !out.Consistent() {
		r.Logger.Warn("balance drift detected",
			"component", "reconciler",
			"account_id", accountID,
			"stored", out.Stored.StringFixed(2),
			"calculated", out.Calculated.StringFixed(2),
			"drift", out.Drift.StringFixed(2),
			"repaired", out.Repaired)
	}
	return out, nil
}

// RecomputeAll checks every account. It stops at the first storage error.
func (r *Reconciler) RecomputeAll(ctx context.Context, repair bool, actorID string) ([]Drift, error) {
	accounts, err := r.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Drift, 0, len(accounts))
	for _, a := range accounts {
		d, err := r.Recompute(ctx, a.ID, repair, actorID)
		if err != nil {
			return results, fmt.Errorf("account %s: %w", a.ID, err)
		}
		results = append(results, d)
	}
	return results, nil
}
