/*
Package lifecycle holds the workflow controllers for every ledger record.

PURPOSE:
  A controller checks who is asking, checks the record's current status,
  and then performs the change inside one storage transaction. Money moves
  only through ledger.Recorder, which pairs every transaction insert or
  delete with exactly one balance change.

TRANSACTION SHAPE (every money-moving operation):
  Store.WithTx(func(tx) {
      re-read record, check status      ← the status seen here is the guard
      Recorder.Record / Reverse         ← balance + counterparty
      Update<Record>(…, expectedStatus) ← zero rows ⇒ TransitionError
      AppendAudit
  })
  publish event                          ← after commit, best effort

PERMISSIONS:
  Money-moving and entity-creating operations need an admin actor. Two
  request-style records are open to every authenticated actor: payment
  orders and income records. A non-admin's record starts pending and they
  only ever see their own; an admin's starts approved/verified.

COLLABORATORS:
  - extract.Extractor: reads receipts when an order is completed
  - events.Publisher:  announces state changes after commit

SEE ALSO:
  - ledger/ledger.go: Recorder and Writer
  - extraction.go: When an extracted receipt amount is trusted
*/
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/events"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// DefaultCurrency is used when a record is created without one.
const DefaultCurrency = "TRY"

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store     ledger.TxStore
	Extractor extract.Extractor
	Events    events.Publisher
	Logger    *slog.Logger
	Policy    ExtractionPolicy
	Now       ledger.Clock
	NewID     func() string
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Extractor extract.Extractor
	Events    events.Publisher
	Logger    *slog.Logger
	Policy    ExtractionPolicy
	Now       ledger.Clock
}

func NewService(store ledger.TxStore, opts Options) *Service {
	s := &Service{
		Store:     store,
		Extractor: opts.Extractor,
		Events:    opts.Events,
		Logger:    opts.Logger,
		Policy:    opts.Policy,
		Now:       opts.Now,
		NewID:     uuid.NewString,
	}
	if s.Extractor == nil {
		s.Extractor = extract.Disabled{}
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Events == nil {
		s.Events = &events.Fallback{Logger: s.Logger}
	}
	if s.Now == nil {
		s.Now = ledger.SystemClock
	}
	if s.Policy.IsZero() {
		s.Policy = DefaultExtractionPolicy()
	}
	return s
}

func (s *Service) today() time.Time {
	return ledger.DateOf(s.Now())
}

// recorder builds a Recorder over a transaction-scoped store that shares
// the service's clock and ID source.
func (s *Service) recorder(tx ledger.Store) *ledger.Recorder {
	r := ledger.NewRecorder(tx)
	r.NewID = s.NewID
	r.Now = s.Now
	r.Registry.NewID = s.NewID
	r.Registry.Now = s.Now
	return r
}

// =============================================================================
// PERMISSIONS
// =============================================================================

func requireActor(actor ledger.Actor, action string) error {
	if actor.ID == "" {
		return &ledger.PermissionError{Action: action}
	}
	return nil
}

func requireAdmin(actor ledger.Actor, action string) error {
	if err := requireActor(actor, action); err != nil {
		return err
	}
	if !actor.IsAdmin {
		return &ledger.PermissionError{ActorID: actor.ID, Action: action}
	}
	return nil
}

// =============================================================================
// AUDIT / EVENTS
// =============================================================================

func (s *Service) audit(ctx context.Context, tx ledger.Store, actor ledger.Actor, action ledger.AuditAction, kind, id string, payload map[string]any) error {
	return tx.AppendAudit(ctx, ledger.AuditEntry{
		ID:         s.NewID(),
		Timestamp:  s.Now(),
		ActorID:    actor.ID,
		Action:     action,
		EntityKind: kind,
		EntityID:   id,
		Payload:    payload,
	})
}

// publish is called after commit. A failure is logged and swallowed.
func (s *Service) publish(ctx context.Context, typ, kind, id string, actor ledger.Actor, data map[string]any) {
	err := s.Events.Publish(ctx, events.Event{
		Type:       typ,
		EntityKind: kind,
		EntityID:   id,
		ActorID:    actor.ID,
		Data:       data,
		Timestamp:  s.Now(),
	})
	if err != nil {
		s.Logger.Warn("event publish failed", "component", "lifecycle", "type", typ, "entity_id", id, "error", err)
	}
}

// conflict reports a lost guarded update as the transition the caller tried.
func conflict(err error, kind, id, from, to string) error {
	if errors.Is(err, ledger.ErrConcurrentModification) {
		return &ledger.TransitionError{Kind: kind, ID: id, From: from, To: to}
	}
	return err
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func dateOr(t, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t
}

// pageSlice applies limit/skip to a list already filtered in memory.
func pageSlice[T any](items []T, p ledger.Page) []T {
	if p.Skip >= len(items) {
		return nil
	}
	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
