package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// PAYMENT ORDERS
//
//   pending ──approve──▶ approved ──complete──▶ completed
//      │                    │
//      ├──reject──▶ rejected ◀──reject──┘
//      └──cancel──▶ cancelled
// =============================================================================

const orderKind = "payment order"

var orderTransitions = map[ledger.OrderStatus][]ledger.OrderStatus{
	ledger.OrderPending:  {ledger.OrderApproved, ledger.OrderRejected, ledger.OrderCancelled},
	ledger.OrderApproved: {ledger.OrderCompleted, ledger.OrderRejected},
}

func checkOrderTransition(o *ledger.PaymentOrder, to ledger.OrderStatus) error {
	for _, next := range orderTransitions[o.Status] {
		if next == to {
			return nil
		}
	}
	return &ledger.TransitionError{Kind: orderKind, ID: string(o.ID), From: string(o.Status), To: string(to)}
}

type OrderInput struct {
	RecipientName string
	RecipientIBAN string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Category      string
	DueDate       *time.Time
	AccountID     ledger.AccountID
	ReceiptRef    string
}

func (in OrderInput) validate() error {
	if strings.TrimSpace(in.RecipientName) == "" {
		return ledger.Invalid("recipient_name", "required")
	}
	if _, err := ledger.CheckAmount("amount", in.Amount); err != nil {
		return err
	}
	return nil
}

// CompleteInput names the account to pay from and an optional receipt.
// Empty fields fall back to what is stored on the order.
type CompleteInput struct {
	AccountID  ledger.AccountID
	ReceiptRef string
}

// visibleOrder hides other people's orders from non-admins.
func visibleOrder(actor ledger.Actor, o *ledger.PaymentOrder) error {
	if actor.IsAdmin || o.CreatedBy == actor.ID {
		return nil
	}
	return &ledger.NotFoundError{Kind: orderKind, ID: string(o.ID)}
}

// CreateOrder files a payment order. Orders created by an admin start approved.
func (s *Service) CreateOrder(ctx context.Context, actor ledger.Actor, in OrderInput) (*ledger.PaymentOrder, error) {
	if err := requireActor(actor, "create payment orders"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	o := ledger.PaymentOrder{
		ID:            ledger.OrderID(s.NewID()),
		RecipientName: strings.TrimSpace(in.RecipientName),
		RecipientIBAN: strings.TrimSpace(in.RecipientIBAN),
		Amount:        ledger.Round(in.Amount),
		Currency:      orDefault(in.Currency, DefaultCurrency),
		Description:   in.Description,
		Category:      in.Category,
		DueDate:       in.DueDate,
		Status:        ledger.OrderPending,
		CreatedBy:     actor.ID,
		AccountID:     in.AccountID,
		ReceiptRef:    in.ReceiptRef,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if actor.IsAdmin {
		o.Status = ledger.OrderApproved
		o.ApprovedBy = actor.ID
		o.ApprovedAt = &now
	}

	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditOrderCreated, "payment_order", string(o.ID), map[string]any{
			"amount":    money(o.Amount),
			"recipient": o.RecipientName,
			"status":    string(o.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "payment_order.created", "payment_order", string(o.ID), actor, map[string]any{
		"amount": money(o.Amount), "status": string(o.Status),
	})
	return &o, nil
}

func (s *Service) GetOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID) (*ledger.PaymentOrder, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibleOrder(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns orders matching the filter. Non-admins only see their own.
func (s *Service) ListOrders(ctx context.Context, actor ledger.Actor, f ledger.OrderFilter) ([]ledger.PaymentOrder, error) {
	if !actor.IsAdmin {
		f.CreatedBy = actor.ID
	}
	return s.Store.ListOrders(ctx, f)
}

// UpdateOrder edits a pending order. Non-admins may only edit their own.
func (s *Service) UpdateOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID, in OrderInput) (*ledger.PaymentOrder, error) {
	if err := requireActor(actor, "update payment orders"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out *ledger.PaymentOrder
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := visibleOrder(actor, o); err != nil {
			return err
		}
		if o.Status != ledger.OrderPending {
			return &ledger.TransitionError{Kind: orderKind, ID: string(id), From: string(o.Status), To: "updated"}
		}

		updated := *o
		updated.RecipientName = strings.TrimSpace(in.RecipientName)
		updated.RecipientIBAN = strings.TrimSpace(in.RecipientIBAN)
		updated.Amount = ledger.Round(in.Amount)
		updated.Currency = orDefault(in.Currency, o.Currency)
		updated.Description = in.Description
		updated.Category = in.Category
		updated.DueDate = in.DueDate
		updated.AccountID = in.AccountID
		updated.ReceiptRef = in.ReceiptRef
		updated.UpdatedAt = s.Now()

		if err := tx.UpdateOrder(ctx, updated, ledger.OrderPending); err != nil {
			return conflict(err, orderKind, string(id), string(ledger.OrderPending), "updated")
		}
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveOrder moves a pending order to approved.
func (s *Service) ApproveOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID) (*ledger.PaymentOrder, error) {
	if err := requireAdmin(actor, "approve payment orders"); err != nil {
		return nil, err
	}
	o, err := s.transitionOrder(ctx, actor, id, ledger.OrderApproved, ledger.AuditOrderApproved, nil, func(o *ledger.PaymentOrder, now time.Time) {
		o.ApprovedBy = actor.ID
		o.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "payment_order.approved", "payment_order", string(id), actor, map[string]any{"amount": money(o.Amount)})
	return o, nil
}

// RejectOrder rejects a pending or approved order. A reason is required.
func (s *Service) RejectOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID, reason string) (*ledger.PaymentOrder, error) {
	if err := requireAdmin(actor, "reject payment orders"); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ledger.Invalid("reason", "required")
	}
	o, err := s.transitionOrder(ctx, actor, id, ledger.OrderRejected, ledger.AuditOrderRejected,
		map[string]any{"reason": reason},
		func(o *ledger.PaymentOrder, now time.Time) {
			o.RejectionReason = reason
		})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "payment_order.rejected", "payment_order", string(id), actor, map[string]any{"reason": reason})
	return o, nil
}

// CancelOrder withdraws a pending order. The creator or an admin may cancel.
func (s *Service) CancelOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID) (*ledger.PaymentOrder, error) {
	if err := requireActor(actor, "cancel payment orders"); err != nil {
		return nil, err
	}
	o, err := s.transitionOrder(ctx, actor, id, ledger.OrderCancelled, ledger.AuditOrderCancelled, nil, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "payment_order.cancelled", "payment_order", string(id), actor, nil)
	return o, nil
}

// transitionOrder performs a status change that moves no money.
func (s *Service) transitionOrder(
	ctx context.Context,
	actor ledger.Actor,
	id ledger.OrderID,
	to ledger.OrderStatus,
	action ledger.AuditAction,
	payload map[string]any,
	mutate func(o *ledger.PaymentOrder, now time.Time),
) (*ledger.PaymentOrder, error) {
	var out *ledger.PaymentOrder
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := visibleOrder(actor, o); err != nil {
			return err
		}
		if err := checkOrderTransition(o, to); err != nil {
			return err
		}

		from := o.Status
		now := s.Now()
		updated := *o
		updated.Status = to
		updated.UpdatedAt = now
		if mutate != nil {
			mutate(&updated, now)
		}
		if err := tx.UpdateOrder(ctx, updated, from); err != nil {
			return conflict(err, orderKind, string(id), string(from), string(to))
		}

		if payload == nil {
			payload = map[string]any{}
		}
		payload["from"] = string(from)
		if err := s.audit(ctx, tx, actor, action, "payment_order", string(id), payload); err != nil {
			return err
		}
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteOrder pays an approved order from an account.
//
// The receipt, if any, is read before the storage transaction opens so a
// slow extraction never holds the database lock. Inside the transaction the
// order's status is checked again, the expense is recorded with a guarded
// debit, and the order is marked completed. Two concurrent completions of
// the same order, or of two orders against the same account, cannot both
// spend the same money.
func (s *Service) CompleteOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID, in CompleteInput) (*ledger.PaymentOrder, error) {
	if err := requireAdmin(actor, "complete payment orders"); err != nil {
		return nil, err
	}

	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOrderTransition(o, ledger.OrderCompleted); err != nil {
		return nil, err
	}

	accountID := in.AccountID
	if accountID == "" {
		accountID = o.AccountID
	}
	if accountID == "" {
		return nil, ledger.Invalid("account_id", "required to complete a payment order")
	}
	receipt := orDefault(in.ReceiptRef, o.ReceiptRef)

	d := s.deduction(ctx, id, o.Amount, receipt)

	var out *ledger.PaymentOrder
	var txID ledger.TransactionID
	err = s.Store.WithTx(ctx, func(tx ledger.Store) error {
		cur, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOrderTransition(cur, ledger.OrderCompleted); err != nil {
			return err
		}

		description := cur.Description
		if description == "" {
			description = fmt.Sprintf("Payment order to %s", cur.RecipientName)
		}
		t, err := s.recorder(tx).Record(ctx, ledger.Entry{
			Type:      ledger.TxExpense,
			Amount:    d.Amount,
			Fees:      d.Fees,
			AccountID: accountID,
			Currency:  cur.Currency,
			Counterparty: &ledger.Counterparty{
				Name:   cur.RecipientName,
				IBAN:   cur.RecipientIBAN,
				Source: "payment_order",
			},
			Links:        ledger.Links{PaymentOrderID: id},
			Description:  description,
			Reference:    d.Reference,
			ReceiptRef:   receipt,
			CreatedBy:    actor.ID,
			RequireFunds: true,
		})
		if err != nil {
			return err
		}

		now := s.Now()
		updated := *cur
		updated.Status = ledger.OrderCompleted
		updated.AccountID = accountID
		updated.ReceiptRef = receipt
		updated.ActualAmount = decimal.NewNullDecimal(d.Amount)
		updated.ActualFees = decimal.NewNullDecimal(d.Fees)
		updated.NetDeducted = decimal.NewNullDecimal(t.NetAmount)
		updated.ExtractionConfidence = d.Confidence
		updated.ExtractionNote = d.Note
		updated.CompletedAt = &now
		updated.CompletedBy = actor.ID
		updated.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, updated, ledger.OrderApproved); err != nil {
			return conflict(err, orderKind, string(id), string(ledger.OrderApproved), string(ledger.OrderCompleted))
		}

		if err := s.audit(ctx, tx, actor, ledger.AuditOrderCompleted, "payment_order", string(id), map[string]any{
			"account_id":     string(accountID),
			"transaction_id": string(t.ID),
			"net_deducted":   money(t.NetAmount),
			"extracted":      d.Extracted,
		}); err != nil {
			return err
		}
		out = &updated
		txID = t.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("payment order completed",
		"component", "lifecycle",
		"order_id", id,
		"account_id", accountID,
		"net_deducted", money(out.NetDeducted.Decimal),
		"extracted", d.Extracted)
	s.publish(ctx, "payment_order.completed", "payment_order", string(id), actor, map[string]any{
		"account_id":     string(accountID),
		"transaction_id": string(txID),
		"net_deducted":   money(out.NetDeducted.Decimal),
	})
	return out, nil
}

// DeleteOrder removes an order nothing depends on. Completed orders have a
// transaction pointing at them and are refused. Non-admins may only delete
// their own pending or rejected orders.
func (s *Service) DeleteOrder(ctx context.Context, actor ledger.Actor, id ledger.OrderID) error {
	if err := requireActor(actor, "delete payment orders"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := visibleOrder(actor, o); err != nil {
			return err
		}
		if !actor.IsAdmin && o.Status != ledger.OrderPending && o.Status != ledger.OrderRejected {
			return &ledger.PermissionError{ActorID: actor.ID, Action: "delete a " + string(o.Status) + " payment order"}
		}

		n, err := tx.CountTransactions(ctx, ledger.TransactionFilter{PaymentOrderID: id})
		if err != nil {
			return err
		}
		if n > 0 || o.Status == ledger.OrderCompleted {
			return &ledger.DependentsError{Kind: orderKind, ID: string(id), Dependents: "transactions", Count: n}
		}

		if err := tx.DeleteOrder(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditOrderDeleted, "payment_order", string(id), map[string]any{
			"status": string(o.Status),
			"amount": money(o.Amount),
		})
	})
}
