package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// PAYMENT ORDERS (ledger.OrderStore interface)
// =============================================================================

const orderColumns = `id, recipient_name, recipient_iban, amount, currency, description, category,
	due_date, status, created_by, approved_by, approved_at, rejection_reason, account_id,
	receipt_ref, actual_amount, actual_fees, net_deducted, extraction_confidence,
	extraction_note, completed_at, completed_by, created_at, updated_at`

func orderArgs(o ledger.PaymentOrder) []any {
	return []any{
		o.RecipientName, o.RecipientIBAN, ledger.ToMinor(o.Amount), o.Currency,
		nullString(o.Description), nullString(o.Category), nullTS(o.DueDate), o.Status,
		o.CreatedBy, nullString(o.ApprovedBy), nullTS(o.ApprovedAt), nullString(o.RejectionReason),
		nullString(string(o.AccountID)), nullString(o.ReceiptRef),
		nullMinor(o.ActualAmount), nullMinor(o.ActualFees), nullMinor(o.NetDeducted),
		o.ExtractionConfidence, nullString(o.ExtractionNote),
		nullTS(o.CompletedAt), nullString(o.CompletedBy),
	}
}

func (s *Store) InsertOrder(ctx context.Context, o ledger.PaymentOrder) error {
	args := append([]any{o.ID}, orderArgs(o)...)
	args = append(args, ts(o.CreatedAt), ts(o.UpdatedAt))
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO payment_orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("failed to insert payment order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id ledger.OrderID) (*ledger.PaymentOrder, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM payment_orders WHERE id = ?", id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFound(err, "payment order", string(id))
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, f ledger.OrderFilter) ([]ledger.PaymentOrder, error) {
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.CreatedBy != "" {
		w.add("created_by = ?", f.CreatedBy)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM payment_orders"+w.String()+" ORDER BY created_at DESC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment orders: %w", err)
	}
	defer rows.Close()

	var orders []ledger.PaymentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrder rewrites the order only if it is still in the expected status.
func (s *Store) UpdateOrder(ctx context.Context, o ledger.PaymentOrder, expected ledger.OrderStatus) error {
	args := orderArgs(o)
	args = append(args, ts(o.UpdatedAt), o.ID, expected)
	res, err := s.q.ExecContext(ctx, `
		UPDATE payment_orders SET
			recipient_name = ?, recipient_iban = ?, amount = ?, currency = ?, description = ?,
			category = ?, due_date = ?, status = ?, created_by = ?, approved_by = ?, approved_at = ?,
			rejection_reason = ?, account_id = ?, receipt_ref = ?, actual_amount = ?, actual_fees = ?,
			net_deducted = ?, extraction_confidence = ?, extraction_note = ?, completed_at = ?,
			completed_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update payment order: %w", err)
	}
	return s.affected(ctx, res, "payment_orders", "payment order", string(o.ID))
}

func (s *Store) DeleteOrder(ctx context.Context, id ledger.OrderID) error {
	return s.deleteByID(ctx, "payment_orders", "payment order", string(id))
}

func scanOrder(row scanner) (ledger.PaymentOrder, error) {
	var (
		o                                     ledger.PaymentOrder
		amount                                int64
		description, category, approvedBy     sql.NullString
		rejection, accountID, receipt, note   sql.NullString
		completedBy                           sql.NullString
		dueDate, approvedAt, completedAt      sql.NullString
		actualAmount, actualFees, netDeducted sql.NullInt64
		confidence                            sql.NullFloat64
		created, updated                      string
	)
	err := row.Scan(&o.ID, &o.RecipientName, &o.RecipientIBAN, &amount, &o.Currency,
		&description, &category, &dueDate, &o.Status, &o.CreatedBy, &approvedBy, &approvedAt,
		&rejection, &accountID, &receipt, &actualAmount, &actualFees, &netDeducted,
		&confidence, &note, &completedAt, &completedBy, &created, &updated)
	if err != nil {
		return o, err
	}
	o.Amount = ledger.FromMinor(amount)
	o.Description = description.String
	o.Category = category.String
	o.DueDate = parseNullTS(dueDate)
	o.ApprovedBy = approvedBy.String
	o.ApprovedAt = parseNullTS(approvedAt)
	o.RejectionReason = rejection.String
	o.AccountID = ledger.AccountID(accountID.String)
	o.ReceiptRef = receipt.String
	o.ActualAmount = fromNullMinor(actualAmount)
	o.ActualFees = fromNullMinor(actualFees)
	o.NetDeducted = fromNullMinor(netDeducted)
	o.ExtractionConfidence = confidence.Float64
	o.ExtractionNote = note.String
	o.CompletedAt = parseNullTS(completedAt)
	o.CompletedBy = completedBy.String
	o.CreatedAt = parseTS(created)
	o.UpdatedAt = parseTS(updated)
	return o, nil
}
