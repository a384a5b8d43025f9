package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// INCOME RECORDS (ledger.IncomeStore interface)
// =============================================================================

const incomeColumns = `id, company_name, amount, currency, account_id, description, income_date,
	receipt_ref, status, verified_by, verified_at, rejection_reason, transaction_id,
	created_by, created_at, updated_at`

func incomeArgs(r ledger.IncomeRecord) []any {
	return []any{
		r.CompanyName, ledger.ToMinor(r.Amount), r.Currency, r.AccountID,
		nullString(r.Description), ts(r.Date), nullString(r.ReceiptRef), r.Status,
		nullString(r.VerifiedBy), nullTS(r.VerifiedAt), nullString(r.RejectionReason),
		nullString(string(r.TransactionID)), nullString(r.CreatedBy),
	}
}

func (s *Store) InsertIncome(ctx context.Context, r ledger.IncomeRecord) error {
	args := append([]any{r.ID}, incomeArgs(r)...)
	args = append(args, ts(r.CreatedAt), ts(r.UpdatedAt))
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO income_records (`+incomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to insert income record: %w", err)
	}
	return nil
}

func (s *Store) GetIncome(ctx context.Context, id ledger.IncomeID) (*ledger.IncomeRecord, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+incomeColumns+" FROM income_records WHERE id = ?", id)
	r, err := scanIncome(row)
	if err != nil {
		return nil, notFound(err, "income record", string(id))
	}
	return &r, nil
}

func (s *Store) ListIncome(ctx context.Context, f ledger.IncomeFilter) ([]ledger.IncomeRecord, error) {
	w := &where{}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.CreatedBy != "" {
		w.add("created_by = ?", f.CreatedBy)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+incomeColumns+" FROM income_records"+w.String()+" ORDER BY income_date DESC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list income records: %w", err)
	}
	defer rows.Close()

	var records []ledger.IncomeRecord
	for rows.Next() {
		r, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) UpdateIncome(ctx context.Context, r ledger.IncomeRecord, expected ledger.IncomeStatus) error {
	args := incomeArgs(r)
	args = append(args, ts(r.UpdatedAt), r.ID, expected)
	res, err := s.q.ExecContext(ctx, `
		UPDATE income_records SET company_name = ?, amount = ?, currency = ?, account_id = ?,
			description = ?, income_date = ?, receipt_ref = ?, status = ?, verified_by = ?,
			verified_at = ?, rejection_reason = ?, transaction_id = ?, created_by = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update income record: %w", err)
	}
	return s.affected(ctx, res, "income_records", "income record", string(r.ID))
}

func (s *Store) DeleteIncome(ctx context.Context, id ledger.IncomeID) error {
	return s.deleteByID(ctx, "income_records", "income record", string(id))
}

func scanIncome(row scanner) (ledger.IncomeRecord, error) {
	var (
		r                                     ledger.IncomeRecord
		amount                                int64
		desc, receipt, verifiedBy, verifiedAt sql.NullString
		rejection, txID, createdBy            sql.NullString
		date, created, updated                string
	)
	err := row.Scan(&r.ID, &r.CompanyName, &amount, &r.Currency, &r.AccountID, &desc, &date,
		&receipt, &r.Status, &verifiedBy, &verifiedAt, &rejection, &txID,
		&createdBy, &created, &updated)
	if err != nil {
		return r, err
	}
	r.Amount = ledger.FromMinor(amount)
	r.Description = desc.String
	r.Date = parseTS(date)
	r.ReceiptRef = receipt.String
	r.VerifiedBy = verifiedBy.String
	r.VerifiedAt = parseNullTS(verifiedAt)
	r.RejectionReason = rejection.String
	r.TransactionID = ledger.TransactionID(txID.String)
	r.CreatedBy = createdBy.String
	r.CreatedAt = parseTS(created)
	r.UpdatedAt = parseTS(updated)
	return r, nil
}

// =============================================================================
// AUDIT LOG (ledger.AuditLog interface)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO audit_log (id, ts, actor_id, action, entity_kind, entity_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, ts(e.Timestamp), nullString(e.ActorID), e.Action, e.EntityKind, e.EntityID, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) QueryAudit(ctx context.Context, f ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	w := &where{}
	if f.EntityKind != "" {
		w.add("entity_kind = ?", f.EntityKind)
	}
	if f.EntityID != "" {
		w.add("entity_id = ?", f.EntityID)
	}
	if f.ActorID != "" {
		w.add("actor_id = ?", f.ActorID)
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		args := make([]any, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args[i] = a
		}
		w.add("action IN ("+strings.Join(marks, ", ")+")", args...)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, ts, actor_id, action, entity_kind, entity_id, payload_json
		FROM audit_log`+w.String()+` ORDER BY ts DESC`+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			e              ledger.AuditEntry
			stamp          string
			actor, payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &stamp, &actor, &e.Action, &e.EntityKind, &e.EntityID, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseTS(stamp)
		e.ActorID = actor.String
		if payload.Valid && payload.String != "" {
			json.Unmarshal([]byte(payload.String), &e.Payload)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
