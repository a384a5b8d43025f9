package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// PEOPLE (ledger.PersonStore interface)
// =============================================================================

const personColumns = `id, name, iban, tax_number, phone, email, company, address, notes,
	person_type, auto_created, creation_source, total_sent, total_received,
	transaction_count, last_transaction_date, created_at, updated_at`

// nameKey case-folds a name for the uniqueness index. Folding happens in Go
// because SQLite's lower() only knows ASCII. Dotted and dotless i collapse
// to one letter so "YILMAZ", "Yılmaz" and "Yilmaz" share a key.
func nameKey(name string) string {
	return turkishFold.Replace(strings.ToLower(strings.Join(strings.Fields(name), " ")))
}

var turkishFold = strings.NewReplacer("\u0307", "", "ı", "i")

func (s *Store) InsertPerson(ctx context.Context, p ledger.Person) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO people (id, name, name_key, iban, tax_number, phone, email, company, address, notes,
			person_type, auto_created, creation_source, total_sent, total_received,
			transaction_count, last_transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, strings.TrimSpace(p.Name), nameKey(p.Name),
		nullString(p.IBAN), nullString(p.TaxNumber), nullString(p.Phone), nullString(p.Email),
		nullString(p.Company), nullString(p.Address), nullString(p.Notes),
		p.Type, p.AutoCreated, nullString(p.CreationSource),
		ledger.ToMinor(p.TotalSent), ledger.ToMinor(p.TotalReceived),
		p.TransactionCount, nullTS(p.LastTransactionDate),
		ts(p.CreatedAt), ts(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id ledger.PersonID) (*ledger.Person, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+personColumns+" FROM people WHERE id = ?", id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, notFound(err, "person", string(id))
	}
	return &p, nil
}

// FindPerson prefers an exact IBAN or tax number match over a name match.
func (s *Store) FindPerson(ctx context.Context, name, iban, taxNumber string) (*ledger.Person, error) {
	var (
		conds []string
		args  []any
	)
	if iban != "" {
		conds = append(conds, "iban = ?")
		args = append(args, iban)
	}
	if taxNumber != "" {
		conds = append(conds, "tax_number = ?")
		args = append(args, taxNumber)
	}
	if key := nameKey(name); key != "" {
		conds = append(conds, "name_key = ?")
		args = append(args, key)
	}
	if len(conds) == 0 {
		return nil, &ledger.NotFoundError{Kind: "person", ID: name}
	}

	query := "SELECT " + personColumns + " FROM people WHERE " + strings.Join(conds, " OR ") +
		" ORDER BY CASE WHEN iban = ? OR tax_number = ? THEN 0 ELSE 1 END, created_at ASC LIMIT 1"
	args = append(args, iban, taxNumber)

	p, err := scanPerson(s.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "person", name)
	}
	return &p, nil
}

func (s *Store) ListPeople(ctx context.Context, f ledger.PersonFilter) ([]ledger.Person, error) {
	w := &where{}
	if f.Type != "" {
		w.add("person_type = ?", f.Type)
	}
	if f.Search != "" {
		like := "%" + nameKey(f.Search) + "%"
		w.add("(name_key LIKE ? OR iban LIKE ? OR email LIKE ?)", like, like, like)
	}
	limit, args := page(f.Page, w.args)

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+personColumns+" FROM people"+w.String()+" ORDER BY name_key ASC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []ledger.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// UpdatePerson writes descriptive fields only. Totals are owned by AddPersonMovement.
func (s *Store) UpdatePerson(ctx context.Context, p ledger.Person) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE people SET name = ?, name_key = ?, iban = ?, tax_number = ?, phone = ?, email = ?,
			company = ?, address = ?, notes = ?, person_type = ?, updated_at = ?
		WHERE id = ?`,
		strings.TrimSpace(p.Name), nameKey(p.Name), nullString(p.IBAN), nullString(p.TaxNumber),
		nullString(p.Phone), nullString(p.Email), nullString(p.Company), nullString(p.Address),
		nullString(p.Notes), p.Type, ts(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicate
		}
		return fmt.Errorf("failed to update person: %w", err)
	}
	return s.affected(ctx, res, "people", "person", string(p.ID))
}

func (s *Store) DeletePerson(ctx context.Context, id ledger.PersonID) error {
	return s.deleteByID(ctx, "people", "person", string(id))
}

func (s *Store) AddPersonMovement(ctx context.Context, id ledger.PersonID, sent, received decimal.Decimal, count int, date *time.Time) error {
	d := nullTS(date)
	res, err := s.q.ExecContext(ctx, `
		UPDATE people SET
			total_sent = total_sent + ?,
			total_received = total_received + ?,
			transaction_count = transaction_count + ?,
			last_transaction_date = CASE
				WHEN ? IS NULL THEN last_transaction_date
				WHEN last_transaction_date IS NULL OR last_transaction_date < ? THEN ?
				ELSE last_transaction_date END,
			updated_at = ?
		WHERE id = ?`,
		ledger.ToMinor(sent), ledger.ToMinor(received), count,
		d, d, d, ts(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update person totals: %w", err)
	}
	return s.affected(ctx, res, "people", "person", string(id))
}

func scanPerson(row scanner) (ledger.Person, error) {
	var (
		p                                      ledger.Person
		iban, tax, phone, email, company, addr sql.NullString
		notes, source, lastDate                sql.NullString
		sent, received                         int64
		created, updated                       string
	)
	err := row.Scan(&p.ID, &p.Name, &iban, &tax, &phone, &email, &company, &addr, &notes,
		&p.Type, &p.AutoCreated, &source, &sent, &received,
		&p.TransactionCount, &lastDate, &created, &updated)
	if err != nil {
		return p, err
	}
	p.IBAN = iban.String
	p.TaxNumber = tax.String
	p.Phone = phone.String
	p.Email = email.String
	p.Company = company.String
	p.Address = addr.String
	p.Notes = notes.String
	p.CreationSource = source.String
	p.TotalSent = ledger.FromMinor(sent)
	p.TotalReceived = ledger.FromMinor(received)
	p.LastTransactionDate = parseNullTS(lastDate)
	p.CreatedAt = parseTS(created)
	p.UpdatedAt = parseTS(updated)
	return p, nil
}
