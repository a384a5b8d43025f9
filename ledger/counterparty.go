package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// COUNTERPARTY REGISTRY - Resolves names/IBANs to a single Person
// =============================================================================

// Direction says which running total a movement lands in.
type Direction int

const (
	Sent Direction = iota
	Received
)

// DirectionOf maps a transaction type to the counterparty's point of view:
// money leaving our account was sent to them.
func DirectionOf(t TxType) Direction {
	if t.Inflow() {
		return Received
	}
	return Sent
}

// companyTokens mark a name as a legal entity. Matching is per word with
// dots removed, so "A.Ş." and "Ltd.Şti." match while "Vincent" does not.
var companyTokens = map[string]bool{
	"ltd": true, "aş": true, "anonim": true, "limited": true, "şirket": true,
	"şirketi": true, "şti": true, "ltdşti": true, "inc": true, "llc": true,
	"gmbh": true, "corp": true,
}

// ClassifyName guesses whether a counterparty is a company or an individual.
func ClassifyName(name string) PersonType {
	// A decomposed "İ" leaves a combining dot behind after lowercasing.
	lower := strings.ReplaceAll(strings.ToLower(name), "\u0307", "")
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '(' || r == ')'
	})
	for _, w := range words {
		if companyTokens[strings.ReplaceAll(w, ".", "")] {
			return PersonCompany
		}
		for _, part := range strings.Split(w, ".") {
			if companyTokens[part] {
				return PersonCompany
			}
		}
	}
	return PersonIndividual
}

// resolveAttempts bounds the insert/lookup loop when racing another writer.
const resolveAttempts = 3

type Registry struct {
	Store PersonStore
	NewID func() string
	Now   Clock
}

func NewRegistry(store PersonStore) *Registry {
	return &Registry{Store: store, NewID: uuid.NewString, Now: SystemClock}
}

// Resolve returns the Person matching the counterparty, creating one when
// none exists. Two concurrent resolves of the same new name end up with the
// same Person: the loser of the insert race hits the unique constraint and
// retries as a lookup.
func (r *Registry) Resolve(ctx context.Context, c Counterparty) (PersonID, error) {
	name := strings.TrimSpace(c.Name)

	for attempt := 0; attempt < resolveAttempts; attempt++ {
		p, err := r.Store.FindPerson(ctx, name, c.IBAN, c.TaxNumber)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
		if name == "" {
			return "", Invalid("counterparty", "cannot create a person without a name")
		}

		now := r.Now()
		source := c.Source
		if source == "" {
			source = "transaction"
		}
		p = &Person{
			ID:             PersonID(r.NewID()),
			Name:           name,
			IBAN:           c.IBAN,
			TaxNumber:      c.TaxNumber,
			Type:           ClassifyName(name),
			AutoCreated:    true,
			CreationSource: source,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = r.Store.InsertPerson(ctx, *p)
		if err == nil {
			return p.ID, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return "", err
		}
	}

	return "", fmt.Errorf("resolve %q: %w", name, ErrConcurrentModification)
}

// RecordMovement adds one transaction's worth to the person's totals.
func (r *Registry) RecordMovement(ctx context.Context, id PersonID, dir Direction, amount decimal.Decimal, date time.Time) error {
	sent, received := split(dir, amount)
	return r.Store.AddPersonMovement(ctx, id, sent, received, 1, &date)
}

// RevertMovement undoes RecordMovement. last_transaction_date is left as is.
func (r *Registry) RevertMovement(ctx context.Context, id PersonID, dir Direction, amount decimal.Decimal) error {
	sent, received := split(dir, amount)
	return r.Store.AddPersonMovement(ctx, id, sent.Neg(), received.Neg(), -1, nil)
}

func split(dir Direction, amount decimal.Decimal) (sent, received decimal.Decimal) {
	if dir == Received {
		return decimal.Zero, amount
	}
	return amount, decimal.Zero
}
