package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// PEOPLE - manual counterparty management
// =============================================================================

type PersonInput struct {
	Name      string
	IBAN      string
	TaxNumber string
	Phone     string
	Email     string
	Company   string
	Address   string
	Notes     string
	Type      ledger.PersonType
}

func (in PersonInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.Invalid("name", "required")
	}
	switch in.Type {
	case "", ledger.PersonIndividual, ledger.PersonCompany:
		return nil
	}
	return ledger.Invalid("person_type", "unknown person type %q", in.Type)
}

func (in PersonInput) apply(p *ledger.Person) {
	p.Name = strings.TrimSpace(in.Name)
	p.IBAN = strings.TrimSpace(in.IBAN)
	p.TaxNumber = strings.TrimSpace(in.TaxNumber)
	p.Phone = in.Phone
	p.Email = in.Email
	p.Company = in.Company
	p.Address = in.Address
	p.Notes = in.Notes
	p.Type = in.Type
	if p.Type == "" {
		p.Type = ledger.ClassifyName(p.Name)
	}
}

// CreatePerson registers a counterparty by hand. The name must be unique
// (case-insensitively) so the Registry can find it later.
func (s *Service) CreatePerson(ctx context.Context, actor ledger.Actor, in PersonInput) (*ledger.Person, error) {
	if err := requireAdmin(actor, "create people"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	p := ledger.Person{
		ID:             ledger.PersonID(s.NewID()),
		CreationSource: "manual",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	in.apply(&p)

	if err := s.Store.InsertPerson(ctx, p); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			return nil, ledger.Invalid("name", "a person named %q already exists", p.Name)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPerson(ctx context.Context, id ledger.PersonID) (*ledger.Person, error) {
	return s.Store.GetPerson(ctx, id)
}

func (s *Service) ListPeople(ctx context.Context, f ledger.PersonFilter) ([]ledger.Person, error) {
	return s.Store.ListPeople(ctx, f)
}

// UpdatePerson edits descriptive fields. Running totals are left alone.
func (s *Service) UpdatePerson(ctx context.Context, actor ledger.Actor, id ledger.PersonID, in PersonInput) (*ledger.Person, error) {
	if err := requireAdmin(actor, "update people"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.Store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	p.UpdatedAt = s.Now()
	if err := s.Store.UpdatePerson(ctx, *p); err != nil {
		if errors.Is(err, ledger.ErrDuplicate) {
			return nil, ledger.Invalid("name", "a person named %q already exists", p.Name)
		}
		return nil, err
	}
	return p, nil
}

// DeletePerson refuses while transactions still name the person.
func (s *Service) DeletePerson(ctx context.Context, actor ledger.Actor, id ledger.PersonID) error {
	if err := requireAdmin(actor, "delete people"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.GetPerson(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountTransactions(ctx, ledger.TransactionFilter{PersonID: id})
		if err != nil {
			return err
		}
		if n > 0 {
			return &ledger.DependentsError{Kind: "person", ID: string(id), Dependents: "transactions", Count: n}
		}
		return tx.DeletePerson(ctx, id)
	})
}
