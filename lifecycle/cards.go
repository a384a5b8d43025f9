package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// CREDIT CARDS
//
// used_amount is moved only by AdjustCardUsage, a single guarded SQL update
// that keeps 0 <= used_amount <= limit.
// =============================================================================

const cardKind = "credit card"

// CardView is a stored card together with its derived fields.
type CardView struct {
	ledger.CreditCard
	ledger.CardState
}

func (s *Service) cardView(c ledger.CreditCard) CardView {
	return CardView{CreditCard: c, CardState: ledger.DeriveCard(c, s.today())}
}

type CardInput struct {
	Name            string
	BankName        string
	Limit           decimal.Decimal
	StatementDay    int
	DueDay          int
	FlexibleAccount bool
}

func (in CardInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.Invalid("name", "required")
	}
	if _, err := ledger.CheckAmount("limit", in.Limit); err != nil {
		return err
	}
	if in.StatementDay < 1 || in.StatementDay > 31 {
		return ledger.Invalid("statement_day", "must be between 1 and 31")
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return ledger.Invalid("due_day", "must be between 1 and 31")
	}
	return nil
}

func (in CardInput) apply(c *ledger.CreditCard) {
	c.Name = strings.TrimSpace(in.Name)
	c.BankName = in.BankName
	c.Limit = ledger.Round(in.Limit)
	c.StatementDay = in.StatementDay
	c.DueDay = in.DueDay
	c.FlexibleAccount = in.FlexibleAccount
}

func (s *Service) CreateCard(ctx context.Context, actor ledger.Actor, in CardInput) (*CardView, error) {
	if err := requireAdmin(actor, "create credit cards"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.Now()
	c := ledger.CreditCard{
		ID:         ledger.CardID(s.NewID()),
		UsedAmount: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.apply(&c)
	if err := s.Store.InsertCard(ctx, c); err != nil {
		return nil, err
	}
	v := s.cardView(c)
	return &v, nil
}

func (s *Service) GetCard(ctx context.Context, id ledger.CardID) (*CardView, error) {
	c, err := s.Store.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.cardView(*c)
	return &v, nil
}

func (s *Service) ListCards(ctx context.Context) ([]CardView, error) {
	cards, err := s.Store.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]CardView, len(cards))
	for i, c := range cards {
		views[i] = s.cardView(c)
	}
	return views, nil
}

// UpdateCard edits card details. A limit below the current usage is refused.
func (s *Service) UpdateCard(ctx context.Context, actor ledger.Actor, id ledger.CardID, in CardInput) (*CardView, error) {
	if err := requireAdmin(actor, "update credit cards"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.Store.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	c.UpdatedAt = s.Now()
	if err := s.Store.UpdateCardDetails(ctx, *c); err != nil {
		return nil, err
	}
	// usage may have moved since the read above
	return s.GetCard(ctx, id)
}

type ChargeInput struct {
	Amount       decimal.Decimal
	Description  string
	Category     string
	Merchant     string
	Date         time.Time
	Installments int
}

// ChargeCard spends on the card. Refused when used + amount would exceed the limit.
func (s *Service) ChargeCard(ctx context.Context, actor ledger.Actor, id ledger.CardID, in ChargeInput) (*CardView, *ledger.CardTransaction, error) {
	if err := requireAdmin(actor, "charge credit cards"); err != nil {
		return nil, nil, err
	}
	amount, err := ledger.CheckAmount("amount", in.Amount)
	if err != nil {
		return nil, nil, err
	}
	installments := in.Installments
	if installments <= 0 {
		installments = 1
	}
	if installments > 36 {
		return nil, nil, ledger.Invalid("installments", "must be at most 36")
	}

	var (
		card   *ledger.CreditCard
		charge ledger.CardTransaction
	)
	err = s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.AdjustCardUsage(ctx, id, amount); err != nil {
			return err
		}
		charge = ledger.CardTransaction{
			ID:                s.NewID(),
			CardID:            id,
			Amount:            amount,
			Description:       in.Description,
			Category:          in.Category,
			Merchant:          in.Merchant,
			Date:              ledger.DateOf(dateOr(in.Date, s.Now())),
			Installments:      installments,
			InstallmentAmount: ledger.InstallmentAmount(amount, installments),
			CreatedBy:         actor.ID,
			CreatedAt:         s.Now(),
		}
		if err := tx.InsertCardTransaction(ctx, charge); err != nil {
			return err
		}
		c, err := tx.GetCard(ctx, id)
		if err != nil {
			return err
		}
		card = c
		return s.audit(ctx, tx, actor, ledger.AuditCardCharged, "credit_card", string(id), map[string]any{
			"amount":       money(amount),
			"installments": installments,
			"used_amount":  money(c.UsedAmount),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "card.charged", "credit_card", string(id), actor, map[string]any{
		"amount": money(amount), "used_amount": money(card.UsedAmount),
	})
	v := s.cardView(*card)
	return &v, &charge, nil
}

type CardPaymentInput struct {
	Amount      decimal.Decimal // ignored for a full payment with no amount
	Date        time.Time
	Type        ledger.CardPaymentType
	AccountID   ledger.AccountID // optional; the bank account the payment leaves
	Description string
}

// PayCard reduces the card's usage. Refused when the amount exceeds what is
// used. With an account the payment is also recorded there as an expense.
func (s *Service) PayCard(ctx context.Context, actor ledger.Actor, id ledger.CardID, in CardPaymentInput) (*CardView, *ledger.CardPayment, error) {
	if err := requireAdmin(actor, "pay credit cards"); err != nil {
		return nil, nil, err
	}
	typ := in.Type
	if typ == "" {
		typ = ledger.CardPayPartial
	}
	switch typ {
	case ledger.CardPayMinimum, ledger.CardPayFull, ledger.CardPayPartial:
	default:
		return nil, nil, ledger.Invalid("payment_type", "unknown payment type %q", typ)
	}

	var (
		card    *ledger.CreditCard
		payment ledger.CardPayment
	)
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		c, err := tx.GetCard(ctx, id)
		if err != nil {
			return err
		}
		amount := ledger.Round(in.Amount)
		if typ == ledger.CardPayFull && !amount.IsPositive() {
			amount = c.UsedAmount
		}
		if !amount.IsPositive() {
			return ledger.Invalid("amount", "must be positive")
		}

		if _, err := tx.AdjustCardUsage(ctx, id, amount.Neg()); err != nil {
			return err
		}

		date := ledger.DateOf(dateOr(in.Date, s.Now()))
		payment = ledger.CardPayment{
			ID:          s.NewID(),
			CardID:      id,
			Amount:      amount,
			Date:        date,
			Type:        typ,
			AccountID:   in.AccountID,
			Description: in.Description,
			CreatedBy:   actor.ID,
			CreatedAt:   s.Now(),
		}

		if in.AccountID != "" {
			t, err := s.recorder(tx).Record(ctx, ledger.Entry{
				Type:         ledger.TxExpense,
				Amount:       amount,
				AccountID:    in.AccountID,
				Currency:     DefaultCurrency,
				Links:        ledger.Links{CreditCardID: id},
				Description:  orDefault(in.Description, "Credit card payment: "+c.Name),
				Date:         date,
				CreatedBy:    actor.ID,
				RequireFunds: true,
			})
			if err != nil {
				return err
			}
			payment.TransactionID = t.ID
		}

		if err := tx.InsertCardPayment(ctx, payment); err != nil {
			return err
		}
		card, err = tx.GetCard(ctx, id)
		if err != nil {
			return err
		}
		return s.audit(ctx, tx, actor, ledger.AuditCardPaid, "credit_card", string(id), map[string]any{
			"amount":         money(amount),
			"payment_type":   string(typ),
			"transaction_id": string(payment.TransactionID),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "card.paid", "credit_card", string(id), actor, map[string]any{
		"amount": money(payment.Amount), "used_amount": money(card.UsedAmount),
	})
	v := s.cardView(*card)
	return &v, &payment, nil
}

// DeleteCard refuses while card transactions exist.
func (s *Service) DeleteCard(ctx context.Context, actor ledger.Actor, id ledger.CardID) error {
	if err := requireAdmin(actor, "delete credit cards"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.GetCard(ctx, id); err != nil {
			return err
		}
		charges, err := tx.ListCardTransactions(ctx, id)
		if err != nil {
			return err
		}
		if len(charges) > 0 {
			return &ledger.DependentsError{Kind: cardKind, ID: string(id), Dependents: "card transactions", Count: len(charges)}
		}
		return tx.DeleteCard(ctx, id)
	})
}

func (s *Service) ListCardTransactions(ctx context.Context, id ledger.CardID) ([]ledger.CardTransaction, error) {
	if _, err := s.Store.GetCard(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListCardTransactions(ctx, id)
}

func (s *Service) ListCardPayments(ctx context.Context, id ledger.CardID) ([]ledger.CardPayment, error) {
	if _, err := s.Store.GetCard(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListCardPayments(ctx, id)
}
