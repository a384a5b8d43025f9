package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// CHECKS
//
//   active ──cash───────▶ cashed
//          ──early_cash─▶ early_cashed
//          ──return─────▶ returned
//          ──cancel─────▶ cancelled
//          ──lost───────▶ lost
//
// Every operation is only legal while the check is active.
// =============================================================================

const checkKind = "check"

var checkOpResult = map[ledger.CheckOpType]ledger.CheckStatus{
	ledger.CheckOpCash:      ledger.CheckCashed,
	ledger.CheckOpEarlyCash: ledger.CheckEarlyCashed,
	ledger.CheckOpReturn:    ledger.CheckReturned,
	ledger.CheckOpCancel:    ledger.CheckCancelled,
	ledger.CheckOpLost:      ledger.CheckLost,
}

// CheckView is a stored check together with its derived fields.
type CheckView struct {
	ledger.Check
	ledger.CheckState
}

func (s *Service) checkView(c ledger.Check) CheckView {
	return CheckView{Check: c, CheckState: ledger.DeriveCheck(c, s.today())}
}

type CheckInput struct {
	Amount            decimal.Decimal
	Currency          string
	Number            string
	BankName          string
	Branch            string
	AccountNumber     string
	DrawerName        string
	DrawerIDNumber    string
	PayeeName         string
	IssueDate         time.Time
	DueDate           time.Time
	Type              ledger.CheckType
	EarlyDiscountRate decimal.Decimal
	Description       string
	Notes             string
}

func (in CheckInput) validate() error {
	if _, err := ledger.CheckAmount("amount", in.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(in.Number) == "" {
		return ledger.Invalid("check_number", "required")
	}
	if in.DueDate.IsZero() {
		return ledger.Invalid("due_date", "required")
	}
	if in.Type != ledger.CheckReceived && in.Type != ledger.CheckIssued {
		return ledger.Invalid("check_type", "must be received or issued")
	}
	if in.EarlyDiscountRate.IsNegative() || in.EarlyDiscountRate.GreaterThan(decimal.NewFromInt(100)) {
		return ledger.Invalid("early_discount_rate", "must be between 0 and 100")
	}
	return nil
}

func (in CheckInput) apply(c *ledger.Check, today time.Time) {
	c.Amount = ledger.Round(in.Amount)
	c.Currency = orDefault(in.Currency, orDefault(c.Currency, DefaultCurrency))
	c.Number = strings.TrimSpace(in.Number)
	c.BankName = in.BankName
	c.Branch = in.Branch
	c.AccountNumber = in.AccountNumber
	c.DrawerName = strings.TrimSpace(in.DrawerName)
	c.DrawerIDNumber = in.DrawerIDNumber
	c.PayeeName = strings.TrimSpace(in.PayeeName)
	c.IssueDate = ledger.DateOf(dateOr(in.IssueDate, today))
	c.DueDate = ledger.DateOf(in.DueDate)
	c.Type = in.Type
	c.EarlyDiscountRate = in.EarlyDiscountRate
	c.Description = in.Description
	c.Notes = in.Notes
}

func (s *Service) CreateCheck(ctx context.Context, actor ledger.Actor, in CheckInput) (*CheckView, error) {
	if err := requireAdmin(actor, "create checks"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.Now()
	c := ledger.Check{
		ID:        ledger.CheckID(s.NewID()),
		Status:    ledger.CheckActive,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&c, s.today())
	if err := s.Store.InsertCheck(ctx, c); err != nil {
		return nil, err
	}
	v := s.checkView(c)
	return &v, nil
}

func (s *Service) GetCheck(ctx context.Context, id ledger.CheckID) (*CheckView, error) {
	c, err := s.Store.GetCheck(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.checkView(*c)
	return &v, nil
}

func (s *Service) ListChecks(ctx context.Context, f ledger.CheckFilter) ([]CheckView, error) {
	checks, err := s.Store.ListChecks(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]CheckView, len(checks))
	for i, c := range checks {
		views[i] = s.checkView(c)
	}
	return views, nil
}

// UpdateCheck edits an active check.
func (s *Service) UpdateCheck(ctx context.Context, actor ledger.Actor, id ledger.CheckID, in CheckInput) (*CheckView, error) {
	if err := requireAdmin(actor, "update checks"); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out ledger.Check
	err := s.Store.WithTx(ctx, func(tx ledger.Store) error {
		c, err := tx.GetCheck(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != ledger.CheckActive {
			return &ledger.TransitionError{Kind: checkKind, ID: string(id), From: string(c.Status), To: "updated"}
		}
		in.apply(c, s.today())
		c.UpdatedAt = s.Now()
		if err := tx.UpdateCheck(ctx, *c, ledger.CheckActive); err != nil {
			return conflict(err, checkKind, string(id), string(ledger.CheckActive), "updated")
		}
		out = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	v := s.checkView(out)
	return &v, nil
}

type CheckOperationInput struct {
	Type         ledger.CheckOpType
	Date         time.Time
	Amount       decimal.Decimal // overrides the face (or early-cash) amount when positive
	AccountID    ledger.AccountID
	DiscountRate decimal.Decimal // overrides the check's early discount rate when positive
	Fees         decimal.Decimal
	Description  string
	Reason       string // return reason
}

// OperateCheck applies one operation to an active check. Cashing with an
// account records a single transaction for the gross amount minus fees:
// income for a received check, expense for an issued one.
func (s *Service) OperateCheck(ctx context.Context, actor ledger.Actor, id ledger.CheckID, in CheckOperationInput) (*CheckView, *ledger.CheckOperation, error) {
	if err := requireAdmin(actor, "operate checks"); err != nil {
		return nil, nil, err
	}
	to, ok := checkOpResult[in.Type]
	if !ok {
		return nil, nil, ledger.Invalid("operation_type", "unknown check operation %q", in.Type)
	}
	fees, err := ledger.CheckNonNegative("fees", in.Fees)
	if err != nil {
		return nil, nil, err
	}
	date := ledger.DateOf(dateOr(in.Date, s.Now()))

	var (
		out ledger.Check
		op  ledger.CheckOperation
	)
	err = s.Store.WithTx(ctx, func(tx ledger.Store) error {
		c, err := tx.GetCheck(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != ledger.CheckActive {
			return &ledger.TransitionError{Kind: checkKind, ID: string(id), From: string(c.Status), To: string(to)}
		}

		op = ledger.CheckOperation{
			ID:          s.NewID(),
			CheckID:     id,
			Type:        in.Type,
			Date:        date,
			AccountID:   in.AccountID,
			Fees:        fees,
			Description: in.Description,
			CreatedBy:   actor.ID,
			CreatedAt:   s.Now(),
		}

		updated := *c
		updated.Status = to
		updated.UpdatedAt = s.Now()

		switch in.Type {
		case ledger.CheckOpCash, ledger.CheckOpEarlyCash:
			gross := c.Amount
			if in.Type == ledger.CheckOpEarlyCash {
				rate := c.EarlyDiscountRate
				if in.DiscountRate.IsPositive() {
					rate = in.DiscountRate
				}
				op.DiscountRate = rate
				gross = ledger.EarlyCashAmount(c.Amount, rate)
			}
			if !in.Amount.IsZero() {
				if gross, err = ledger.CheckAmount("amount", in.Amount); err != nil {
					return err
				}
			}
			op.Amount = gross

			net := gross.Sub(op.Fees)
			if !net.IsPositive() {
				return ledger.Invalid("fees", "fees %s leave nothing of %s", money(op.Fees), money(gross))
			}

			if in.AccountID != "" {
				t, err := s.recordCheckCash(ctx, tx, actor, &updated, net, in.AccountID, date, in.Description)
				if err != nil {
					return err
				}
				op.TransactionID = t.ID
			}
			updated.CashDate = &date
			updated.CashAccountID = in.AccountID

		case ledger.CheckOpReturn:
			updated.ReturnReason = strings.TrimSpace(in.Reason)
			op.Amount = c.Amount

		default:
			op.Amount = c.Amount
		}

		if err := tx.UpdateCheck(ctx, updated, ledger.CheckActive); err != nil {
			return conflict(err, checkKind, string(id), string(ledger.CheckActive), string(to))
		}
		if err := tx.InsertCheckOperation(ctx, op); err != nil {
			return err
		}
		out = updated
		return s.audit(ctx, tx, actor, ledger.AuditCheckOperation, "check", string(id), map[string]any{
			"operation":      string(in.Type),
			"amount":         money(op.Amount),
			"fees":           money(op.Fees),
			"transaction_id": string(op.TransactionID),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, "check.operation", "check", string(id), actor, map[string]any{
		"operation": string(in.Type),
		"status":    string(out.Status),
	})
	v := s.checkView(out)
	return &v, &op, nil
}

func (s *Service) recordCheckCash(ctx context.Context, tx ledger.Store, actor ledger.Actor, c *ledger.Check, net decimal.Decimal, accountID ledger.AccountID, date time.Time, description string) (*ledger.Transaction, error) {
	typ, party := ledger.TxIncome, c.DrawerName
	if c.Type == ledger.CheckIssued {
		typ, party = ledger.TxExpense, c.PayeeName
	}
	e := ledger.Entry{
		Type:         typ,
		Amount:       net,
		AccountID:    accountID,
		Currency:     c.Currency,
		Links:        ledger.Links{CheckID: c.ID},
		Description:  orDefault(description, "Check "+c.Number),
		Reference:    c.Number,
		Date:         date,
		CreatedBy:    actor.ID,
		RequireFunds: true,
	}
	if party != "" {
		e.Counterparty = &ledger.Counterparty{Name: party, Source: "check"}
	}
	return s.recorder(tx).Record(ctx, e)
}

// DeleteCheck refuses while operations exist.
func (s *Service) DeleteCheck(ctx context.Context, actor ledger.Actor, id ledger.CheckID) error {
	if err := requireAdmin(actor, "delete checks"); err != nil {
		return err
	}
	return s.Store.WithTx(ctx, func(tx ledger.Store) error {
		if _, err := tx.GetCheck(ctx, id); err != nil {
			return err
		}
		ops, err := tx.ListCheckOperations(ctx, id)
		if err != nil {
			return err
		}
		if len(ops) > 0 {
			return &ledger.DependentsError{Kind: checkKind, ID: string(id), Dependents: "operations", Count: len(ops)}
		}
		return tx.DeleteCheck(ctx, id)
	})
}

func (s *Service) ListCheckOperations(ctx context.Context, id ledger.CheckID) ([]ledger.CheckOperation, error) {
	if _, err := s.Store.GetCheck(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListCheckOperations(ctx, id)
}
