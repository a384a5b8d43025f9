package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

// =============================================================================
// EXTRACTION POLICY - When a receipt reading replaces the requested amount
// =============================================================================

// ExtractionPolicy bounds how far an extracted receipt is trusted.
type ExtractionPolicy struct {
	// MinConfidence is the lowest confidence (0..1) accepted.
	MinConfidence float64

	// AmountTolerancePercent rejects an extracted amount further than this
	// from the requested amount. Zero disables the check.
	AmountTolerancePercent decimal.Decimal

	// Timeout bounds a single extraction call.
	Timeout time.Duration
}

// DefaultExtractionPolicy matches the configuration defaults.
func DefaultExtractionPolicy() ExtractionPolicy {
	return ExtractionPolicy{
		MinConfidence:          0.7,
		AmountTolerancePercent: decimal.NewFromInt(20),
		Timeout:                15 * time.Second,
	}
}

// IsZero reports an unset policy. NewService replaces it with the default
// so an unconfigured service never trusts every receipt.
func (p ExtractionPolicy) IsZero() bool {
	return p.MinConfidence == 0 && p.AmountTolerancePercent.IsZero() && p.Timeout == 0
}

// Deduction is what a completed order takes off the account.
type Deduction struct {
	Amount     decimal.Decimal
	Fees       decimal.Decimal
	Reference  string
	Confidence float64
	Extracted  bool   // amount and fees came from the receipt
	Note       string // why the receipt was not used
}

func fallback(requested decimal.Decimal, note string) Deduction {
	return Deduction{Amount: ledger.Round(requested), Fees: decimal.Zero, Note: note}
}

// Decide picks the deduction for an order given the extractor's answer.
// The extracted amount plus fees is used when the reading is trusted; any
// doubt falls back to the requested amount with zero fees.
func (p ExtractionPolicy) Decide(requested decimal.Decimal, res *extract.Result, err error) Deduction {
	switch {
	case err != nil:
		return fallback(requested, fmt.Sprintf("extraction failed: %v", err))
	case res == nil:
		return fallback(requested, "extraction returned no result")
	case !res.Success:
		return fallback(requested, "extraction unsuccessful")
	case res.Confidence < p.MinConfidence:
		return fallback(requested, fmt.Sprintf("confidence %.2f below %.2f", res.Confidence, p.MinConfidence))
	}
	if _, err := ledger.CheckAmount("amount", res.Amount); err != nil {
		return fallback(requested, fmt.Sprintf("extracted amount rejected: %v", err))
	}
	if _, err := ledger.CheckNonNegative("fees", res.Fees); err != nil {
		return fallback(requested, fmt.Sprintf("extracted fees rejected: %v", err))
	}

	if p.AmountTolerancePercent.IsPositive() {
		limit := ledger.Percent(requested, p.AmountTolerancePercent)
		if res.Amount.Sub(requested).Abs().GreaterThan(limit) {
			return fallback(requested, fmt.Sprintf("extracted amount %s outside %s%% of requested %s",
				money(res.Amount), p.AmountTolerancePercent.String(), money(requested)))
		}
	}

	return Deduction{
		Amount:     ledger.Round(res.Amount),
		Fees:       ledger.Round(res.Fees),
		Reference:  res.Reference,
		Confidence: res.Confidence,
		Extracted:  true,
	}
}

// deduction runs the extractor (outside any storage transaction) and
// applies the policy. Without a receipt the requested amount is used.
func (s *Service) deduction(ctx context.Context, orderID ledger.OrderID, requested decimal.Decimal, receiptRef string) Deduction {
	if receiptRef == "" {
		return fallback(requested, "")
	}

	if s.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Policy.Timeout)
		defer cancel()
	}

	res, err := s.Extractor.Extract(ctx, receiptRef)
	d := s.Policy.Decide(requested, res, err)
	if !d.Extracted {
		s.Logger.Warn("receipt not used, falling back to requested amount",
			"component", "lifecycle",
			"order_id", orderID,
			"reason", d.Note)
	}
	return d
}
