package lifecycle_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

func TestExtractionPolicy_Decide(t *testing.T) {
	policy := lifecycle.ExtractionPolicy{
		MinConfidence:          0.7,
		AmountTolerancePercent: decimal.NewFromInt(10),
	}
	requested := dec("1000")

	tests := []struct {
		name       string
		res        *extract.Result
		err        error
		wantAmount string
		wantFees   string
		trusted    bool
	}{
		{
			name:       "trusted reading",
			res:        &extract.Result{Success: true, Amount: dec("995.50"), Fees: dec("4.50"), Confidence: 0.9},
			wantAmount: "995.50", wantFees: "4.50", trusted: true,
		},
		{
			name:       "service error",
			err:        errors.New("timeout"),
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "nil result",
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "unsuccessful",
			res:        &extract.Result{Success: false, Amount: dec("1000"), Confidence: 0.99},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "low confidence",
			res:        &extract.Result{Success: true, Amount: dec("990"), Confidence: 0.5},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "amount outside tolerance",
			res:        &extract.Result{Success: true, Amount: dec("1200"), Confidence: 0.9},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "amount at tolerance edge",
			res:        &extract.Result{Success: true, Amount: dec("900"), Confidence: 0.9},
			wantAmount: "900", wantFees: "0", trusted: true,
		},
		{
			name:       "negative fees",
			res:        &extract.Result{Success: true, Amount: dec("1000"), Fees: dec("-1"), Confidence: 0.9},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "zero amount",
			res:        &extract.Result{Success: true, Confidence: 0.9},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "sub-cent amount",
			res:        &extract.Result{Success: true, Amount: dec("0.004"), Confidence: 0.9},
			wantAmount: "1000", wantFees: "0",
		},
		{
			name:       "fees past the amount ceiling",
			res:        &extract.Result{Success: true, Amount: dec("1000"), Fees: dec("2000000000000000"), Confidence: 0.9},
			wantAmount: "1000", wantFees: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Decide(requested, tt.res, tt.err)
			assert.True(t, d.Amount.Equal(dec(tt.wantAmount)), "amount %s", d.Amount)
			assert.True(t, d.Fees.Equal(dec(tt.wantFees)), "fees %s", d.Fees)
			assert.Equal(t, tt.trusted, d.Extracted)
			if !tt.trusted {
				assert.NotEmpty(t, d.Note)
			}
		})
	}
}

func TestExtractionPolicy_ZeroToleranceDisablesAmountCheck(t *testing.T) {
	policy := lifecycle.ExtractionPolicy{MinConfidence: 0.5}
	d := policy.Decide(dec("100"), &extract.Result{Success: true, Amount: dec("250"), Confidence: 0.6}, nil)
	assert.True(t, d.Extracted)
	assert.True(t, d.Amount.Equal(dec("250")))
}

func TestExtractionPolicy_ZeroToleranceStillBoundsAmount(t *testing.T) {
	policy := lifecycle.ExtractionPolicy{MinConfidence: 0.5}
	d := policy.Decide(dec("100"), &extract.Result{Success: true, Amount: dec("100000000000000000"), Confidence: 0.9}, nil)
	assert.False(t, d.Extracted)
	assert.True(t, d.Amount.Equal(dec("100")))
	assert.Contains(t, d.Note, "extracted amount rejected")
}
