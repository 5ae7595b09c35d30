package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soundcu/finance-copilot/internal/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFilterEligible(t *testing.T) {
	card := model.Product{ID: 1, Kind: model.ProductCreditCard, Name: "Cashback Card", MinCreditScore: intPtr(700), IsActive: true}
	loan := model.Product{ID: 2, Kind: model.ProductLoan, Name: "Personal Loan", MinIncome: floatPtr(40000), MaxDTIRatio: floatPtr(0.45), IsActive: true}
	open := model.Product{ID: 3, Kind: model.ProductSavingsAccount, Name: "Savings", IsActive: true}
	inactive := model.Product{ID: 4, Kind: model.ProductCheckingAccount, Name: "Old Checking", IsActive: false}

	catalog := []model.Product{card, loan, open, inactive}

	tests := []struct {
		name    string
		profile model.FinancialProfile
		wantIDs []int64
	}{
		{
			name:    "empty profile qualifies for everything active",
			profile: model.FinancialProfile{},
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "low credit score excluded from card",
			profile: model.FinancialProfile{CreditScore: intPtr(650)},
			wantIDs: []int64{2, 3},
		},
		{
			name:    "high credit score included",
			profile: model.FinancialProfile{CreditScore: intPtr(750)},
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "income below loan minimum",
			profile: model.FinancialProfile{AnnualIncome: floatPtr(30000)},
			wantIDs: []int64{1, 3},
		},
		{
			name:    "dti over loan maximum",
			profile: model.FinancialProfile{DTIRatio: floatPtr(0.5)},
			wantIDs: []int64{1, 3},
		},
		{
			name:    "all thresholds satisfied",
			profile: model.FinancialProfile{CreditScore: intPtr(720), AnnualIncome: floatPtr(80000), DTIRatio: floatPtr(0.3)},
			wantIDs: []int64{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEligible(tt.profile, catalog)

			ids := make([]int64, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterEligible_EmptyCatalog(t *testing.T) {
	got := FilterEligible(model.FinancialProfile{}, nil)
	assert.Empty(t, got)
}
