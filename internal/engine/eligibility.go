// Package engine implements the recommendation and goal-impact engine:
// product eligibility filtering, goal metrics, purchase impact analysis and
// ranked recommendation generation. All functions are pure and safe for
// concurrent use.
package engine

import "github.com/soundcu/finance-copilot/internal/model"

// FilterEligible returns the active catalog products the profile qualifies
// for. A threshold whose profile counterpart is unknown counts as satisfied:
// absence of data never disqualifies. Output order follows catalog order.
func FilterEligible(profile model.FinancialProfile, catalog []model.Product) []model.Product {
	eligible := make([]model.Product, 0, len(catalog))
	for _, p := range catalog {
		if !p.IsActive {
			continue
		}
		if profile.CreditScore != nil && p.MinCreditScore != nil && *profile.CreditScore < *p.MinCreditScore {
			continue
		}
		if profile.AnnualIncome != nil && p.MinIncome != nil && *profile.AnnualIncome < *p.MinIncome {
			continue
		}
		if profile.DTIRatio != nil && p.MaxDTIRatio != nil && *profile.DTIRatio > *p.MaxDTIRatio {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}
