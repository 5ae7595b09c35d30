package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/soundcu/finance-copilot/internal/model"
)

// MaxDrafts bounds every recommendation list returned to a member.
const MaxDrafts = 5

// Rule boundaries for the deterministic cascade, in dollars.
const (
	cashbackMin   = 50
	cashbackMax   = 500
	creditCardMin = 500
	creditCardMax = 5000
	loanMin       = 5000
)

const (
	cashbackRate   = 0.02
	loanTermMonths = 60
)

// draftRule emits zero or more drafts for one purchase evaluation. Rules are
// independent of each other; the cascade order only matters for tie-breaks
// between drafts of equal priority.
type draftRule func(purchase model.PurchaseContext, goals []model.Goal, eligible []model.Product) []model.RecommendationDraft

var defaultRules = []draftRule{
	spendingLimitRule,
	cashbackRule,
	creditCardRule,
	loanRule,
}

// Generate runs the rules cascade over the purchase and returns the ranked,
// size-bounded draft list. Deterministic for identical inputs.
func Generate(purchase model.PurchaseContext, goals []model.Goal, eligible []model.Product) []model.RecommendationDraft {
	var drafts []model.RecommendationDraft
	for _, rule := range defaultRules {
		drafts = append(drafts, rule(purchase, goals, eligible)...)
	}
	return Rank(drafts)
}

// Rank stable-sorts drafts by ascending priority (ties keep emission order)
// and truncates to MaxDrafts. The ordering is a user-facing contract.
func Rank(drafts []model.RecommendationDraft) []model.RecommendationDraft {
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].Priority < drafts[j].Priority
	})
	if len(drafts) > MaxDrafts {
		drafts = drafts[:MaxDrafts]
	}
	return drafts
}

// spendingLimitRule alerts on every active spending-limit goal the purchase
// would push over its target.
func spendingLimitRule(purchase model.PurchaseContext, goals []model.Goal, _ []model.Product) []model.RecommendationDraft {
	var drafts []model.RecommendationDraft
	for _, g := range goals {
		if g.Kind != model.GoalSpendingLimit || g.Status != model.GoalStatusActive {
			continue
		}
		projected := g.CurrentSpending + purchase.Amount
		if projected <= g.TargetAmount {
			continue
		}
		overage := projected - g.TargetAmount
		drafts = append(drafts, model.RecommendationDraft{
			Kind:     model.RecommendationAlert,
			Priority: 1,
			Message: model.RecommendationMessage{
				Title:       "Spending Limit Alert",
				Description: fmt.Sprintf("This purchase would exceed your '%s' limit by $%.2f", g.Name, overage),
				AlertType:   "warning",
				CTAText:     "Review Budget",
			},
			Impact: &model.RecommendationImpact{
				GoalID:     g.ID,
				GoalName:   g.Name,
				Percentage: round2(purchase.Amount / g.TargetAmount * 100),
			},
		})
	}
	return drafts
}

// cashbackRule nudges mid-size purchases toward the cashback card.
func cashbackRule(purchase model.PurchaseContext, _ []model.Goal, _ []model.Product) []model.RecommendationDraft {
	if purchase.Amount <= cashbackMin || purchase.Amount >= cashbackMax {
		return nil
	}
	cashback := round2(purchase.Amount * cashbackRate)
	return []model.RecommendationDraft{{
		Kind:     model.RecommendationCashback,
		Priority: 3,
		Message: model.RecommendationMessage{
			Title:          "Earn Cashback",
			Description:    fmt.Sprintf("Use your Sound CU Cashback Card to earn $%.2f back", cashback),
			CashbackAmount: &cashback,
			Savings:        fmt.Sprintf("$%.2f", cashback),
			CTAText:        "Learn More",
		},
	}}
}

// creditCardRule offers the first eligible card for medium purchases.
func creditCardRule(purchase model.PurchaseContext, _ []model.Goal, eligible []model.Product) []model.RecommendationDraft {
	if purchase.Amount < creditCardMin || purchase.Amount > creditCardMax {
		return nil
	}
	card := firstOfKind(eligible, model.ProductCreditCard)
	if card == nil {
		return nil
	}
	return []model.RecommendationDraft{{
		Kind:     model.RecommendationCreditCard,
		Priority: 2,
		Product:  card,
		Message: model.RecommendationMessage{
			Title:       fmt.Sprintf("Consider %s", card.Name),
			Description: card.Description,
			CTAText:     "Apply Now",
			CTAURL:      card.ApplicationURL,
		},
	}}
}

// loanRule offers the first eligible loan for large purchases, with a
// 60-month amortized payment estimate when the product carries a rate.
func loanRule(purchase model.PurchaseContext, _ []model.Goal, eligible []model.Product) []model.RecommendationDraft {
	if purchase.Amount <= loanMin {
		return nil
	}
	loan := firstOfKind(eligible, model.ProductLoan)
	if loan == nil {
		return nil
	}

	description := fmt.Sprintf("Spread this purchase over time with %s", loan.Name)
	if loan.BaseRate != nil && *loan.BaseRate > 0 {
		payment := monthlyPayment(purchase.Amount, *loan.BaseRate, loanTermMonths)
		description = fmt.Sprintf("Spread this over time. ~$%.2f/month at %.2f%% APR", payment, *loan.BaseRate)
	}

	return []model.RecommendationDraft{{
		Kind:     model.RecommendationLoan,
		Priority: 2,
		Product:  loan,
		Message: model.RecommendationMessage{
			Title:       fmt.Sprintf("Finance with %s", loan.Name),
			Description: description,
			CTAText:     "Get Pre-Qualified",
			CTAURL:      loan.ApplicationURL,
		},
	}}
}

func firstOfKind(products []model.Product, kind model.ProductKind) *model.Product {
	for i := range products {
		if products[i].Kind == kind {
			return &products[i]
		}
	}
	return nil
}

// monthlyPayment computes the fixed-rate annuity payment for a principal at
// the given annual percentage rate over n months. Callers must guard against
// a zero rate.
func monthlyPayment(principal, annualRate float64, months int) float64 {
	r := annualRate / 100 / 12
	n := float64(months)
	return principal * r / (1 - math.Pow(1+r, -n))
}
