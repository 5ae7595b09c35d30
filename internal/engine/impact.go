package engine

import (
	"fmt"
	"math"

	"github.com/soundcu/finance-copilot/internal/model"
)

// Warning thresholds: a purchase consuming more than this share of the
// target flags the goal.
const (
	savingsWarnPercent = 10
	debtWarnPercent    = 5
)

// AnalyzePurchase computes, per goal, the impact of a hypothetical purchase
// of the given amount. Goals are evaluated independently and returned in the
// supplied order (callers pass active goals sorted by descending priority).
// The purchase is never committed: NewAmount stays at the goal's current
// amount, framing the purchase as opportunity cost. The second return value
// is the number of goals flagged with a warning.
func AnalyzePurchase(amount float64, goals []model.Goal) ([]model.GoalImpact, int) {
	impacts := make([]model.GoalImpact, 0, len(goals))
	warnings := 0

	for _, g := range goals {
		imp := model.GoalImpact{
			GoalID:    g.ID,
			GoalName:  g.Name,
			NewAmount: round2(g.CurrentAmount),
			Remaining: round2(g.TargetAmount - g.CurrentAmount),
		}

		pct := amount / g.TargetAmount * 100
		imp.ImpactPercentage = round2(pct)

		switch g.Kind {
		case model.GoalSpendingLimit:
			newSpending := g.CurrentSpending + amount
			remaining := g.TargetAmount - newSpending
			if remaining < 0 {
				remaining = 0
			}
			imp.Remaining = round2(remaining)

			if newSpending > g.TargetAmount {
				imp.IsWarning = true
				overage := newSpending - g.TargetAmount
				imp.Description = fmt.Sprintf("This purchase would put you $%.2f over your %s limit", overage, g.Name)
			} else {
				imp.Description = fmt.Sprintf("You'll have $%.2f remaining in your %s", remaining, g.Name)
			}

		case model.GoalSavings:
			if pct > savingsWarnPercent {
				imp.IsWarning = true
				imp.Description = fmt.Sprintf("This purchase is %.1f%% of your %s target", pct, g.Name)
			} else {
				imp.Description = fmt.Sprintf("Small impact on %s goal", g.Name)
			}

		case model.GoalDebtPayoff:
			if pct > debtWarnPercent {
				imp.IsWarning = true
				imp.Description = fmt.Sprintf("This amount could reduce your %s by %.1f%%", g.Name, pct)
			} else {
				imp.Description = fmt.Sprintf("Minimal impact on %s", g.Name)
			}
		}

		if imp.IsWarning {
			warnings++
		}
		impacts = append(impacts, imp)
	}

	return impacts, warnings
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
