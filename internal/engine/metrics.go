package engine

import (
	"time"

	"github.com/soundcu/finance-copilot/internal/model"
)

// Metrics derives the progress percentage and days remaining for a goal.
// Spending-limit goals measure progress against current spending, all other
// kinds against the current amount. Progress is clamped to [0, 100] and a
// non-positive target yields 0. DaysRemaining is nil without a deadline and
// never negative.
func Metrics(goal model.Goal, now time.Time) model.GoalMetrics {
	var m model.GoalMetrics

	if goal.TargetAmount > 0 {
		base := goal.CurrentAmount
		if goal.Kind == model.GoalSpendingLimit {
			base = goal.CurrentSpending
		}
		pct := base / goal.TargetAmount * 100
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
		m.ProgressPercentage = pct
	}

	if goal.Deadline != nil {
		days := int(goal.Deadline.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		m.DaysRemaining = &days
	}

	return m
}
