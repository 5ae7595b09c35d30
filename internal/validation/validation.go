// Package validation contains input validation helpers.
package validation

import (
	"strings"

	"github.com/soundcu/finance-copilot/internal/model"
)

// IsValidEmail checks the rough shape of an email address. Full RFC
// validation is left to the mail delivery path.
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}

// IsValidGoalKind reports whether s names a known goal kind.
func IsValidGoalKind(s string) bool {
	switch model.GoalKind(s) {
	case model.GoalSavings, model.GoalSpendingLimit, model.GoalDebtPayoff:
		return true
	}
	return false
}

// IsValidGoalStatus reports whether s names a known goal status.
func IsValidGoalStatus(s string) bool {
	switch model.GoalStatus(s) {
	case model.GoalStatusActive, model.GoalStatusCompleted, model.GoalStatusPaused, model.GoalStatusAbandoned:
		return true
	}
	return false
}

// IsValidProductKind reports whether s names a known product kind.
func IsValidProductKind(s string) bool {
	switch model.ProductKind(s) {
	case model.ProductLoan, model.ProductCreditCard, model.ProductSavingsAccount, model.ProductCheckingAccount:
		return true
	}
	return false
}

// IsValidAmount reports whether a purchase or target amount is acceptable.
func IsValidAmount(amount float64) bool {
	return amount > 0
}
