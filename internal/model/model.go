// Package model contains the domain entities of the finance co-pilot.
package model

import "time"

// Member is a registered credit-union member who owns goals and a financial profile.
type Member struct {
	ID           int64
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	Profile      FinancialProfile
	CreatedAt    time.Time
}

// FinancialProfile holds the self-reported financials used for product eligibility.
// Nil fields mean the member has not provided the figure.
type FinancialProfile struct {
	AnnualIncome *float64 `json:"annual_income,omitempty"`
	CreditScore  *int     `json:"credit_score,omitempty"`
	DTIRatio     *float64 `json:"dti_ratio,omitempty"`
}

// GoalKind describes what a goal tracks.
type GoalKind string

const (
	GoalSavings       GoalKind = "savings"
	GoalSpendingLimit GoalKind = "spending_limit"
	GoalDebtPayoff    GoalKind = "debt_payoff"
)

// GoalStatus describes the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// Goal is a tracked financial target with progress state.
type Goal struct {
	ID              int64
	MemberID        int64
	Kind            GoalKind
	Name            string
	Description     string
	TargetAmount    float64
	CurrentAmount   float64
	CurrentSpending float64
	Deadline        *time.Time
	Status          GoalStatus
	Priority        int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// GoalMetrics carries the derived figures a goal is decorated with.
type GoalMetrics struct {
	ProgressPercentage float64 `json:"progress_percentage"`
	DaysRemaining      *int    `json:"days_remaining"`
}

// ProductKind describes a catalog product category.
type ProductKind string

const (
	ProductLoan            ProductKind = "loan"
	ProductCreditCard      ProductKind = "credit_card"
	ProductSavingsAccount  ProductKind = "savings_account"
	ProductCheckingAccount ProductKind = "checking_account"
)

// Product is a catalog item with eligibility thresholds.
// Nil thresholds place no constraint on that figure. BaseRate is APR for
// loans and cards, APY for deposit accounts.
type Product struct {
	ID             int64       `json:"id"`
	Kind           ProductKind `json:"kind"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	BaseRate       *float64    `json:"base_rate,omitempty"`
	ApplicationURL string      `json:"application_url,omitempty"`
	MinCreditScore *int        `json:"min_credit_score,omitempty"`
	MaxDTIRatio    *float64    `json:"max_dti_ratio,omitempty"`
	MinIncome      *float64    `json:"min_income,omitempty"`
	IsActive       bool        `json:"is_active"`
}

// PurchaseContext describes the prospective purchase a request is about.
type PurchaseContext struct {
	Amount   float64 `json:"amount"`
	Merchant string  `json:"merchant"`
	Category string  `json:"category,omitempty"`
	URL      string  `json:"url,omitempty"`
}

// RecommendationKind describes the kind of a recommendation draft.
type RecommendationKind string

const (
	RecommendationLoan       RecommendationKind = "loan"
	RecommendationCreditCard RecommendationKind = "credit_card"
	RecommendationAlert      RecommendationKind = "alert"
	RecommendationCashback   RecommendationKind = "cashback"
)

// RecommendationMessage is the member-facing content of a draft.
type RecommendationMessage struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	CTAText        string   `json:"cta_text,omitempty"`
	CTAURL         string   `json:"cta_url,omitempty"`
	Savings        string   `json:"savings,omitempty"`
	CashbackAmount *float64 `json:"cashback_amount,omitempty"`
	AlertType      string   `json:"alert_type,omitempty"`
}

// RecommendationImpact names the goal a draft relates to.
type RecommendationImpact struct {
	GoalID     int64   `json:"goal_id"`
	GoalName   string  `json:"goal_name"`
	Percentage float64 `json:"percentage"`
}

// RecommendationDraft is an unpersisted, ranked suggestion produced for one
// purchase request. Lower Priority is shown first.
type RecommendationDraft struct {
	Kind     RecommendationKind    `json:"type"`
	Priority int                   `json:"priority"`
	Product  *Product              `json:"product,omitempty"`
	Message  RecommendationMessage `json:"message"`
	Impact   *RecommendationImpact `json:"impact,omitempty"`
}

// GoalImpact projects how a hypothetical purchase would affect one goal.
type GoalImpact struct {
	GoalID           int64   `json:"goal_id"`
	GoalName         string  `json:"goal_name"`
	ImpactPercentage float64 `json:"impact_percentage"`
	NewAmount        float64 `json:"new_amount"`
	Remaining        float64 `json:"remaining"`
	IsWarning        bool    `json:"is_warning"`
	Description      string  `json:"description"`
}
