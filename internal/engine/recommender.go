package engine

import (
	"context"

	"github.com/soundcu/finance-copilot/internal/model"
)

// contextSchemaVersion tags the summary payload handed to external draft
// sources so their wire format can evolve independently of the entities.
const contextSchemaVersion = 1

// maxSummaryProducts caps the eligible products included in a summary.
const maxSummaryProducts = 5

// MemberSummary is the profile slice of a context summary.
type MemberSummary struct {
	Name    string                 `json:"name"`
	Profile model.FinancialProfile `json:"financial_profile"`
}

// GoalSummary is the goal snapshot included in a context summary.
type GoalSummary struct {
	Kind     model.GoalKind `json:"type"`
	Name     string         `json:"name"`
	Target   float64        `json:"target"`
	Current  float64        `json:"current"`
	Spending float64        `json:"spending"`
}

// ProductSummary is the catalog slice of a context summary.
type ProductSummary struct {
	Name string            `json:"name"`
	Kind model.ProductKind `json:"type"`
	Rate *float64          `json:"rate,omitempty"`
}

// ContextSummary is the typed snapshot of one recommendation request that a
// DraftSource serializes for the external generator.
type ContextSummary struct {
	SchemaVersion int                   `json:"schema_version"`
	Member        MemberSummary         `json:"member"`
	Purchase      model.PurchaseContext `json:"purchase"`
	Goals         []GoalSummary         `json:"goals"`
	Products      []ProductSummary      `json:"products"`
}

// NewContextSummary assembles the summary for a request, keeping at most
// five eligible products.
func NewContextSummary(member model.Member, purchase model.PurchaseContext, goals []model.Goal, eligible []model.Product) ContextSummary {
	cs := ContextSummary{
		SchemaVersion: contextSchemaVersion,
		Member: MemberSummary{
			Name:    member.FirstName + " " + member.LastName,
			Profile: member.Profile,
		},
		Purchase: purchase,
	}
	for _, g := range goals {
		cs.Goals = append(cs.Goals, GoalSummary{
			Kind:     g.Kind,
			Name:     g.Name,
			Target:   g.TargetAmount,
			Current:  g.CurrentAmount,
			Spending: g.CurrentSpending,
		})
	}
	for i, p := range eligible {
		if i == maxSummaryProducts {
			break
		}
		cs.Products = append(cs.Products, ProductSummary{
			Name: p.Name,
			Kind: p.Kind,
			Rate: p.BaseRate,
		})
	}
	return cs
}

// DraftSource supplies externally generated recommendation drafts. A source
// absorbs its own failures: it returns an empty list instead of an error, so
// callers always have the rules cascade as a fallback. The eligible slice is
// the full filter output; sources use it to resolve product references.
type DraftSource interface {
	TryGenerate(ctx context.Context, summary ContextSummary, eligible []model.Product) []model.RecommendationDraft
}

// Recommender composes the eligibility filter, an optional external draft
// source and the rules cascade into the final ranked recommendation list.
type Recommender struct {
	source DraftSource
}

// NewRecommender creates a recommender. A nil source disables the external
// path entirely, leaving the deterministic rules cascade.
func NewRecommender(source DraftSource) *Recommender {
	return &Recommender{source: source}
}

// Recommend produces at most MaxDrafts ranked drafts for the purchase. When
// the external source yields drafts they fully supersede the rules path for
// this call; the two sources are never merged.
func (r *Recommender) Recommend(ctx context.Context, member model.Member, purchase model.PurchaseContext, goals []model.Goal, catalog []model.Product) []model.RecommendationDraft {
	eligible := FilterEligible(member.Profile, catalog)

	if r.source != nil {
		summary := NewContextSummary(member, purchase, goals, eligible)
		if drafts := r.source.TryGenerate(ctx, summary, eligible); len(drafts) > 0 {
			return Rank(drafts)
		}
	}

	return Generate(purchase, goals, eligible)
}
