// Package service implements the business logic of the finance co-pilot.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soundcu/finance-copilot/internal/cache"
	"github.com/soundcu/finance-copilot/internal/engine"
	"github.com/soundcu/finance-copilot/internal/model"
	"github.com/soundcu/finance-copilot/internal/repository"
)

// Repository describes the data-access contract used by the service.
type Repository interface {
	Close() error
	CreateMember(ctx context.Context, email string, passwordHash []byte, firstName, lastName string) (int64, error)
	GetMemberByEmail(ctx context.Context, email string) (*model.Member, error)
	GetMemberByID(ctx context.Context, id int64) (*model.Member, error)
	UpdateMember(ctx context.Context, id int64, firstName, lastName string, profile model.FinancialProfile) error
	CreateGoal(ctx context.Context, goal model.Goal) (*model.Goal, error)
	GetGoal(ctx context.Context, memberID, goalID int64) (*model.Goal, error)
	GetGoalsByMember(ctx context.Context, memberID int64, status model.GoalStatus) ([]model.Goal, error)
	ActiveGoalsByMember(ctx context.Context, memberID int64) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, goal model.Goal) error
	DeleteGoal(ctx context.Context, memberID, goalID int64) error
	ActiveProducts(ctx context.Context, kind model.ProductKind) ([]model.Product, error)
	RecordEvent(ctx context.Context, memberID int64, eventType string, data []byte) error
}

// Service holds the business logic of the finance co-pilot.
type Service struct {
	repo        Repository
	recommender *engine.Recommender
	catalog     cache.Cache
}

// NewService creates a service. The draft source and catalog cache are both
// optional; nil disables the external recommendation path and the cache.
func NewService(repo Repository, source engine.DraftSource, catalog cache.Cache) *Service {
	return &Service{
		repo:        repo,
		recommender: engine.NewRecommender(source),
		catalog:     catalog,
	}
}

// Close closes the service's resources.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterMember creates a new member account.
func (s *Service) RegisterMember(ctx context.Context, email, password, firstName, lastName string) (int64, error) {
	hashed := hashPassword(email, password)
	id, err := s.repo.CreateMember(ctx, email, hashed, firstName, lastName)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			return 0, repository.ErrMemberExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateMember verifies the credentials and returns the member ID.
func (s *Service) AuthenticateMember(ctx context.Context, email, password string) (int64, error) {
	m, err := s.repo.GetMemberByEmail(ctx, email)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(email, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(m.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return m.ID, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// GetMember returns the member with the given ID.
func (s *Service) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	return s.repo.GetMemberByID(ctx, id)
}

// UpdateProfile saves the member's names and financial profile and returns
// the updated member.
func (s *Service) UpdateProfile(ctx context.Context, id int64, firstName, lastName string, profile model.FinancialProfile) (*model.Member, error) {
	if err := s.repo.UpdateMember(ctx, id, firstName, lastName, profile); err != nil {
		return nil, err
	}
	return s.repo.GetMemberByID(ctx, id)
}

// GoalWithMetrics is a goal decorated with its derived figures.
type GoalWithMetrics struct {
	model.Goal
	Metrics model.GoalMetrics
}

func decorate(g model.Goal) GoalWithMetrics {
	return GoalWithMetrics{Goal: g, Metrics: engine.Metrics(g, time.Now())}
}

// CreateGoal stores a new active goal for the member.
func (s *Service) CreateGoal(ctx context.Context, goal model.Goal) (*GoalWithMetrics, error) {
	goal.Status = model.GoalStatusActive
	if goal.Priority == 0 {
		goal.Priority = 1
	}

	created, err := s.repo.CreateGoal(ctx, goal)
	if err != nil {
		return nil, err
	}

	g := decorate(*created)
	return &g, nil
}

// GetGoal returns one of the member's goals with metrics.
func (s *Service) GetGoal(ctx context.Context, memberID, goalID int64) (*GoalWithMetrics, error) {
	goal, err := s.repo.GetGoal(ctx, memberID, goalID)
	if err != nil {
		return nil, err
	}
	g := decorate(*goal)
	return &g, nil
}

// GetGoals returns the member's goals with metrics, optionally filtered by
// status, highest priority first.
func (s *Service) GetGoals(ctx context.Context, memberID int64, status model.GoalStatus) ([]GoalWithMetrics, error) {
	goals, err := s.repo.GetGoalsByMember(ctx, memberID, status)
	if err != nil {
		return nil, err
	}

	res := make([]GoalWithMetrics, 0, len(goals))
	for _, g := range goals {
		res = append(res, decorate(g))
	}
	return res, nil
}

// GoalPatch carries the optional fields of a goal update. Nil fields are
// left unchanged.
type GoalPatch struct {
	Name            *string
	Description     *string
	TargetAmount    *float64
	CurrentAmount   *float64
	CurrentSpending *float64
	Deadline        *time.Time
	Status          *model.GoalStatus
	Priority        *int
}

// UpdateGoal applies the patch to one of the member's goals. Moving a goal
// to completed stamps completed_at once; the engine itself never flips goal
// status.
func (s *Service) UpdateGoal(ctx context.Context, memberID, goalID int64, patch GoalPatch) (*GoalWithMetrics, error) {
	goal, err := s.repo.GetGoal(ctx, memberID, goalID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		goal.Name = *patch.Name
	}
	if patch.Description != nil {
		goal.Description = *patch.Description
	}
	if patch.TargetAmount != nil {
		goal.TargetAmount = *patch.TargetAmount
	}
	if patch.CurrentAmount != nil {
		goal.CurrentAmount = *patch.CurrentAmount
	}
	if patch.CurrentSpending != nil {
		goal.CurrentSpending = *patch.CurrentSpending
	}
	if patch.Deadline != nil {
		goal.Deadline = patch.Deadline
	}
	if patch.Status != nil {
		goal.Status = *patch.Status
	}
	if patch.Priority != nil {
		goal.Priority = *patch.Priority
	}

	if goal.Status == model.GoalStatusCompleted && goal.CompletedAt == nil {
		now := time.Now()
		goal.CompletedAt = &now
	}

	if err := s.repo.UpdateGoal(ctx, *goal); err != nil {
		return nil, err
	}

	g := decorate(*goal)
	return &g, nil
}

// DeleteGoal removes one of the member's goals.
func (s *Service) DeleteGoal(ctx context.Context, memberID, goalID int64) error {
	return s.repo.DeleteGoal(ctx, memberID, goalID)
}

// AnalyzeImpact projects the purchase amount onto every active goal of the
// member. Returns the per-goal impacts, the total number of active goals and
// the number of warnings.
func (s *Service) AnalyzeImpact(ctx context.Context, memberID int64, amount float64) ([]model.GoalImpact, int, int, error) {
	goals, err := s.repo.ActiveGoalsByMember(ctx, memberID)
	if err != nil {
		return nil, 0, 0, err
	}

	impacts, warnings := engine.AnalyzePurchase(amount, goals)
	return impacts, len(goals), warnings, nil
}

// Recommendations returns the ranked recommendation drafts for the purchase.
func (s *Service) Recommendations(ctx context.Context, memberID int64, purchase model.PurchaseContext) ([]model.RecommendationDraft, error) {
	member, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	goals, err := s.repo.ActiveGoalsByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.Products(ctx, "")
	if err != nil {
		return nil, err
	}

	return s.recommender.Recommend(ctx, *member, purchase, goals, catalog), nil
}

// Products returns the active catalog, optionally filtered by kind, reading
// through the catalog cache when one is configured.
func (s *Service) Products(ctx context.Context, kind model.ProductKind) ([]model.Product, error) {
	key := "catalog:" + string(kind)

	if s.catalog != nil {
		if data, ok := s.catalog.Get(ctx, key); ok {
			var products []model.Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := s.repo.ActiveProducts(ctx, kind)
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		if data, err := json.Marshal(products); err == nil {
			s.catalog.Set(ctx, key, data)
		}
	}

	return products, nil
}

// TrackRecommendationEvent stores one recommendation analytics event.
func (s *Service) TrackRecommendationEvent(ctx context.Context, memberID int64, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	return s.repo.RecordEvent(ctx, memberID, "recommendation_"+eventType, payload)
}
