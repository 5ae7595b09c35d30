// Package handler contains the HTTP handlers of the co-pilot API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/soundcu/finance-copilot/internal/middleware"
	"github.com/soundcu/finance-copilot/internal/model"
	"github.com/soundcu/finance-copilot/internal/repository"
	"github.com/soundcu/finance-copilot/internal/service"
	"github.com/soundcu/finance-copilot/internal/validation"
)

// Service defines the business-logic contract used by the HTTP handlers.
type Service interface {
	RegisterMember(ctx context.Context, email, password, firstName, lastName string) (int64, error)
	AuthenticateMember(ctx context.Context, email, password string) (int64, error)
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	UpdateProfile(ctx context.Context, id int64, firstName, lastName string, profile model.FinancialProfile) (*model.Member, error)
	CreateGoal(ctx context.Context, goal model.Goal) (*service.GoalWithMetrics, error)
	GetGoal(ctx context.Context, memberID, goalID int64) (*service.GoalWithMetrics, error)
	GetGoals(ctx context.Context, memberID int64, status model.GoalStatus) ([]service.GoalWithMetrics, error)
	UpdateGoal(ctx context.Context, memberID, goalID int64, patch service.GoalPatch) (*service.GoalWithMetrics, error)
	DeleteGoal(ctx context.Context, memberID, goalID int64) error
	AnalyzeImpact(ctx context.Context, memberID int64, amount float64) ([]model.GoalImpact, int, int, error)
	Recommendations(ctx context.Context, memberID int64, purchase model.PurchaseContext) ([]model.RecommendationDraft, error)
	Products(ctx context.Context, kind model.ProductKind) ([]model.Product, error)
	TrackRecommendationEvent(ctx context.Context, memberID int64, eventType string, data any) error
}

// Handler implements the HTTP handlers of the co-pilot API.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler instance.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register handles new member registration and signs the member in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidEmail(req.Email) || len(req.Password) < 8 || req.FirstName == "" || req.LastName == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	memberID, err := h.service.RegisterMember(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register member error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, memberID)
	w.WriteHeader(http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates the member and sets the auth cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	memberID, err := h.service.AuthenticateMember(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login member error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, memberID)
	w.WriteHeader(http.StatusOK)
}

type memberResponse struct {
	ID        int64                  `json:"id"`
	Email     string                 `json:"email"`
	FirstName string                 `json:"first_name"`
	LastName  string                 `json:"last_name"`
	Profile   model.FinancialProfile `json:"financial_profile"`
	CreatedAt string                 `json:"created_at"`
}

func toMemberResponse(m *model.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Profile:   m.Profile,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// GetProfile returns the current member's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	member, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		h.logger.Error("get profile error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

type updateProfileRequest struct {
	FirstName    *string  `json:"first_name"`
	LastName     *string  `json:"last_name"`
	AnnualIncome *float64 `json:"annual_income"`
	CreditScore  *int     `json:"credit_score"`
	DTIRatio     *float64 `json:"dti_ratio"`
}

// UpdateProfile updates the current member's names and financial profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	current, err := h.service.GetMember(r.Context(), memberID)
	if err != nil {
		h.logger.Error("load member error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	firstName := current.FirstName
	lastName := current.LastName
	profile := current.Profile
	if req.FirstName != nil {
		firstName = *req.FirstName
	}
	if req.LastName != nil {
		lastName = *req.LastName
	}
	if req.AnnualIncome != nil {
		profile.AnnualIncome = req.AnnualIncome
	}
	if req.CreditScore != nil {
		profile.CreditScore = req.CreditScore
	}
	if req.DTIRatio != nil {
		profile.DTIRatio = req.DTIRatio
	}

	member, err := h.service.UpdateProfile(r.Context(), memberID, firstName, lastName, profile)
	if err != nil {
		h.logger.Error("update profile error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(member))
}

type goalResponse struct {
	ID                 int64   `json:"id"`
	Kind               string  `json:"type"`
	Name               string  `json:"name"`
	Description        string  `json:"description,omitempty"`
	TargetAmount       float64 `json:"target_amount"`
	CurrentAmount      float64 `json:"current_amount"`
	CurrentSpending    float64 `json:"current_spending"`
	Deadline           *string `json:"deadline,omitempty"`
	Status             string  `json:"status"`
	Priority           int     `json:"priority"`
	CreatedAt          string  `json:"created_at"`
	CompletedAt        *string `json:"completed_at,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage"`
	DaysRemaining      *int    `json:"days_remaining"`
}

func toGoalResponse(g service.GoalWithMetrics) goalResponse {
	resp := goalResponse{
		ID:                 g.ID,
		Kind:               string(g.Kind),
		Name:               g.Name,
		Description:        g.Description,
		TargetAmount:       g.TargetAmount,
		CurrentAmount:      g.CurrentAmount,
		CurrentSpending:    g.CurrentSpending,
		Status:             string(g.Status),
		Priority:           g.Priority,
		CreatedAt:          g.CreatedAt.Format(time.RFC3339),
		ProgressPercentage: g.Metrics.ProgressPercentage,
		DaysRemaining:      g.Metrics.DaysRemaining,
	}
	if g.Deadline != nil {
		v := g.Deadline.Format(time.RFC3339)
		resp.Deadline = &v
	}
	if g.CompletedAt != nil {
		v := g.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

type goalListResponse struct {
	Goals []goalResponse `json:"goals"`
	Total int            `json:"total"`
}

// GetGoals returns the member's goals decorated with progress metrics.
func (h *Handler) GetGoals(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !validation.IsValidGoalStatus(status) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	goals, err := h.service.GetGoals(r.Context(), memberID, model.GoalStatus(status))
	if err != nil {
		h.logger.Error("get goals error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := goalListResponse{Goals: make([]goalResponse, 0, len(goals))}
	for _, g := range goals {
		resp.Goals = append(resp.Goals, toGoalResponse(g))
	}
	resp.Total = len(resp.Goals)

	writeJSON(w, http.StatusOK, resp)
}

type createGoalRequest struct {
	Kind          string     `json:"type"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount float64    `json:"current_amount"`
	Deadline      *time.Time `json:"deadline"`
	Priority      int        `json:"priority"`
}

// CreateGoal creates a new goal for the member.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidGoalKind(req.Kind) || req.Name == "" || !validation.IsValidAmount(req.TargetAmount) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	goal, err := h.service.CreateGoal(r.Context(), model.Goal{
		MemberID:      memberID,
		Kind:          model.GoalKind(req.Kind),
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		Priority:      req.Priority,
	})
	if err != nil {
		h.logger.Error("create goal error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toGoalResponse(*goal))
}

func goalIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "goalID"), 10, 64)
	return id, err == nil && id > 0
}

// GetGoal returns one goal with metrics.
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	goalID, ok := goalIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	goal, err := h.service.GetGoal(r.Context(), memberID, goalID)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get goal error", zap.Error(err), zap.Int64("goalID", goalID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toGoalResponse(*goal))
}

type updateGoalRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	TargetAmount    *float64   `json:"target_amount"`
	CurrentAmount   *float64   `json:"current_amount"`
	CurrentSpending *float64   `json:"current_spending"`
	Deadline        *time.Time `json:"deadline"`
	Status          *string    `json:"status"`
	Priority        *int       `json:"priority"`
}

// UpdateGoal applies a partial update to one goal.
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	goalID, ok := goalIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Status != nil && !validation.IsValidGoalStatus(*req.Status) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if req.TargetAmount != nil && !validation.IsValidAmount(*req.TargetAmount) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	patch := service.GoalPatch{
		Name:            req.Name,
		Description:     req.Description,
		TargetAmount:    req.TargetAmount,
		CurrentAmount:   req.CurrentAmount,
		CurrentSpending: req.CurrentSpending,
		Deadline:        req.Deadline,
		Priority:        req.Priority,
	}
	if req.Status != nil {
		status := model.GoalStatus(*req.Status)
		patch.Status = &status
	}

	goal, err := h.service.UpdateGoal(r.Context(), memberID, goalID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("update goal error", zap.Error(err), zap.Int64("goalID", goalID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toGoalResponse(*goal))
}

// DeleteGoal removes one goal.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	goalID, ok := goalIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteGoal(r.Context(), memberID, goalID); err != nil {
		if errors.Is(err, repository.ErrGoalNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete goal error", zap.Error(err), zap.Int64("goalID", goalID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type impactRequest struct {
	PurchaseAmount float64 `json:"purchase_amount"`
}

type impactResponse struct {
	AffectedGoals []model.GoalImpact `json:"affected_goals"`
	TotalGoals    int                `json:"total_goals"`
	WarningsCount int                `json:"warnings_count"`
}

// AnalyzeImpact projects a hypothetical purchase onto the member's active goals.
func (h *Handler) AnalyzeImpact(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req impactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidAmount(req.PurchaseAmount) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	impacts, total, warnings, err := h.service.AnalyzeImpact(r.Context(), memberID, req.PurchaseAmount)
	if err != nil {
		h.logger.Error("impact analysis error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, impactResponse{
		AffectedGoals: impacts,
		TotalGoals:    total,
		WarningsCount: warnings,
	})
}

type recommendationsRequest struct {
	PurchaseContext model.PurchaseContext `json:"purchase_context"`
}

type recommendationsResponse struct {
	Recommendations []model.RecommendationDraft `json:"recommendations"`
}

// GetRecommendations returns ranked recommendation drafts for a purchase.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidAmount(req.PurchaseContext.Amount) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	drafts, err := h.service.Recommendations(r.Context(), memberID, req.PurchaseContext)
	if err != nil {
		h.logger.Error("recommendations error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if drafts == nil {
		drafts = []model.RecommendationDraft{}
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: drafts})
}

type trackEventRequest struct {
	EventType string          `json:"event_type"`
	Context   json.RawMessage `json:"context"`
}

// TrackEvent records a recommendation analytics event.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req trackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.EventType == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.TrackRecommendationEvent(r.Context(), memberID, req.EventType, req.Context); err != nil {
		h.logger.Error("track event error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetProducts returns the active catalog, optionally filtered by kind.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	if kind != "" && !validation.IsValidProductKind(kind) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	products, err := h.service.Products(r.Context(), model.ProductKind(kind))
	if err != nil {
		h.logger.Error("get products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}
