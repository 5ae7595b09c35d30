package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soundcu/finance-copilot/internal/middleware"
	"github.com/soundcu/finance-copilot/internal/model"
	"github.com/soundcu/finance-copilot/internal/repository"
	"github.com/soundcu/finance-copilot/internal/service"
)

type stubService struct {
	registerID  int64
	registerErr error
	authID      int64
	authErr     error

	member     *model.Member
	goal       *service.GoalWithMetrics
	goals      []service.GoalWithMetrics
	goalErr    error
	impacts    []model.GoalImpact
	total      int
	warnings   int
	drafts     []model.RecommendationDraft
	products   []model.Product
	trackedTyp string
	deleted    bool
}

func (s *stubService) RegisterMember(_ context.Context, _, _, _, _ string) (int64, error) {
	return s.registerID, s.registerErr
}

func (s *stubService) AuthenticateMember(_ context.Context, _, _ string) (int64, error) {
	return s.authID, s.authErr
}

func (s *stubService) GetMember(_ context.Context, _ int64) (*model.Member, error) {
	if s.member == nil {
		return nil, repository.ErrMemberNotFound
	}
	return s.member, nil
}

func (s *stubService) UpdateProfile(_ context.Context, _ int64, firstName, lastName string, profile model.FinancialProfile) (*model.Member, error) {
	m := *s.member
	m.FirstName = firstName
	m.LastName = lastName
	m.Profile = profile
	return &m, nil
}

func (s *stubService) CreateGoal(_ context.Context, goal model.Goal) (*service.GoalWithMetrics, error) {
	if s.goalErr != nil {
		return nil, s.goalErr
	}
	goal.ID = 1
	goal.Status = model.GoalStatusActive
	goal.CreatedAt = time.Now()
	return &service.GoalWithMetrics{Goal: goal}, nil
}

func (s *stubService) GetGoal(_ context.Context, _, _ int64) (*service.GoalWithMetrics, error) {
	if s.goal == nil {
		return nil, repository.ErrGoalNotFound
	}
	return s.goal, nil
}

func (s *stubService) GetGoals(_ context.Context, _ int64, _ model.GoalStatus) ([]service.GoalWithMetrics, error) {
	return s.goals, s.goalErr
}

func (s *stubService) UpdateGoal(_ context.Context, _, _ int64, _ service.GoalPatch) (*service.GoalWithMetrics, error) {
	if s.goal == nil {
		return nil, repository.ErrGoalNotFound
	}
	return s.goal, nil
}

func (s *stubService) DeleteGoal(_ context.Context, _, _ int64) error {
	if s.goal == nil {
		return repository.ErrGoalNotFound
	}
	s.deleted = true
	return nil
}

func (s *stubService) AnalyzeImpact(_ context.Context, _ int64, _ float64) ([]model.GoalImpact, int, int, error) {
	return s.impacts, s.total, s.warnings, nil
}

func (s *stubService) Recommendations(_ context.Context, _ int64, _ model.PurchaseContext) ([]model.RecommendationDraft, error) {
	return s.drafts, nil
}

func (s *stubService) Products(_ context.Context, _ model.ProductKind) ([]model.Product, error) {
	return s.products, nil
}

func (s *stubService) TrackRecommendationEvent(_ context.Context, _ int64, eventType string, _ any) error {
	s.trackedTyp = eventType
	return nil
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, *middleware.AuthMiddleware) {
	t.Helper()
	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(svc, zap.NewNop(), auth)
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)
	return srv, auth
}

func authCookie(auth *middleware.AuthMiddleware, memberID int64) *http.Cookie {
	rec := httptest.NewRecorder()
	auth.SetAuthCookie(rec, memberID)
	return rec.Result().Cookies()[0]
}

func doJSON(t *testing.T, method, url string, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		svc        *stubService
		wantStatus int
		wantCookie bool
	}{
		{
			name:       "success",
			body:       `{"email":"sam@example.com","password":"password123","first_name":"Sam","last_name":"Lee"}`,
			svc:        &stubService{registerID: 1},
			wantStatus: http.StatusCreated,
			wantCookie: true,
		},
		{
			name:       "duplicate email",
			body:       `{"email":"sam@example.com","password":"password123","first_name":"Sam","last_name":"Lee"}`,
			svc:        &stubService{registerErr: repository.ErrMemberExists},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid email",
			body:       `{"email":"not-an-email","password":"password123","first_name":"Sam","last_name":"Lee"}`,
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short password",
			body:       `{"email":"sam@example.com","password":"short","first_name":"Sam","last_name":"Lee"}`,
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{not json`,
			svc:        &stubService{},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.svc)

			resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/register", tt.body, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCookie {
				require.NotEmpty(t, resp.Cookies())
				assert.Equal(t, "auth_token", resp.Cookies()[0].Name)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubService{authID: 7})

		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/login",
			`{"email":"sam@example.com","password":"password123"}`, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Cookies())
	})

	t.Run("bad credentials", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubService{authErr: errors.New("invalid credentials")})

		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/login",
			`{"email":"sam@example.com","password":"wrong-password"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown member", func(t *testing.T) {
		srv, _ := newTestServer(t, &stubService{authErr: repository.ErrMemberNotFound})

		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/login",
			`{"email":"nobody@example.com","password":"password123"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/member/profile"},
		{http.MethodGet, "/api/member/goals"},
		{http.MethodPost, "/api/member/goals/impact-analysis"},
		{http.MethodPost, "/api/member/recommendations"},
	} {
		resp := doJSON(t, route.method, srv.URL+route.path, "{}", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, route.path)
	}
}

func TestAuthRejectsForgedCookie(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	forged := &http.Cookie{Name: "auth_token", Value: "1.deadbeef"}
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/member/profile", "", forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetProfile(t *testing.T) {
	svc := &stubService{member: &model.Member{
		ID: 7, Email: "sam@example.com", FirstName: "Sam", LastName: "Lee",
		Profile:   model.FinancialProfile{CreditScore: intPtr(720)},
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	srv, auth := newTestServer(t, svc)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/member/profile", "", authCookie(auth, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got memberResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "sam@example.com", got.Email)
	require.NotNil(t, got.Profile.CreditScore)
	assert.Equal(t, 720, *got.Profile.CreditScore)
	assert.Equal(t, "2025-05-01T12:00:00Z", got.CreatedAt)
}

func TestUpdateProfile(t *testing.T) {
	svc := &stubService{member: &model.Member{
		ID: 7, Email: "sam@example.com", FirstName: "Sam", LastName: "Lee",
	}}
	srv, auth := newTestServer(t, svc)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/member/profile",
		`{"credit_score":680,"annual_income":55000}`, authCookie(auth, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got memberResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Sam", got.FirstName)
	require.NotNil(t, got.Profile.CreditScore)
	assert.Equal(t, 680, *got.Profile.CreditScore)
	require.NotNil(t, got.Profile.AnnualIncome)
	assert.Equal(t, 55000.0, *got.Profile.AnnualIncome)
}

func TestCreateGoal(t *testing.T) {
	srv, auth := newTestServer(t, &stubService{})
	cookie := authCookie(auth, 7)

	t.Run("created", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/goals",
			`{"type":"savings","name":"Vacation","target_amount":1000}`, cookie)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var got goalResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "savings", got.Kind)
		assert.Equal(t, "Vacation", got.Name)
		assert.Equal(t, "active", got.Status)
	})

	t.Run("unknown kind", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/goals",
			`{"type":"lottery","name":"Jackpot","target_amount":1000}`, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("non-positive target", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/goals",
			`{"type":"savings","name":"Vacation","target_amount":0}`, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestGetGoals(t *testing.T) {
	days := 30
	svc := &stubService{goals: []service.GoalWithMetrics{
		{
			Goal: model.Goal{
				ID: 1, Kind: model.GoalSavings, Name: "Vacation", Status: model.GoalStatusActive,
				TargetAmount: 1000, CurrentAmount: 250, CreatedAt: time.Now(),
			},
			Metrics: model.GoalMetrics{ProgressPercentage: 25, DaysRemaining: &days},
		},
	}}
	srv, auth := newTestServer(t, svc)
	cookie := authCookie(auth, 7)

	t.Run("list", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/member/goals", "", cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got goalListResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 1, got.Total)
		require.Len(t, got.Goals, 1)
		assert.Equal(t, 25.0, got.Goals[0].ProgressPercentage)
		require.NotNil(t, got.Goals[0].DaysRemaining)
		assert.Equal(t, 30, *got.Goals[0].DaysRemaining)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/member/goals?status=bogus", "", cookie)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGoalNotFound(t *testing.T) {
	srv, auth := newTestServer(t, &stubService{})
	cookie := authCookie(auth, 7)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/member/goals/99", "", cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/member/goals/99", `{"name":"x"}`, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/member/goals/99", "", cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteGoal(t *testing.T) {
	svc := &stubService{goal: &service.GoalWithMetrics{Goal: model.Goal{ID: 5}}}
	srv, auth := newTestServer(t, svc)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/member/goals/5", "", authCookie(auth, 7))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, svc.deleted)
}

func TestAnalyzeImpact(t *testing.T) {
	svc := &stubService{
		impacts: []model.GoalImpact{{
			GoalID: 1, GoalName: "Dining Out", ImpactPercentage: 50,
			IsWarning: true, Description: "This purchase would put you $35.00 over your Dining Out limit",
		}},
		total:    2,
		warnings: 1,
	}
	srv, auth := newTestServer(t, svc)
	cookie := authCookie(auth, 7)

	t.Run("success", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/goals/impact-analysis",
			`{"purchase_amount":150}`, cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got impactResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 2, got.TotalGoals)
		assert.Equal(t, 1, got.WarningsCount)
		require.Len(t, got.AffectedGoals, 1)
		assert.True(t, got.AffectedGoals[0].IsWarning)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/goals/impact-analysis",
			`{"purchase_amount":-5}`, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestGetRecommendations(t *testing.T) {
	cashback := 1.5
	svc := &stubService{drafts: []model.RecommendationDraft{{
		Kind:     model.RecommendationCashback,
		Priority: 3,
		Message: model.RecommendationMessage{
			Title:          "Earn Cashback",
			CashbackAmount: &cashback,
		},
	}}}
	srv, auth := newTestServer(t, svc)
	cookie := authCookie(auth, 7)

	t.Run("success", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/recommendations",
			`{"purchase_context":{"amount":75,"merchant":"Coffee Shop"}}`, cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got recommendationsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got.Recommendations, 1)
		assert.Equal(t, model.RecommendationCashback, got.Recommendations[0].Kind)
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		emptySrv, emptyAuth := newTestServer(t, &stubService{})

		resp := doJSON(t, http.MethodPost, emptySrv.URL+"/api/member/recommendations",
			`{"purchase_context":{"amount":75}}`, authCookie(emptyAuth, 7))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		assert.JSONEq(t, `[]`, string(raw["recommendations"]))
	})

	t.Run("missing amount", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/recommendations",
			`{"purchase_context":{"merchant":"Coffee Shop"}}`, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestTrackEvent(t *testing.T) {
	svc := &stubService{}
	srv, auth := newTestServer(t, svc)
	cookie := authCookie(auth, 7)

	t.Run("recorded", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/recommendations/track",
			`{"event_type":"clicked","context":{"title":"Earn Cashback"}}`, cookie)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "clicked", svc.trackedTyp)
	})

	t.Run("missing event type", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/member/recommendations/track",
			`{"context":{}}`, cookie)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetProducts(t *testing.T) {
	rate := 16.99
	svc := &stubService{products: []model.Product{{
		ID: 1, Kind: model.ProductCreditCard, Name: "Cashback Rewards Card",
		BaseRate: &rate, IsActive: true,
	}}}
	srv, _ := newTestServer(t, svc)

	t.Run("public without auth", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/products", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got []model.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "Cashback Rewards Card", got[0].Name)
	})

	t.Run("invalid type filter", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/api/products?type=mortgage", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func intPtr(v int) *int { return &v }
