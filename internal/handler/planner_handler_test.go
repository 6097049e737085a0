package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cramplan/cramplan-api/internal/dto"
	internalmiddleware "github.com/cramplan/cramplan-api/internal/middleware"
	"github.com/cramplan/cramplan-api/internal/models"
)

type plannerMock struct {
	capturedUserID   string
	capturedGenerate dto.GeneratePlanRequest
	capturedApply    dto.ApplyPlanRequest
}

func (m *plannerMock) Generate(ctx context.Context, userID string, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error) {
	m.capturedUserID = userID
	m.capturedGenerate = req
	return &dto.GeneratePlanResponse{ProposalID: "proposal-1"}, nil
}

func (m *plannerMock) Apply(ctx context.Context, userID string, req dto.ApplyPlanRequest) (*dto.ApplyPlanResponse, error) {
	m.capturedUserID = userID
	m.capturedApply = req
	return &dto.ApplyPlanResponse{SessionsCreated: 4}, nil
}

func (m *plannerMock) Current(ctx context.Context, userID string) (*dto.CurrentPlanResponse, error) {
	m.capturedUserID = userID
	return &dto.CurrentPlanResponse{}, nil
}

func withClaims(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleUser})
		c.Next()
	}
}

func TestPlannerGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerMock{}
	handler := &PlannerHandler{service: mockSvc}
	router := gin.New()
	router.Use(withClaims("user-1"))
	router.POST("/planner/generate", handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/planner/generate", bytes.NewReader([]byte(`{"dailyMaxHours":5}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", mockSvc.capturedUserID)
	require.NotNil(t, mockSvc.capturedGenerate.DailyMaxHours)
	require.Equal(t, 5.0, *mockSvc.capturedGenerate.DailyMaxHours)
}

func TestPlannerGenerateInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{service: &plannerMock{}}
	router := gin.New()
	router.Use(withClaims("user-1"))
	router.POST("/planner/generate", handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/planner/generate", bytes.NewReader([]byte(`{"dailyMaxHours":`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlannerGenerateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{service: &plannerMock{}}
	router := gin.New()
	router.POST("/planner/generate", handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/planner/generate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlannerApplyForwardsProposalID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerMock{}
	handler := &PlannerHandler{service: mockSvc}
	router := gin.New()
	router.Use(withClaims("user-2"))
	router.POST("/planner/apply", handler.Apply)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/planner/apply", bytes.NewReader([]byte(`{"proposalId":"proposal-9"}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-2", mockSvc.capturedUserID)
	require.Equal(t, "proposal-9", mockSvc.capturedApply.ProposalID)
}

func TestPlannerGenerateForbiddenForNonAdminGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PlannerHandler{service: &plannerMock{}}
	router := gin.New()
	router.Use(withClaims("user-1"))
	router.POST("/admin/planner/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin/planner/generate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlannerCurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &plannerMock{}
	handler := &PlannerHandler{service: mockSvc}
	router := gin.New()
	router.Use(withClaims("user-3"))
	router.GET("/planner/current", handler.Current)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/planner/current", nil)

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-3", mockSvc.capturedUserID)
}
