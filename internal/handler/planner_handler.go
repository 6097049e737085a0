package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/service"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
	"github.com/cramplan/cramplan-api/pkg/response"
)

type planGenerator interface {
	Generate(ctx context.Context, userID string, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error)
	Apply(ctx context.Context, userID string, req dto.ApplyPlanRequest) (*dto.ApplyPlanResponse, error)
	Current(ctx context.Context, userID string) (*dto.CurrentPlanResponse, error)
}

// PlannerHandler handles plan generation endpoints.
type PlannerHandler struct {
	service planGenerator
}

// NewPlannerHandler constructs a planner handler.
func NewPlannerHandler(svc *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// Generate godoc
// @Summary Generate study plan proposal
// @Description Build a study calendar proposal for the user's upcoming exams
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Generation options"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/generate [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Apply godoc
// @Summary Apply study plan proposal
// @Description Persist a previously generated proposal as the active plan
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.ApplyPlanRequest true "Proposal reference"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/apply [post]
func (h *PlannerHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ApplyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	res, err := h.service.Apply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Current godoc
// @Summary Get current study plan
// @Description Returns the persisted upcoming sessions grouped by day
// @Tags Planner
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /planner/current [get]
func (h *PlannerHandler) Current(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
