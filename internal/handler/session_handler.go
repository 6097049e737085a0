package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cramplan/cramplan-api/internal/dto"
	"github.com/cramplan/cramplan-api/internal/service"
	appErrors "github.com/cramplan/cramplan-api/pkg/errors"
	"github.com/cramplan/cramplan-api/pkg/response"
)

// SessionHandler handles study session and blocked day endpoints.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// List godoc
// @Summary List study sessions
// @Tags Sessions
// @Produce json
// @Param examId query string false "Filter by exam"
// @Param from query string false "Earliest session date (YYYY-MM-DD)"
// @Param to query string false "Latest session date (YYYY-MM-DD)"
// @Param completed query bool false "Filter by completion"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.SessionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	sessions, err := h.service.List(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Complete godoc
// @Summary Complete study session
// @Description Mark a session done; completed hours count toward the exam
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.CompleteSessionRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CompleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	session, err := h.service.Complete(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ListBlockedDays godoc
// @Summary List blocked days
// @Tags BlockedDays
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /blocked-days [get]
func (h *SessionHandler) ListBlockedDays(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	days, err := h.service.ListBlockedDays(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// CreateBlockedDay godoc
// @Summary Block a day
// @Description Mark a day off-limits for scheduling
// @Tags BlockedDays
// @Accept json
// @Produce json
// @Param payload body dto.CreateBlockedDayRequest true "Blocked day payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /blocked-days [post]
func (h *SessionHandler) CreateBlockedDay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateBlockedDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	day, err := h.service.CreateBlockedDay(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, day)
}

// DeleteBlockedDay godoc
// @Summary Unblock a day
// @Tags BlockedDays
// @Produce json
// @Param id path string true "Blocked day ID"
// @Success 204
// @Router /blocked-days/{id} [delete]
func (h *SessionHandler) DeleteBlockedDay(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteBlockedDay(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
