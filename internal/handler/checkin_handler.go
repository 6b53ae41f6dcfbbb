package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/service"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/response"
)

// CheckInHandler handles check-in endpoints.
type CheckInHandler struct {
	service *service.CheckInService
}

// NewCheckInHandler constructs a check-in handler.
func NewCheckInHandler(svc *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{service: svc}
}

// Create godoc
// @Summary Submit a check-in for an open lesson
// @Tags CheckIns
// @Accept json
// @Produce json
// @Param payload body service.SubmitCheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /checkins [post]
func (h *CheckInHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	checkin, err := h.service.Submit(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checkin)
}

// ListByLesson godoc
// @Summary List a lesson's check-ins
// @Tags CheckIns
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/checkins [get]
func (h *CheckInHandler) ListByLesson(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	checkins, err := h.service.ListByLesson(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkins)
}
