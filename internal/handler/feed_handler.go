package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/service"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/response"
)

// FeedHandler handles the forum and report feed endpoints.
type FeedHandler struct {
	feed *service.FeedService
}

// NewFeedHandler constructs a feed handler.
func NewFeedHandler(feed *service.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// ForumComments godoc
// @Summary Page the global forum
// @Tags Feeds
// @Produce json
// @Param cursor query int false "Comment id to page from"
// @Param direction query string false "older or newer"
// @Success 200 {object} response.Envelope
// @Router /forum/comments [get]
func (h *FeedHandler) ForumComments(c *gin.Context) {
	cursor, older := feedParams(c)
	page, err := h.feed.ForumComments(c.Request.Context(), service.FeedRequest{Cursor: cursor, Older: older})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}

// AddForumComment godoc
// @Summary Post on the global forum
// @Tags Feeds
// @Accept json
// @Produce json
// @Param payload body service.AddForumCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /forum/comments [post]
func (h *FeedHandler) AddForumComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddForumCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	comment, err := h.feed.AddForumComment(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Reports godoc
// @Summary Page the caller's reports
// @Tags Feeds
// @Produce json
// @Param cursor query int false "Report id to page from"
// @Param direction query string false "older or newer"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *FeedHandler) Reports(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cursor, older := feedParams(c)

	page, err := h.feed.Reports(c.Request.Context(), claims.UserID, service.FeedRequest{Cursor: cursor, Older: older})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}

// CreateReport godoc
// @Summary File a report for the administrators
// @Tags Feeds
// @Accept json
// @Produce json
// @Param payload body service.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *FeedHandler) CreateReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	report, err := h.feed.CreateReport(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}
