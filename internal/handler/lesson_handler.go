package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/service"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/response"
)

// LessonHandler handles lesson endpoints.
type LessonHandler struct {
	schedule *service.ScheduleService
	stats    *service.StatsService
	feed     *service.FeedService
}

// NewLessonHandler constructs a lesson handler.
func NewLessonHandler(schedule *service.ScheduleService, stats *service.StatsService, feed *service.FeedService) *LessonHandler {
	return &LessonHandler{schedule: schedule, stats: stats, feed: feed}
}

// Get godoc
// @Summary Get lesson by id
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	lesson, err := h.schedule.GetLesson(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson)
}

// Update godoc
// @Summary Reschedule a lesson
// @Description Moves a lesson that has not started yet
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param payload body service.EditLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.EditLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.schedule.EditLesson(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson)
}

// Delete godoc
// @Summary Delete an extra lesson
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.schedule.DeleteLesson(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Attendance statistics for a lesson
// @Tags Lessons
// @Produce json
// @Param id path int true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lessons/{id}/stats [get]
func (h *LessonHandler) Stats(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.stats.LessonStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Comments godoc
// @Summary Page a lesson's comment wall
// @Tags Feeds
// @Produce json
// @Param id path int true "Lesson ID"
// @Param cursor query int false "Comment id to page from"
// @Param direction query string false "older or newer"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/comments [get]
func (h *LessonHandler) Comments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	cursor, older := feedParams(c)

	page, err := h.feed.LessonComments(c.Request.Context(), claims.UserID, claims.Role, id, service.FeedRequest{Cursor: cursor, Older: older})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}

// AddComment godoc
// @Summary Post on a lesson's comment wall
// @Tags Feeds
// @Accept json
// @Produce json
// @Param id path int true "Lesson ID"
// @Param payload body service.AddLessonCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /lessons/{id}/comments [post]
func (h *LessonHandler) AddComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AddLessonCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.LessonID = id

	comment, err := h.feed.AddLessonComment(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Feed godoc
// @Summary Page a subject's lessons by start time
// @Tags Feeds
// @Produce json
// @Param subject_id query int true "Subject ID"
// @Param cursor query int false "Lesson id to page from"
// @Param direction query string false "older or newer"
// @Success 200 {object} response.Envelope
// @Router /lessons/feed [get]
func (h *LessonHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	subjectID, err := strconv.ParseInt(c.Query("subject_id"), 10, 64)
	if err != nil || subjectID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject_id"))
		return
	}
	cursor, older := feedParams(c)

	page, err := h.feed.Lessons(c.Request.Context(), claims.UserID, claims.Role, subjectID, service.FeedRequest{Cursor: cursor, Older: older})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page)
}
