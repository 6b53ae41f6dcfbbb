package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/service"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/response"
)

// SubjectHandler handles subject and enrollment endpoints.
type SubjectHandler struct {
	subjects    *service.SubjectService
	enrollments *service.EnrollmentService
	schedule    *service.ScheduleService
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(subjects *service.SubjectService, enrollments *service.EnrollmentService, schedule *service.ScheduleService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, enrollments: enrollments, schedule: schedule}
}

// List godoc
// @Summary List subjects
// @Tags Subjects
// @Produce json
// @Param seminars query bool false "Only seminars"
// @Param mine query bool false "Only subjects the caller is enrolled in"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := service.SubjectListFilter{
		SeminarsOnly: c.Query("seminars") == "true",
		Mine:         c.Query("mine") == "true",
	}
	subjects, err := h.subjects.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects)
}

// Get godoc
// @Summary Get subject by id
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	subject, err := h.subjects.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subject)
}

// Create godoc
// @Summary Create subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.subjects.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ToggleEnrollment godoc
// @Summary Toggle seminar enrollment
// @Description Enrolls the caller, or withdraws them if already enrolled
// @Tags Subjects
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /subjects/{id}/enrollment [post]
func (h *SubjectHandler) ToggleEnrollment(c *gin.Context) {
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

	result, err := h.enrollments.Toggle(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ListTimetables godoc
// @Summary List a subject's weekly timetable
// @Tags Timetables
// @Produce json
// @Param id path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/timetables [get]
func (h *SubjectHandler) ListTimetables(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	timetables, err := h.schedule.ListTimetables(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables)
}

// CreateTimetable godoc
// @Summary Add a weekly timetable slot
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body service.TimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id}/timetables [post]
func (h *SubjectHandler) CreateTimetable(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.TimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tt, err := h.schedule.CreateTimetable(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tt)
}

// UpdateTimetable godoc
// @Summary Update a weekly timetable slot
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path int true "Timetable ID"
// @Param payload body service.TimetableRequest true "Timetable payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id} [put]
func (h *SubjectHandler) UpdateTimetable(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.TimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tt, err := h.schedule.EditTimetable(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt)
}

// CreateLesson godoc
// @Summary Schedule an extra lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path int true "Subject ID"
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects/{id}/lessons [post]
func (h *SubjectHandler) CreateLesson(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lesson, err := h.schedule.CreateLesson(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}
