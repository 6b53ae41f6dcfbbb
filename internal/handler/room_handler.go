package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urjc-apps/checkin-api/internal/service"
	appErrors "github.com/urjc-apps/checkin-api/pkg/errors"
	"github.com/urjc-apps/checkin-api/pkg/response"
)

// RoomHandler handles room endpoints.
type RoomHandler struct {
	schedule *service.ScheduleService
}

// NewRoomHandler constructs a room handler.
func NewRoomHandler(schedule *service.ScheduleService) *RoomHandler {
	return &RoomHandler{schedule: schedule}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.schedule.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}

// Free godoc
// @Summary List rooms free during an interval
// @Tags Rooms
// @Produce json
// @Param start query string true "Interval start (RFC3339)"
// @Param end query string true "Interval end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /rooms/free [get]
func (h *RoomHandler) Free(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start"))
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid end"))
		return
	}
	if !end.After(start) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must be after start"))
		return
	}

	rooms, err := h.schedule.FreeRooms(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}
