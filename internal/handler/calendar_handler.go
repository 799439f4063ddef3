package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/middleware"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

type calendarReader interface {
	Events(ctx context.Context, query dto.CalendarQuery) (*dto.CalendarResponse, error)
	DayEvents(ctx context.Context, date time.Time, query dto.CalendarQuery) ([]dto.CalendarEvent, error)
}

// CalendarHandler serves the covers calendar.
type CalendarHandler struct {
	calendar calendarReader
}

// NewCalendarHandler constructs a CalendarHandler.
func NewCalendarHandler(calendar calendarReader) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Events godoc
// @Summary Calendar events for a visible range
// @Tags Calendar
// @Produce json
// @Param view query string false "day, week, month or agenda" default(week)
// @Param date query string false "Anchor date (YYYY-MM-DD)"
// @Param school_id query string false "School ID"
// @Param club_id query string false "Club ID"
// @Param teacher_id query string false "Teacher ID"
// @Param max_per_day query int false "Events shown per day before overflow"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	query, err := calendarQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.calendar.Events(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

// Day godoc
// @Summary All events of one day
// @Tags Calendar
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param school_id query string false "School ID"
// @Param club_id query string false "Club ID"
// @Param teacher_id query string false "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /calendar/days/{date} [get]
func (h *CalendarHandler) Day(c *gin.Context) {
	date, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		response.Error(c, bindError(err, "date must be YYYY-MM-DD"))
		return
	}
	query, err := calendarQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.calendar.DayEvents(c.Request.Context(), date, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

func calendarQuery(c *gin.Context) (dto.CalendarQuery, error) {
	query := dto.CalendarQuery{
		View:      dto.CalendarView(c.Query("view")),
		SchoolID:  c.Query("school_id"),
		ClubID:    c.Query("club_id"),
		TeacherID: c.Query("teacher_id"),
	}
	anchor, err := dateQuery(c, "date")
	if err != nil {
		return query, err
	}
	if anchor != nil {
		query.Date = *anchor
	}
	if raw := c.Query("max_per_day"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "max_per_day must be a number")
		}
		query.MaxPerDay = n
	}
	return query, nil
}
