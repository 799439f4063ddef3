package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/internal/service"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

type coverOperations interface {
	CreateSeries(ctx context.Context, req service.CreateCoverRequest) (*models.CoverSeries, error)
	List(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.CoverOccurrenceDetail, error)
	UpdateOccurrence(ctx context.Context, id string, req service.UpdateOccurrenceRequest) (*models.CoverOccurrenceDetail, error)
	Move(ctx context.Context, id string, req service.MoveOccurrenceRequest) (*models.CoverOccurrenceDetail, error)
	SetState(ctx context.Context, id string, req service.OccurrenceStateRequest) (*models.CoverOccurrenceDetail, error)
	AssignTeacher(ctx context.Context, id string, req service.AssignTeacherRequest) (*models.CoverOccurrenceDetail, error)
	UpdateAssignmentStatus(ctx context.Context, assignmentID string, req service.AssignmentStatusRequest) (*models.TeacherCoverAssignment, error)
	RemoveAssignment(ctx context.Context, assignmentID string) error
	DeleteOccurrence(ctx context.Context, id string) error
}

// CoverHandler exposes cover occurrence and assignment endpoints.
type CoverHandler struct {
	covers coverOperations
}

// NewCoverHandler constructs a CoverHandler.
func NewCoverHandler(covers coverOperations) *CoverHandler {
	return &CoverHandler{covers: covers}
}

// Create godoc
// @Summary Quick add a recurring cover
// @Description Creates a cover rule with its generated occurrences and optional teacher assignments
// @Tags Covers
// @Accept json
// @Produce json
// @Param payload body service.CreateCoverRequest true "Cover payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /covers [post]
func (h *CoverHandler) Create(c *gin.Context) {
	var req service.CreateCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid cover payload"))
		return
	}
	series, err := h.covers.CreateSeries(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, series)
}

// List godoc
// @Summary List cover occurrences
// @Tags Covers
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param school_id query string false "School ID"
// @Param club_id query string false "Club ID"
// @Param teacher_id query string false "Teacher ID"
// @Param rule_id query string false "Cover rule ID"
// @Param status query string false "not_started, in_progress or completed"
// @Param priority query string false "low, medium or high"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /covers [get]
func (h *CoverHandler) List(c *gin.Context) {
	filter := models.CoverOccurrenceFilter{
		SchoolID:  c.Query("school_id"),
		ClubID:    c.Query("club_id"),
		TeacherID: c.Query("teacher_id"),
		RuleID:    c.Query("rule_id"),
		Status:    models.OccurrenceStatus(c.Query("status")),
		Priority:  models.CoverPriority(c.Query("priority")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.covers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get cover occurrence
// @Tags Covers
// @Produce json
// @Param id path string true "Occurrence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /covers/{id} [get]
func (h *CoverHandler) Get(c *gin.Context) {
	item, err := h.covers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Edit a cover occurrence or its series
// @Description update_type=single edits the occurrence and its assignment; update_type=series edits the shared rule
// @Tags Covers
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.UpdateOccurrenceRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /covers/{id} [put]
func (h *CoverHandler) Update(c *gin.Context) {
	var req service.UpdateOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid cover payload"))
		return
	}
	item, err := h.covers.UpdateOccurrence(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Move godoc
// @Summary Move occurrence to another date
// @Tags Covers
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.MoveOccurrenceRequest true "New date"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /covers/{id}/move [patch]
func (h *CoverHandler) Move(c *gin.Context) {
	var req service.MoveOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid move payload"))
		return
	}
	item, err := h.covers.Move(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// SetState godoc
// @Summary Quick status or priority update
// @Tags Covers
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.OccurrenceStateRequest true "State payload"
// @Success 200 {object} response.Envelope
// @Router /covers/{id}/state [patch]
func (h *CoverHandler) SetState(c *gin.Context) {
	var req service.OccurrenceStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid state payload"))
		return
	}
	item, err := h.covers.SetState(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Assign godoc
// @Summary Assign a teacher to an occurrence
// @Description Replaces the occurrence's assignment
// @Tags Covers
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /covers/{id}/assignment [put]
func (h *CoverHandler) Assign(c *gin.Context) {
	var req service.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	item, err := h.covers.AssignTeacher(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateAssignment godoc
// @Summary Record a teacher's response to an assignment
// @Tags Covers
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body service.AssignmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [patch]
func (h *CoverHandler) UpdateAssignment(c *gin.Context) {
	var req service.AssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	assignment, err := h.covers.UpdateAssignmentStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// RemoveAssignment godoc
// @Summary Remove an assignment
// @Tags Covers
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *CoverHandler) RemoveAssignment(c *gin.Context) {
	if err := h.covers.RemoveAssignment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a cover occurrence
// @Tags Covers
// @Param id path string true "Occurrence ID"
// @Success 204
// @Router /covers/{id} [delete]
func (h *CoverHandler) Delete(c *gin.Context) {
	if err := h.covers.DeleteOccurrence(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CoverRuleHandler exposes the cover rules manager.
type CoverRuleHandler struct {
	rules *service.CoverRuleService
}

// NewCoverRuleHandler constructs a CoverRuleHandler.
func NewCoverRuleHandler(rules *service.CoverRuleService) *CoverRuleHandler {
	return &CoverRuleHandler{rules: rules}
}

// List godoc
// @Summary List cover rules
// @Tags Cover Rules
// @Produce json
// @Param school_id query string false "School ID"
// @Param club_id query string false "Club ID"
// @Param status query string false "active or inactive"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cover-rules [get]
func (h *CoverRuleHandler) List(c *gin.Context) {
	filter := models.CoverRuleFilter{
		SchoolID: c.Query("school_id"),
		ClubID:   c.Query("club_id"),
		Status:   models.RecordStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	rules, pagination, err := h.rules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, pagination)
}

// Get godoc
// @Summary Get cover rule
// @Tags Cover Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /cover-rules/{id} [get]
func (h *CoverRuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Create cover rule with occurrences
// @Tags Cover Rules
// @Accept json
// @Produce json
// @Param payload body service.CreateCoverRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /cover-rules [post]
func (h *CoverRuleHandler) Create(c *gin.Context) {
	var req service.CreateCoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rule payload"))
		return
	}
	series, err := h.rules.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, series)
}

// Update godoc
// @Summary Update cover rule pattern
// @Tags Cover Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.UpdateRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cover-rules/{id} [put]
func (h *CoverRuleHandler) Update(c *gin.Context) {
	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rule payload"))
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Extend godoc
// @Summary Add occurrences after the latest one
// @Tags Cover Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.ExtendRuleRequest true "Extension payload"
// @Success 201 {object} response.Envelope
// @Router /cover-rules/{id}/extend [post]
func (h *CoverRuleHandler) Extend(c *gin.Context) {
	var req service.ExtendRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid extension payload"))
		return
	}
	occurrences, err := h.rules.Extend(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, occurrences)
}

// Delete godoc
// @Summary Delete cover rule
// @Description Rejected while occurrences exist unless cascade=true
// @Tags Cover Rules
// @Param id path string true "Rule ID"
// @Param cascade query bool false "Also delete occurrences and assignments"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /cover-rules/{id} [delete]
func (h *CoverRuleHandler) Delete(c *gin.Context) {
	cascade, _ := strconv.ParseBool(c.DefaultQuery("cascade", "false"))
	if err := h.rules.Delete(c.Request.Context(), c.Param("id"), cascade); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
