package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/internal/service"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

// SchoolHandler exposes school and club endpoints.
type SchoolHandler struct {
	schools *service.SchoolService
	clubs   *service.ClubService
}

// NewSchoolHandler constructs a SchoolHandler.
func NewSchoolHandler(schools *service.SchoolService, clubs *service.ClubService) *SchoolHandler {
	return &SchoolHandler{schools: schools, clubs: clubs}
}

// ListSchools godoc
// @Summary List schools
// @Tags Schools
// @Produce json
// @Param search query string false "Search by name"
// @Param status query string false "active or inactive"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (school_name,status,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) ListSchools(c *gin.Context) {
	filter := models.SchoolFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    models.RecordStatus(c.Query("status")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	schools, pagination, err := h.schools.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// GetSchool godoc
// @Summary Get school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) GetSchool(c *gin.Context) {
	school, err := h.schools.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// CreateSchool godoc
// @Summary Create school
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body service.SchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) CreateSchool(c *gin.Context) {
	var req service.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid school payload"))
		return
	}
	school, err := h.schools.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// UpdateSchool godoc
// @Summary Update school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body service.SchoolRequest true "School payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [put]
func (h *SchoolHandler) UpdateSchool(c *gin.Context) {
	var req service.SchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid school payload"))
		return
	}
	school, err := h.schools.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// DeleteSchool godoc
// @Summary Delete school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schools/{id} [delete]
func (h *SchoolHandler) DeleteSchool(c *gin.Context) {
	if err := h.schools.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListClubs godoc
// @Summary List clubs
// @Tags Clubs
// @Produce json
// @Param school_id query string false "Filter by school"
// @Param search query string false "Search by name or code"
// @Param status query string false "active or inactive"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /clubs [get]
func (h *SchoolHandler) ListClubs(c *gin.Context) {
	filter := models.ClubFilter{
		SchoolID:  c.Query("school_id"),
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    models.RecordStatus(c.Query("status")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	clubs, pagination, err := h.clubs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clubs, pagination)
}

// ListSchoolClubs godoc
// @Summary List clubs of a school
// @Tags Clubs
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{id}/clubs [get]
func (h *SchoolHandler) ListSchoolClubs(c *gin.Context) {
	if _, err := h.schools.Get(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ClubFilter{SchoolID: c.Param("id"), Status: models.RecordStatus(c.Query("status"))}
	filter.Page, filter.PageSize = pageParams(c)

	clubs, pagination, err := h.clubs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clubs, pagination)
}

// GetClub godoc
// @Summary Get club
// @Tags Clubs
// @Produce json
// @Param id path string true "Club ID"
// @Success 200 {object} response.Envelope
// @Router /clubs/{id} [get]
func (h *SchoolHandler) GetClub(c *gin.Context) {
	club, err := h.clubs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, club, nil)
}

// CreateClub godoc
// @Summary Create club
// @Tags Clubs
// @Accept json
// @Produce json
// @Param payload body service.ClubRequest true "Club payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /clubs [post]
func (h *SchoolHandler) CreateClub(c *gin.Context) {
	var req service.ClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid club payload"))
		return
	}
	club, err := h.clubs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, club)
}

// UpdateClub godoc
// @Summary Update club
// @Tags Clubs
// @Accept json
// @Produce json
// @Param id path string true "Club ID"
// @Param payload body service.ClubRequest true "Club payload"
// @Success 200 {object} response.Envelope
// @Router /clubs/{id} [put]
func (h *SchoolHandler) UpdateClub(c *gin.Context) {
	var req service.ClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid club payload"))
		return
	}
	club, err := h.clubs.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, club, nil)
}

// DeleteClub godoc
// @Summary Delete club
// @Tags Clubs
// @Param id path string true "Club ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /clubs/{id} [delete]
func (h *SchoolHandler) DeleteClub(c *gin.Context) {
	if err := h.clubs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
