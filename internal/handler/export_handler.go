package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/service"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

type exporter interface {
	Entities() []string
	TableConfig(entity string) (*dto.TableConfig, error)
	Export(ctx context.Context, entity string, query service.ExportQuery) (*service.ExportFile, error)
}

// ExportHandler serves table descriptors and file exports.
type ExportHandler struct {
	exports exporter
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(exports exporter) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Tables godoc
// @Summary List exportable tables
// @Tags Exports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tables [get]
func (h *ExportHandler) Tables(c *gin.Context) {
	configs := make([]dto.TableConfig, 0, len(h.exports.Entities()))
	for _, entity := range h.exports.Entities() {
		cfg, err := h.exports.TableConfig(entity)
		if err != nil {
			response.Error(c, err)
			return
		}
		configs = append(configs, *cfg)
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// Table godoc
// @Summary Column configuration of one table
// @Tags Exports
// @Produce json
// @Param entity path string true "schools, clubs, teachers or covers"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tables/{entity} [get]
func (h *ExportHandler) Table(c *gin.Context) {
	cfg, err := h.exports.TableConfig(c.Param("entity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Export godoc
// @Summary Export a table
// @Tags Exports
// @Produce octet-stream
// @Param entity path string true "schools, clubs, teachers or covers"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Param columns query string false "Comma separated column keys"
// @Param search query string false "Search text"
// @Param status query string false "Status filter"
// @Param school_id query string false "School ID"
// @Param club_id query string false "Club ID"
// @Param teacher_id query string false "Teacher ID"
// @Param blocked query bool false "Teacher block flag"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param sort query string false "Sort column"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/{entity} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	query := service.ExportQuery{
		Format:    c.Query("format"),
		Columns:   splitList(c.Query("columns")),
		Search:    strings.TrimSpace(c.Query("search")),
		Status:    c.Query("status"),
		SchoolID:  c.Query("school_id"),
		ClubID:    c.Query("club_id"),
		TeacherID: c.Query("teacher_id"),
		Blocked:   boolQuery(c, "blocked"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	var err error
	if query.From, err = dateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if query.To, err = dateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.exports.Export(c.Request.Context(), c.Param("entity"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
