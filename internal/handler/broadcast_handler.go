package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/internal/service"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
	"github.com/noah-isme/clubconnect-api/pkg/response"
)

type broadcastOperations interface {
	List(ctx context.Context, filter models.BroadcastFilter) ([]models.Broadcast, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Broadcast, error)
	Messages(ctx context.Context, id string) ([]models.Message, error)
	Create(ctx context.Context, req service.BroadcastRequest, createdBy string) (*models.Broadcast, error)
	Update(ctx context.Context, id string, req service.BroadcastRequest) (*models.Broadcast, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, id, teacherID string) (*dto.BroadcastPreview, error)
	Send(ctx context.Context, id string) (*dto.BroadcastReport, error)
	SendAsync(ctx context.Context, id string) (*models.Broadcast, error)
	Release(ctx context.Context, id string) (*models.Broadcast, error)
}

// BroadcastHandler exposes teacher email broadcasts.
type BroadcastHandler struct {
	broadcasts broadcastOperations
}

// NewBroadcastHandler constructs a BroadcastHandler.
func NewBroadcastHandler(broadcasts broadcastOperations) *BroadcastHandler {
	return &BroadcastHandler{broadcasts: broadcasts}
}

// List godoc
// @Summary List broadcasts
// @Tags Broadcasts
// @Produce json
// @Param status query string false "draft, scheduled, completed or failed"
// @Param search query string false "Search by subject"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /broadcasts [get]
func (h *BroadcastHandler) List(c *gin.Context) {
	filter := models.BroadcastFilter{
		Status: models.BroadcastStatus(c.Query("status")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.broadcasts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get broadcast
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Router /broadcasts/{id} [get]
func (h *BroadcastHandler) Get(c *gin.Context) {
	item, err := h.broadcasts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create broadcast draft
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param payload body service.BroadcastRequest true "Broadcast payload"
// @Success 201 {object} response.Envelope
// @Router /broadcasts [post]
func (h *BroadcastHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid broadcast payload"))
		return
	}
	item, err := h.broadcasts.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update broadcast draft
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param id path string true "Broadcast ID"
// @Param payload body service.BroadcastRequest true "Broadcast payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /broadcasts/{id} [put]
func (h *BroadcastHandler) Update(c *gin.Context) {
	var req service.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid broadcast payload"))
		return
	}
	item, err := h.broadcasts.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete broadcast
// @Tags Broadcasts
// @Param id path string true "Broadcast ID"
// @Success 204
// @Router /broadcasts/{id} [delete]
func (h *BroadcastHandler) Delete(c *gin.Context) {
	if err := h.broadcasts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Render a broadcast for one recipient
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Param teacher_id query string false "Sample recipient; defaults to the first recipient"
// @Success 200 {object} response.Envelope
// @Router /broadcasts/{id}/preview [get]
func (h *BroadcastHandler) Preview(c *gin.Context) {
	preview, err := h.broadcasts.Preview(c.Request.Context(), c.Param("id"), c.Query("teacher_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Send godoc
// @Summary Send broadcast now
// @Description Sends to every recipient and returns the delivery report; per-recipient failures do not fail the request
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /broadcasts/{id}/send [post]
func (h *BroadcastHandler) Send(c *gin.Context) {
	report, err := h.broadcasts.Send(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SendAsync godoc
// @Summary Queue broadcast for background delivery
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /broadcasts/{id}/send-async [post]
func (h *BroadcastHandler) SendAsync(c *gin.Context) {
	item, err := h.broadcasts.SendAsync(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, item)
}

// Release godoc
// @Summary Return a scheduled broadcast to draft
// @Description Recovers a broadcast whose queued send was lost
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /broadcasts/{id}/release [post]
func (h *BroadcastHandler) Release(c *gin.Context) {
	item, err := h.broadcasts.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Messages godoc
// @Summary Delivery log of a broadcast
// @Tags Broadcasts
// @Produce json
// @Param id path string true "Broadcast ID"
// @Success 200 {object} response.Envelope
// @Router /broadcasts/{id}/messages [get]
func (h *BroadcastHandler) Messages(c *gin.Context) {
	messages, err := h.broadcasts.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}
