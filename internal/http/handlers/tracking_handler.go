// README: Tracking timeline handlers (admin append + customer view).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/order"
)

type TrackingHandler struct {
	orders *order.Service
}

func NewTrackingHandler(orders *order.Service) *TrackingHandler {
	return &TrackingHandler{orders: orders}
}

type appendTrackingReq struct {
	OrderID     int64  `json:"orderId" binding:"required"`
	Status      string `json:"status" binding:"required"`
	Description string `json:"description" binding:"required"`
	Location    string `json:"location"`
}

// Append is the admin path for recording a status change. The order status
// follows from the tracking status mapping; unmapped statuses only extend the
// timeline.
func (h *TrackingHandler) Append(c *gin.Context) {
	var req appendTrackingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "orderId, status and description are required")
		return
	}

	entry, err := h.orders.Track(c.Request.Context(), order.TrackCommand{
		OrderID:     req.OrderID,
		Status:      order.TrackingStatus(req.Status),
		Description: req.Description,
		Location:    req.Location,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tracking": entry})
}

func (h *TrackingHandler) Timeline(c *gin.Context) {
	id, ok := parseID(c.Query("orderId"))
	if !ok {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}

	view, err := h.orders.Tracking(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Recent serves the admin dashboard's "latest updates" widget: newest first,
// capped by limit (default 3).
func (h *TrackingHandler) Recent(c *gin.Context) {
	id, ok := parseID(c.Query("orderId"))
	if !ok {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	limit := 3
	if v, ok := parseID(c.DefaultQuery("limit", "3")); ok {
		limit = int(v)
	}

	entries, err := h.orders.Timeline(c.Request.Context(), id, true, limit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking": entries})
}
