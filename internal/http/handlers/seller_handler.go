// README: Seller order status updates.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/order"
)

type SellerHandler struct {
	orders *order.Service
}

func NewSellerHandler(orders *order.Service) *SellerHandler {
	return &SellerHandler{orders: orders}
}

type sellerStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus sets one seller order's status. When all seller orders of the
// parent agree, the parent order status follows.
func (h *SellerHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid seller order id")
		return
	}
	var req sellerStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}

	so, err := h.orders.UpdateSellerStatus(c.Request.Context(), id, order.Status(req.Status))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellerOrder": so})
}
