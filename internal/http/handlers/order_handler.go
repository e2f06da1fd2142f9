// README: Order handlers for placement, reads, and cancellation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/order"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	SellerID  string `json:"sellerId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	ImageURL  string `json:"imageUrl"`
	Category  string `json:"category"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type createOrderReq struct {
	CustomerID           string         `json:"customerId" binding:"required"`
	CustomerName         string         `json:"customerName" binding:"required"`
	CustomerPhone        string         `json:"customerPhone"`
	Address              string         `json:"address" binding:"required"`
	City                 string         `json:"city"`
	Area                 string         `json:"area"`
	Locality             string         `json:"locality"`
	PaymentMethod        string         `json:"paymentMethod"`
	DeliveryInstructions string         `json:"deliveryInstructions"`
	Items                []orderItemReq `json:"items" binding:"required,min=1,dive"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := order.CreateCommand{
		CustomerID:           req.CustomerID,
		CustomerName:         req.CustomerName,
		CustomerPhone:        req.CustomerPhone,
		Address:              req.Address,
		City:                 req.City,
		Area:                 req.Area,
		Locality:             req.Locality,
		PaymentMethod:        req.PaymentMethod,
		DeliveryInstructions: req.DeliveryInstructions,
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, order.ItemInput(it))
	}

	o, err := h.orders.Create(c.Request.Context(), cmd)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": o})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	items, err := h.orders.Items(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	sellers, err := h.orders.SellerOrders(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o, "items": items, "sellerOrders": sellers})
}

func (h *OrderHandler) List(c *gin.Context) {
	customerID := c.Query("customerId")
	if customerID == "" {
		writeError(c, http.StatusBadRequest, "customerId is required")
		return
	}
	orders, err := h.orders.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type cancelOrderReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid order id")
		return
	}
	var req cancelOrderReq
	_ = c.ShouldBindJSON(&req)

	if err := h.orders.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": order.StatusCancelled})
}
