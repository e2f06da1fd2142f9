// README: Assignment and delivery agent handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/delivery"
)

type DeliveryHandler struct {
	delivery *delivery.Service
}

func NewDeliveryHandler(svc *delivery.Service) *DeliveryHandler {
	return &DeliveryHandler{delivery: svc}
}

type assignReq struct {
	OrderID         int64  `json:"orderId" binding:"required"`
	DeliveryAgentID *int64 `json:"deliveryAgentId"`
}

func (h *DeliveryHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	h.assign(c, delivery.AssignCommand{OrderID: req.OrderID, AgentID: req.DeliveryAgentID})
}

// AssignByQuery is the read-oriented admin convenience variant: same
// semantics as Assign, auto path only.
func (h *DeliveryHandler) AssignByQuery(c *gin.Context) {
	id, ok := parseID(c.Query("orderId"))
	if !ok {
		writeError(c, http.StatusBadRequest, "orderId is required")
		return
	}
	h.assign(c, delivery.AssignCommand{OrderID: id})
}

func (h *DeliveryHandler) assign(c *gin.Context, cmd delivery.AssignCommand) {
	a, err := h.delivery.Assign(c.Request.Context(), cmd)
	if err != nil {
		if errors.Is(err, delivery.ErrAlreadyAssigned) && a != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "order": a.Order, "deliveryAgent": a.Agent})
			return
		}
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": a.Order, "deliveryAgent": a.Agent})
}

type registerAgentReq struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	VehicleType   string `json:"vehicleType"`
	VehicleNumber string `json:"vehicleNumber"`
}

func (h *DeliveryHandler) Register(c *gin.Context) {
	var req registerAgentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "name and phone are required")
		return
	}

	agent := &delivery.Agent{
		Name:          req.Name,
		Phone:         req.Phone,
		VehicleType:   req.VehicleType,
		VehicleNumber: req.VehicleNumber,
		IsAvailable:   true,
	}
	if err := h.delivery.Register(c.Request.Context(), agent); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deliveryAgent": agent})
}

func (h *DeliveryHandler) ListAvailable(c *gin.Context) {
	agents, err := h.delivery.ListAvailable(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveryAgents": agents})
}

type availabilityReq struct {
	IsAvailable *bool `json:"isAvailable" binding:"required"`
}

func (h *DeliveryHandler) SetAvailability(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid agent id")
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "isAvailable is required")
		return
	}

	if err := h.delivery.SetAvailability(c.Request.Context(), id, *req.IsAvailable); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *DeliveryHandler) UpdateLocation(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid agent id")
		return
	}
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}

	if err := h.delivery.UpdateLocation(c.Request.Context(), id, delivery.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
