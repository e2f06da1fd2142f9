// README: OTP generation and verification for delivery confirmation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/order"
)

type OTPHandler struct {
	orders *order.Service
}

func NewOTPHandler(orders *order.Service) *OTPHandler {
	return &OTPHandler{orders: orders}
}

type generateOTPReq struct {
	OrderID         int64 `json:"orderId" binding:"required"`
	DeliveryAgentID int64 `json:"deliveryAgentId" binding:"required"`
	CheckOnly       bool  `json:"checkOnly"`
}

func (h *OTPHandler) Generate(c *gin.Context) {
	var req generateOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "orderId and deliveryAgentId are required")
		return
	}

	otp, existing, err := h.orders.GenerateOTP(c.Request.Context(), req.OrderID, req.DeliveryAgentID, req.CheckOnly)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if req.CheckOnly && otp == "" {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "otp": otp, "isExisting": existing})
}

type verifyOTPReq struct {
	OrderID         int64  `json:"orderId" binding:"required"`
	DeliveryAgentID int64  `json:"deliveryAgentId" binding:"required"`
	OTP             string `json:"otp" binding:"required"`
}

func (h *OTPHandler) Verify(c *gin.Context) {
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "orderId, deliveryAgentId and otp are required")
		return
	}

	o, err := h.orders.VerifyOTP(c.Request.Context(), order.VerifyCommand{
		OrderID: req.OrderID,
		AgentID: req.DeliveryAgentID,
		OTP:     req.OTP,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}
