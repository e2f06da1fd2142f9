// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bazaar/internal/modules/delivery"
	"bazaar/internal/modules/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError maps the module sentinel errors onto the HTTP taxonomy.
// ErrNoAgentAvailable maps to 503 so callers can tell a retryable condition
// from a hard failure.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, delivery.ErrAgentNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrInvalidOTP):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrConflict), errors.Is(err, delivery.ErrAlreadyAssigned), errors.Is(err, delivery.ErrOrderClosed):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, delivery.ErrNoAgentAvailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func parseID(v string) (int64, bool) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
