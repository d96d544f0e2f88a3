package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"adsoptimizer/internal/optimization"
)

// apiResponse is the envelope of every JSON API reply. Code is 0 on success
// and the HTTP status otherwise.
type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: "ok", Data: data, Meta: meta})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{Code: status, Message: message, Meta: meta})
}

// executionStatus maps an ExecuteRule error onto the reply status.
func executionStatus(err error) int {
	switch {
	case errors.Is(err, optimization.ErrRuleBusy):
		return http.StatusConflict
	case errors.Is(err, optimization.ErrInvalidRule), errors.Is(err, optimization.ErrUnknownRuleType):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
