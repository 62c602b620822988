package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univento/leaderboard-service/internal/apierr"
)

type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data"`
}

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Data: payload})
}

func RespondOKWithCount(c *gin.Context, count int, payload any) {
	c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Count: &count, Data: payload})
}

func RespondMessage(c *gin.Context, message string, payload any) {
	c.JSON(http.StatusOK, SuccessEnvelope{Success: true, Message: message, Data: payload})
}

// RespondError translates an *apierr.Error into the response envelope.
// Internal errors are returned without their wrapped cause.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	msg := ae.Error()
	if ae.Code == apierr.CodeInternal {
		msg = "internal server error"
	}
	c.JSON(ae.Status, ErrorEnvelope{Success: false, Code: ae.Code, Message: msg})
}
