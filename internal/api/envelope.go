package api

import (
	"errors"
	"net/http"

	"casino_backoffice/internal/bonus"
	"casino_backoffice/internal/game"
	"casino_backoffice/internal/player"

	"github.com/gin-gonic/gin"
)

// Envelope is the response shape every endpoint returns; existing admin
// clients depend on all four keys being present on every response.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Data    interface{}       `json:"data"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Message: "invalid request",
		Errors:  map[string]string{"request": err.Error()},
	})
}

// respondError maps domain sentinel errors onto HTTP statuses: missing
// entities are 404, business-rule violations 409, eligibility failures 403,
// anything else a 500 with no internals leaked.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, player.ErrPlayerNotFound),
		errors.Is(err, bonus.ErrBonusNotFound),
		errors.Is(err, bonus.ErrClaimNotFound),
		errors.Is(err, game.ErrGameNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, bonus.ErrBonusNotActive),
		errors.Is(err, bonus.ErrBonusNotStarted),
		errors.Is(err, bonus.ErrBonusExpired),
		errors.Is(err, bonus.ErrClaimNotActive),
		errors.Is(err, bonus.ErrInvalidTransition),
		errors.Is(err, bonus.ErrInvalidValidity),
		errors.Is(err, bonus.ErrTargetSegmentRequired),
		errors.Is(err, player.ErrInvalidSegment),
		errors.Is(err, player.ErrNegativeAmount):
		status = http.StatusConflict
		message = "invalid state"
	case errors.Is(err, bonus.ErrSegmentMismatch):
		status = http.StatusForbidden
		message = "not eligible"
	}

	body := Envelope{Success: false, Message: message}
	if status != http.StatusInternalServerError {
		body.Errors = map[string]string{"error": err.Error()}
	}
	c.JSON(status, body)
}
