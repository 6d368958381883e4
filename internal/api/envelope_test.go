package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"casino_backoffice/internal/bonus"
	"casino_backoffice/internal/player"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"player not found", player.ErrPlayerNotFound, http.StatusNotFound},
		{"claim not found", bonus.ErrClaimNotFound, http.StatusNotFound},
		{"bonus inactive", bonus.ErrBonusNotActive, http.StatusConflict},
		{"invalid transition", bonus.ErrInvalidTransition, http.StatusConflict},
		{"segment mismatch", bonus.ErrSegmentMismatch, http.StatusForbidden},
		{"wrapped sentinel", fmt.Errorf("claiming: %w", bonus.ErrBonusExpired), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := recordError(t, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Errors)
		})
	}
}

func TestEnvelopeCarriesAllKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondOK(c, nil)

	// Clients key on all four fields, even when empty.
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{"success", "message", "errors", "data"} {
		assert.Contains(t, body, key)
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	w, body := recordError(t, errors.New("pq: connection refused on 10.0.0.5"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", body.Message)
	assert.Empty(t, body.Errors)
}
