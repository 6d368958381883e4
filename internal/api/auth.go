package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
)

type tokenClaims struct {
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

// IssueAdminToken signs a short-lived HS256 token for the back-office UI.
func IssueAdminToken(secret string, subject string, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}

	payload, err := json.Marshal(tokenClaims{
		Subject:   subject,
		Role:      "admin",
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return jws.CompactSerialize()
}

func verifyAdminToken(secret string, token string) (*tokenClaims, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}
	payload, err := jws.Verify([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("invalid claims: %w", err)
	}
	if claims.Role != "admin" {
		return nil, fmt.Errorf("not an admin token")
	}
	if time.Now().Unix() >= claims.ExpiresAt {
		return nil, fmt.Errorf("token expired")
	}
	return &claims, nil
}

// AdminAuth guards back-office mutation routes with a bearer token.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
				Success: false,
				Message: "missing bearer token",
			})
			return
		}

		claims, err := verifyAdminToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
				Success: false,
				Message: "unauthorized",
				Errors:  map[string]string{"token": err.Error()},
			})
			return
		}
		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}
