package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// ClaimsKey is the gin context key for validated token claims.
const ClaimsKey = "jwt_claims"

// Claims are the token claims accepted by the services.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthConfig holds configuration for the JWT middleware.
type AuthConfig struct {
	// Secret verifies HS256 signatures.
	Secret []byte

	// Issuer, when set, must match the iss claim.
	Issuer string

	Logger observability.Logger
}

// Auth returns a middleware that requires a valid bearer token. Missing
// credentials, malformed or forged tokens and expired tokens are recorded
// as distinct unauthorized errors.
func Auth(config AuthConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	keyFunc := func(*jwt.Token) (any, error) {
		return config.Secret, nil
	}

	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(util.NewUnauthorizedError("Authentication required"))
			c.Abort()
			return
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(tokenString, claims, keyFunc); err != nil {
			config.Logger.WithContext(c.Request.Context()).Debug("token validation failed",
				observability.Error(err),
			)
			if errors.Is(err, jwt.ErrTokenExpired) {
				_ = c.Error(util.NewTokenExpiredError(err))
			} else {
				_ = c.Error(util.NewTokenInvalidError(err))
			}
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetClaims returns the validated claims, if any.
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}
