package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/infrastructure/auth"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "user_id"
	JWTUsernameKey = "jwt_username"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// errNoCredentials is an absent Authorization header, told apart from a bad token
var errNoCredentials = fmt.Errorf("%w: no credentials", auth.ErrInvalidToken)

// JWTMiddlewareConfig configures JWTAuthMiddlewareWithConfig. JWTService is
// required; OnError replaces the default 401 response.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	SkipPaths  []string
	OnError    func(c *gin.Context, err error)
	Logger     *zap.Logger
}

// DefaultJWTConfig leaves only the health check public
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health"},
	}
}

// JWTAuthMiddleware applies DefaultJWTConfig
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig requires a valid access token and stores its
// claims on the gin context. The employee id is also put on the request
// context logger so service logs carry it.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reject := cfg.OnError
	if reject == nil {
		reject = func(c *gin.Context, err error) {
			log.Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			writeAuthError(c, err)
		}
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := bearerToken(c.GetHeader(AuthHeaderKey))
		if err != nil {
			reject(c, err)
			return
		}
		claims, err := cfg.JWTService.Verify(token)
		if err != nil {
			reject(c, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID())
		c.Set(JWTUsernameKey, claims.Username)

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID())
		c.Request = c.Request.WithContext(ctx)

		log.Debug("Authenticated", zap.String("user_id", claims.UserID()), zap.String("username", claims.Username))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", fmt.Errorf("%w: authorization scheme is not Bearer", auth.ErrInvalidToken)
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", fmt.Errorf("%w: empty bearer token", auth.ErrInvalidToken)
	}
	return token, nil
}

// authFailure maps a token error to the API error code and message
func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, errNoCredentials):
		return dto.ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingUserID),
		errors.Is(err, auth.ErrMissingUsername):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
	return dto.ErrCodeUnauthorized, "Authentication required"
}

func writeAuthError(c *gin.Context, err error) {
	code, message := authFailure(err)
	SetErrorCode(c, code)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Failure(code, message, GetRequestID(c)))
}

// GetJWTClaims returns the claims stored by the JWT middleware, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(JWTClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetActor returns the authenticated employee as an invoicing actor.
// The second result is false when the request is not authenticated.
func GetActor(c *gin.Context) (invoicingapp.Actor, bool) {
	claims := GetJWTClaims(c)
	if claims == nil {
		return invoicingapp.Actor{}, false
	}
	return invoicingapp.Actor{UserID: claims.UserID(), Username: claims.Username}, true
}
