// Package auth validates the bearer tokens presented to the API.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/optica/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing employee_id in claims")
	ErrMissingUsername  = errors.New("missing username in claims")
)

// Claims identify the employee operating the point of sale
type Claims struct {
	jwt.RegisteredClaims
	EmployeeID int64    `json:"employee_id"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles,omitempty"`
}

// Validate runs after the registered claims checks of the parser
func (c *Claims) Validate() error {
	var errs []error
	if c.EmployeeID <= 0 {
		errs = append(errs, ErrMissingUserID)
	}
	if c.Username == "" {
		errs = append(errs, ErrMissingUsername)
	}
	return errors.Join(errs...)
}

// UserID is the employee id in the form used by logs and audit fields
func (c *Claims) UserID() string {
	return strconv.FormatInt(c.EmployeeID, 10)
}

func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Grant is what an issued token asserts
type Grant struct {
	EmployeeID int64
	Username   string
	Roles      []string
}

// JWTService signs and verifies HS256 access tokens. The API only verifies;
// operators mint tokens with facturactl.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenExpiration,
		parser: jwt.NewParser(opts...),
	}
}

// TTL is the lifetime of issued tokens
func (s *JWTService) TTL() time.Duration { return s.ttl }

// Issue signs a token for g valid from now for TTL
func (s *JWTService) Issue(g Grant) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(g.EmployeeID, 10),
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		EmployeeID: g.EmployeeID,
		Username:   g.Username,
		Roles:      g.Roles,
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature, issuer and validity window of raw and
// returns its claims
func (s *JWTService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, tokenError(err)
	}
	return claims, nil
}

// tokenError maps jwt parse failures to the errors of this package
func tokenError(err error) error {
	for _, known := range []error{ErrMissingUserID, ErrMissingUsername} {
		if errors.Is(err, known) {
			return known
		}
	}
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %w", ErrInvalidClaims, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}
