package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrMissingStoreID   = errors.New("missing store_id in claims")
	ErrUnknownRole      = errors.New("unknown role in claims")
)

// Claims carries the POS identity inside a JWT. Every till operator is
// scoped to one tenant and one store for the lifetime of the token.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	StoreID  string `json:"store_id"`
	Role     string `json:"role"`
}

// JWTService issues and validates the tokens the HTTP layer trusts.
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.TokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateToken signs a token for the actor. The returned time is the
// token's expiry.
func (s *JWTService) GenerateToken(actor shared.Actor) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   actor.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID: actor.TenantID.String(),
		UserID:   actor.UserID.String(),
		StoreID:  actor.StoreID.String(),
		Role:     string(actor.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateToken verifies a token and rebuilds the actor from its claims.
func (s *JWTService) ValidateToken(tokenString string) (shared.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return shared.Actor{}, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return shared.Actor{}, ErrTokenNotYetValid
		}
		return shared.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Actor{}, ErrInvalidClaims
	}

	return s.actorFromClaims(claims)
}

func (s *JWTService) actorFromClaims(claims *Claims) (shared.Actor, error) {
	if claims.TenantID == "" {
		return shared.Actor{}, ErrMissingTenantID
	}
	if claims.UserID == "" {
		return shared.Actor{}, ErrMissingUserID
	}
	if claims.StoreID == "" {
		return shared.Actor{}, ErrMissingStoreID
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	storeID, err := uuid.Parse(claims.StoreID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}

	role := shared.Role(claims.Role)
	switch role {
	case shared.RoleCashier, shared.RoleManager, shared.RoleAdmin:
	default:
		return shared.Actor{}, ErrUnknownRole
	}

	return shared.Actor{
		UserID:   userID,
		TenantID: tenantID,
		StoreID:  storeID,
		Role:     role,
	}, nil
}
