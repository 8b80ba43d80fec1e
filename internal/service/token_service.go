package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"starter-api/internal/domain"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims son los atributos de identidad embebidos en cada token firmado.
type Claims struct {
	UserID string      `json:"uid"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	Kind   string      `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService emite y valida tokens de acceso y de refresco. Cada tipo se
// firma con su propio secreto, por lo que un token de un tipo nunca pasa la
// verificación del otro.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 365 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "starter-api",
	}
}

func (s *TokenService) IssueAccess(user domain.User) (string, error) {
	return s.sign(user, s.accessSecret, s.accessTTL, tokenKindAccess)
}

func (s *TokenService) IssueRefresh(user domain.User) (string, error) {
	return s.sign(user, s.refreshSecret, s.refreshTTL, tokenKindRefresh)
}

func (s *TokenService) VerifyAccess(token string) (Claims, error) {
	return s.verify(token, s.accessSecret, tokenKindAccess)
}

func (s *TokenService) VerifyRefresh(token string) (Claims, error) {
	return s.verify(token, s.refreshSecret, tokenKindRefresh)
}

func (s *TokenService) sign(user domain.User, secret []byte, ttl time.Duration, kind string) (string, error) {
	if len(secret) == 0 {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString string, secret []byte, kind string) (Claims, error) {
	if len(secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}

	var claims Claims
	// Solo HS256: tokens firmados con cualquier otro algoritmo se rechazan.
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return Claims{}, ErrTokenInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return claims.Issuer == s.issuer
}
