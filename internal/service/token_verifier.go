package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-timetable/internal/models"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

// TokenConfig configures access token verification.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience []string
	// Expiry applies to tokens issued by Issue.
	Expiry time.Duration
}

// TokenVerifier validates HS256 access tokens issued by the school portal.
type TokenVerifier struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(config TokenConfig) *TokenVerifier {
	if config.Expiry <= 0 {
		config.Expiry = 15 * time.Minute
	}
	return &TokenVerifier{config: config, now: time.Now}
}

// ValidateToken parses and validates the token string.
func (v *TokenVerifier) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(v.now)}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Issue signs an access token for the subject. Used by operators and tests;
// end users receive tokens from the portal.
func (v *TokenVerifier) Issue(userID string, role models.UserRole) (string, time.Time, error) {
	issuedAt := v.now().UTC()
	expiresAt := issuedAt.Add(v.config.Expiry)
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.config.Issuer,
			Subject:   userID,
			Audience:  v.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
