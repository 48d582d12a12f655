package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/xelth-com/loci/internal/models"
)

// Token lifetimes
const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 90 * 24 * time.Hour
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

// Claims carried by access and refresh tokens. Subject is the user id.
type Claims struct {
	Type        string `json:"type"`
	Email       string `json:"email,omitempty"`
	IsStaff     bool   `json:"isStaff,omitempty"`
	IsSuperuser bool   `json:"isSuperuser,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueTokens signs a fresh access/refresh pair for user
func IssueTokens(user *models.UserAuth, secret string) (TokenPair, error) {
	now := time.Now()
	access, err := sign(Claims{
		Type:             tokenAccess,
		Email:            user.Email,
		IsStaff:          user.IsStaff,
		IsSuperuser:      user.IsSuperuser,
		RegisteredClaims: registered(user.ID, now, AccessTokenTTL),
	}, secret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := sign(Claims{
		Type:             tokenRefresh,
		RegisteredClaims: registered(user.ID, now, RefreshTokenTTL),
	}, secret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry (HMAC only)
func ParseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// AccessTokenUserID validates an access token and returns its user id
func AccessTokenUserID(tokenString, secret string) (string, error) {
	return subjectOf(tokenString, secret, tokenAccess)
}

// RefreshTokenUserID validates a refresh token and returns its user id
func RefreshTokenUserID(tokenString, secret string) (string, error) {
	return subjectOf(tokenString, secret, tokenRefresh)
}

func subjectOf(tokenString, secret, want string) (string, error) {
	claims, err := ParseToken(tokenString, secret)
	if err != nil {
		return "", err
	}
	if claims.Type != want {
		return "", fmt.Errorf("%w: %q", ErrWrongTokenType, claims.Type)
	}
	return claims.Subject, nil
}
