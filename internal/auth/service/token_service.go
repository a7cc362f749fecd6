package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/LinhPhuong14/MediFlow/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// TokenGenerator signs and verifies the three token classes. Each class has
// its own secret and TTL, so a token of one class never verifies as another.
type TokenGenerator interface {
	GeneratePair(userID, email, role string) (*TokenPair, error)
	GenerateResetToken(userID, email string) (string, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
	VerifyResetToken(tokenString string) (*JWTCustomClaims, error)
	RefreshTokenTTL() time.Duration
	ResetTokenTTL() time.Duration
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
}

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	clock         clockwork.Clock
}

func NewTokenService(cfg *config.Config, clock clockwork.Clock) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		resetSecret:   []byte(cfg.ResetTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		resetTTL:      cfg.ResetTokenTTL,
		clock:         clock,
	}
}

// GeneratePair mints an access token and a refresh token for the user. The
// refresh token carries a fresh random jti so that two pairs minted in the
// same second are still distinct strings.
func (ts *TokenService) GeneratePair(userID, email, role string) (*TokenPair, error) {
	now := ts.clock.Now()

	accessClaims := JWTCustomClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	refreshExpiry := now.Add(ts.refreshTTL)
	refreshClaims := JWTCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(refreshExpiry),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(ts.accessSecret)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(ts.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// GenerateResetToken mints a short-lived token bound to the user id and
// email, signed with the reset secret.
func (ts *TokenService) GenerateResetToken(userID, email string) (string, error) {
	now := ts.clock.Now()

	claims := JWTCustomClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.resetTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.resetSecret)
}

func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.accessSecret)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.refreshSecret)
}

func (ts *TokenService) VerifyResetToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.resetSecret)
}

func (ts *TokenService) RefreshTokenTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenService) ResetTokenTTL() time.Duration {
	return ts.resetTTL
}

func (ts *TokenService) verify(tokenString string, secret []byte) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(ts.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrTokenInvalid
	}

	if !token.Valid {
		return nil, autherror.ErrTokenInvalid
	}

	return claims, nil
}
