package service_test

import (
	"testing"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/service"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		ResetTokenSecret:   "reset-secret",
		AccessTokenTTL:     72 * time.Hour,
		RefreshTokenTTL:    168 * time.Hour,
		ResetTokenTTL:      15 * time.Minute,
	}
}

func TestTokenService_GeneratePair(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	pair, err := ts.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, clock.Now().Add(168*time.Hour), pair.RefreshExpiresAt)

	accessClaims, err := ts.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", accessClaims.UserID)
	assert.Equal(t, "doc@hospital.com", accessClaims.Email)
	assert.Equal(t, "doctor", accessClaims.Role)

	refreshClaims, err := ts.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refreshClaims.UserID)
	assert.NotEmpty(t, refreshClaims.ID, "refresh token should carry a jti")
}

func TestTokenService_PairsAreUnique(t *testing.T) {
	// Two pairs minted at the same instant must still differ.
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	p1, err := ts.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)
	p2, err := ts.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)

	assert.NotEqual(t, p1.RefreshToken, p2.RefreshToken)
}

func TestTokenService_ClassesDoNotCross(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	pair, err := ts.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)

	// A refresh token is not a valid access token and vice versa.
	_, err = ts.VerifyAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)

	_, err = ts.VerifyRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)

	reset, err := ts.GenerateResetToken("user-1", "doc@hospital.com")
	require.NoError(t, err)

	_, err = ts.VerifyAccessToken(reset)
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)

	_, err = ts.VerifyResetToken(reset)
	assert.NoError(t, err)
}

func TestTokenService_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	reset, err := ts.GenerateResetToken("user-1", "doc@hospital.com")
	require.NoError(t, err)

	_, err = ts.VerifyResetToken(reset)
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	_, err = ts.VerifyResetToken(reset)
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	otherCfg := testTokenConfig()
	otherCfg.AccessTokenSecret = "some-other-secret"
	other := service.NewTokenService(otherCfg, clock)

	pair, err := ts.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
}

func TestTokenService_Garbage(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ts := service.NewTokenService(testTokenConfig(), clock)

	_, err := ts.VerifyAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)

	_, err = ts.VerifyRefreshToken("")
	assert.ErrorIs(t, err, autherror.ErrTokenInvalid)
}
