package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := ti.Issue("game-1", "seat-1")
	require.NoError(t, err)

	claims, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "game-1", claims.GameID)
	assert.Equal(t, "seat-1", claims.SeatID)
	assert.Equal(t, "seat-1", claims.Subject)
}

func TestTokenRejections(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)

	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	_, err = ti.Verify("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = ti.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other, _ := NewTokenIssuer("other", time.Hour)
	forged, err := other.Issue("game-1", "seat-1")
	require.NoError(t, err)
	_, err = ti.Verify(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, SeatClaims{GameID: "g", SeatID: "s"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ti.Verify(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	noSeat, err := ti.Issue("game-1", "")
	require.NoError(t, err)
	_, err = ti.Verify(noSeat)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenExpiry(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Minute)
	require.NoError(t, err)
	issued := time.Now()
	ti.now = func() time.Time { return issued }
	token, err := ti.Issue("game-1", "seat-1")
	require.NoError(t, err)

	ti.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = ti.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/games/x/ws?token=q", nil)
	assert.Equal(t, "q", tokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", tokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", tokenFromRequest(r))
}
