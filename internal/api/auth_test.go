package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"villamar/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuth() *JWTAuth {
	return NewJWTAuth(config.AuthConfig{JWTSecret: testJWTSecret, CookieName: "token"})
}

func TestIdentityFromToken(t *testing.T) {
	auth := testAuth()

	t.Run("Valid", func(t *testing.T) {
		token, err := IssueToken(testJWTSecret, 42, "admin", time.Now().Add(time.Hour).Unix())
		require.NoError(t, err)

		identity, err := auth.identityFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.UserID)
		assert.True(t, identity.IsAdmin())
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := IssueToken(testJWTSecret, 42, "user", time.Now().Add(-time.Hour).Unix())
		require.NoError(t, err)

		_, err = auth.identityFromToken(token)
		assert.Error(t, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := IssueToken("other-secret", 42, "user", time.Now().Add(time.Hour).Unix())
		require.NoError(t, err)

		_, err = auth.identityFromToken(token)
		assert.Error(t, err)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		// alg=none must never be accepted.
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": 42, "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = auth.identityFromToken(raw)
		assert.Error(t, err)
	})

	t.Run("StringSubject", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "42", "role": "user", "exp": time.Now().Add(time.Hour).Unix()}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		identity, err := auth.identityFromToken(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(42), identity.UserID)
		assert.False(t, identity.IsAdmin())
	})

	t.Run("MissingSubject", func(t *testing.T) {
		claims := jwt.MapClaims{"role": "user", "exp": time.Now().Add(time.Hour).Unix()}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		_, err = auth.identityFromToken(raw)
		assert.Error(t, err)
	})
}

func TestTokenFromRequest(t *testing.T) {
	auth := testAuth()

	t.Run("BearerHeader", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		assert.Equal(t, "abc", auth.tokenFromRequest(r))
	})

	t.Run("SessionCookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: "xyz"})
		assert.Equal(t, "xyz", auth.tokenFromRequest(r))
	})

	t.Run("HeaderWinsOverCookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		r.AddCookie(&http.Cookie{Name: "token", Value: "xyz"})
		assert.Equal(t, "abc", auth.tokenFromRequest(r))
	})

	t.Run("None", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, "", auth.tokenFromRequest(r))
	})
}

func TestWrapInjectsIdentity(t *testing.T) {
	auth := testAuth()

	var got Identity
	handler := auth.Wrap(func(w http.ResponseWriter, r *http.Request) {
		got = identityFrom(r)
		w.WriteHeader(http.StatusNoContent)
	})

	token, err := IssueToken(testJWTSecret, 7, "user", time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()
	handler(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(7), got.UserID)
}
