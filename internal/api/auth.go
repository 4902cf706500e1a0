package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"villamar/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller extracted from the session token.
// Token issuance lives in the identity service; this server only verifies.
type Identity struct {
	UserID int64
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// JWTAuth verifies the HS256 session token from the Authorization header or
// the session cookie and injects the caller identity into the request
// context.
type JWTAuth struct {
	secret     []byte
	cookieName string
}

func NewJWTAuth(cfg config.AuthConfig) *JWTAuth {
	return &JWTAuth{secret: []byte(cfg.JWTSecret), cookieName: cfg.CookieName}
}

func (a *JWTAuth) tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (a *JWTAuth) identityFromToken(raw string) (Identity, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid claims")
	}

	var userID int64
	switch sub := claims["sub"].(type) {
	case float64:
		userID = int64(sub)
	case string:
		if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
			return Identity{}, fmt.Errorf("invalid subject claim")
		}
	default:
		return Identity{}, fmt.Errorf("missing subject claim")
	}
	if userID == 0 {
		return Identity{}, fmt.Errorf("missing subject claim")
	}

	role, _ := claims["role"].(string)
	return Identity{UserID: userID, Role: role}, nil
}

// Wrap rejects unauthenticated requests with 401 before the handler runs.
func (a *JWTAuth) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := a.tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		identity, err := a.identityFromToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// WrapAdmin additionally requires the admin role.
func (a *JWTAuth) WrapAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.Wrap(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFrom(r *http.Request) Identity {
	identity, _ := r.Context().Value(identityKey).(Identity)
	return identity
}

// IssueToken signs a session token. Kept for tests and local tooling; the
// production issuer is the separate identity service.
func IssueToken(secret string, userID int64, role string, expiresAt int64) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  expiresAt,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
