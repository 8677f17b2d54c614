// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stackpitch/venturerank/internal/domain/types"
)

// authCookieName is the session cookie checked when no Authorization
// header is present.
const authCookieName = "authToken"

type contextKey struct{ name string }

var identityKey = &contextKey{"identity"} //nolint:gochecknoglobals // context key

// IdentityFrom extracts the verified caller identity attached by the
// auth middleware. The second return is false for anonymous requests.
func IdentityFrom(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(identityKey).(types.Identity)
	return id, ok
}

// Authenticator verifies JWT session tokens and scopes an Identity to
// the request context.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator with the given signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Required rejects requests without a valid token with 401.
func (a *Authenticator) Required(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identity(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	}
}

// Optional attaches an identity when a valid token is present and
// forwards the request anonymously otherwise.
func (a *Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identity(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
		}
		next.ServeHTTP(w, r)
	}
}

// identity resolves and verifies the request token. The Authorization
// header wins over the session cookie.
func (a *Authenticator) identity(r *http.Request) (types.Identity, error) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	} else if c, err := r.Cookie(authCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return types.Identity{}, ErrUnauthorized
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return types.Identity{}, ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Identity{}, ErrUnauthorized
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return types.Identity{}, ErrUnauthorized
	}
	role, _ := claims["role"].(string)

	return types.Identity{UserID: int64(userID), Role: role}, nil
}

// SignToken mints a token for the given identity. Used by the seed tool
// and tests; the production issuer lives in the account system.
func (a *Authenticator) SignToken(id types.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id.UserID,
		"role":    id.Role,
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
