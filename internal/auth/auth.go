// Package auth verifies platform-issued bearer tokens and binds the
// resulting identity to requests and connections. Token minting lives in
// the account subsystem; this package only checks signature and expiry
// against the shared secret.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Bufv/NGULIKANG-FINAL/internal/chaterr"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated actor bound to a request or a live
// connection for its whole lifetime.
type Identity struct {
	ID   uuid.UUID
	Role models.Role
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier over the platform's shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the token's signature and expiry and extracts the actor
// identity from the sub and role claims. A "Bearer " prefix is tolerated
// so the same value works from headers and query strings.
func (v *Verifier) Verify(token string) (*Identity, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", chaterr.ErrAuthentication)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", chaterr.ErrAuthentication, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims shape", chaterr.ErrAuthentication)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", chaterr.ErrAuthentication)
	}
	actorID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: sub is not a valid actor id", chaterr.ErrAuthentication)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return nil, fmt.Errorf("%w: missing role claim", chaterr.ErrAuthentication)
	}

	return &Identity{ID: actorID, Role: models.Role(strings.ToLower(role))}, nil
}

// RequireAuth is chi middleware that rejects requests without a valid
// bearer token and stores the identity in the request context.
func (v *Verifier) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, "missing Authorization header")
			return
		}

		ident, err := v.Verify(header)
		if err != nil {
			writeAuthError(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}

// FromContext retrieves the authenticated identity, or nil.
func FromContext(ctx context.Context) *Identity {
	ident, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return ident
}
