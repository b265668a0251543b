// Package auth verifies bearer tokens and carries the owner id through the
// request context. Token issuance belongs to the identity service; Issue
// exists for tooling and tests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey string

const ownerKey contextKey = "owner_id"

// Verifier checks HMAC-signed tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// ParseToken validates tokenString and returns the owner id it carries, read
// from the numeric user_id claim or, failing that, a numeric sub.
func (v *Verifier) ParseToken(tokenString string) (int64, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch id := claims["user_id"].(type) {
	case float64:
		if id > 0 && id == float64(int64(id)) {
			return int64(id), nil
		}
	case string:
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		if n, err := strconv.ParseInt(sub, 10, 64); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: no usable user_id claim", ErrInvalidToken)
}

// ParseRequest extracts the bearer token from r and validates it.
func (v *Verifier) ParseRequest(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, ErrMissingToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return 0, ErrMissingToken
	}
	return v.ParseToken(strings.TrimSpace(tokenString))
}

// Middleware rejects unauthenticated requests through onError and stores the
// owner id in the context of the rest.
func (v *Verifier) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := v.ParseRequest(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// Issue signs a token for owner valid for ttl.
func (v *Verifier) Issue(owner int64, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": owner,
		"sub":     strconv.FormatInt(owner, 10),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}

// WithOwner stores the authenticated owner id in ctx.
func WithOwner(ctx context.Context, owner int64) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the authenticated owner id.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	owner, ok := ctx.Value(ownerKey).(int64)
	return owner, ok
}
