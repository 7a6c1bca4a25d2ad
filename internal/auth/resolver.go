package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/delivery-tracking/internal/models"
	"github.com/example/delivery-tracking/internal/store"
)

// ErrUnauthorized covers every credential the resolver cannot tie to a live
// account: missing, malformed, expired, or referencing a deleted user.
var ErrUnauthorized = errors.New("unauthorized")

// Claims mirrors the session token minted by the auth service at login.
// The account id rides in the "id" claim.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Resolver turns a handshake credential into a durable identity. Resolution
// happens exactly once per connection, before the upgrade is accepted.
type Resolver struct {
	secret    []byte
	directory store.Directory
}

func NewResolver(secret string, directory store.Directory) *Resolver {
	return &Resolver{secret: []byte(secret), directory: directory}
}

func (r *Resolver) Resolve(ctx context.Context, credential string) (models.Identity, error) {
	if credential == "" {
		return models.Identity{}, ErrUnauthorized
	}
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return models.Identity{}, ErrUnauthorized
	}
	account, err := r.directory.AccountByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Identity{}, ErrUnauthorized
	}
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{ID: account.ID, Role: account.Role}, nil
}

// Sign mints a session token for an account id. Token issuance lives with
// the auth service; this helper exists for local tooling and tests.
func Sign(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
