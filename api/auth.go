/*
auth.go - Bearer token authentication

PURPOSE:
  Turns an HS256 JWT into a ledger.Actor on the request context. The
  token is issued by the identity service in front of this one; the
  ledger only needs two claims:

    sub   actor id (required)
    role  "admin" or "user" (anything else is treated as "user")

  Expiry is enforced by the jwt library when the token carries "exp".

SEE ALSO:
  - server.go: Mounts the middleware on /api
  - cmd/ledgerctl/token.go: Issues tokens for operators and local testing
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
)

type actorContextKey struct{}

// RoleAdmin is the role claim that grants admin rights.
const RoleAdmin = "admin"

// Claims is the token body this service understands.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Middleware rejects requests without a valid token and stores the actor
// in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header required", nil)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format", nil)
			return
		}

		actor, err := a.Parse(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// Parse validates a token and returns the actor it names.
func (a *Authenticator) Parse(tokenString string) (ledger.Actor, error) {
	var claims Claims
	token, err := a.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return ledger.Actor{}, err
	}
	if !token.Valid {
		return ledger.Actor{}, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return ledger.Actor{}, errors.New("token has no subject")
	}
	return ledger.Actor{ID: claims.Subject, IsAdmin: claims.Role == RoleAdmin}, nil
}

// IssueToken signs a token for actorID. A zero ttl issues a token without
// an expiry.
func IssueToken(secret, actorID, role string, ttl time.Duration) (string, error) {
	if actorID == "" {
		return "", fmt.Errorf("actor id is required")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  actorID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func WithActor(ctx context.Context, actor ledger.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFrom returns the authenticated actor, or the zero Actor when the
// request was not authenticated.
func ActorFrom(ctx context.Context) ledger.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(ledger.Actor)
	return actor
}
