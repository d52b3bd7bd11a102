package access

import (
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Principal is the caller behind a verified token.
type Principal struct {
	Subject string
	Scopes  []string
}

// Has reports whether p carries scope.
func (p *Principal) Has(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// Guard authenticates bearer tokens. Signed JWTs are checked against the
// HMAC secret; a static API token is checked against its Argon2id hash and
// acts as an admin. Static tokens that verified once are remembered by
// digest so Argon2 runs once per token.
type Guard struct {
	secret   []byte
	encoded  string
	verified sync.Map
}

// NewGuard validates the configuration up front. Either part may be empty,
// not both.
func NewGuard(tokenHash string, jwtSecret []byte) (*Guard, error) {
	if tokenHash == "" && len(jwtSecret) == 0 {
		return nil, errors.New("guard needs a token hash or a jwt secret")
	}
	if tokenHash != "" {
		if _, _, err := decode(tokenHash); err != nil {
			return nil, err
		}
	}
	if len(jwtSecret) > 0 && len(jwtSecret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &Guard{secret: jwtSecret, encoded: tokenHash}, nil
}

// Authenticate resolves token to a principal.
func (g *Guard) Authenticate(token string) (*Principal, bool) {
	if token == "" {
		return nil, false
	}

	if len(g.secret) > 0 && strings.Count(token, ".") == 2 {
		if claims, err := ParseToken(g.secret, token); err == nil {
			return &Principal{Subject: claims.Subject, Scopes: claims.Scopes()}, true
		}
	}

	if g.encoded == "" {
		return nil, false
	}
	static := &Principal{Subject: "api-token", Scopes: []string{ScopeAdmin}}
	digest := sha256.Sum256([]byte(token))
	if _, ok := g.verified.Load(digest); ok {
		return static, true
	}
	ok, err := VerifyToken(token, g.encoded)
	if err != nil || !ok {
		return nil, false
	}
	g.verified.Store(digest, struct{}{})
	return static, true
}

// Require rejects requests without a valid bearer token (401) or, when
// scope is not empty, whose principal lacks it (403).
func (g *Guard) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				unauthorized(w)
				return
			}
			p, ok := g.Authenticate(token)
			if !ok {
				unauthorized(w)
				return
			}
			if scope != "" && !p.Has(scope) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by Require, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="libralend"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
