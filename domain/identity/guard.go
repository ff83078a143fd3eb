package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/runtime"
)

// sessionClaimsKey is the context key the AuthGuard attaches resolved
// session claims under, so downstream handlers (CSRF, workspace CRUD,
// sharing) can read the caller's identity without re-verifying it.
type sessionClaimsKeyType struct{}

var sessionClaimsKey = sessionClaimsKeyType{}

// WithSessionClaims attaches resolved claims to ctx.
func WithSessionClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

// SessionClaimsFromContext returns the claims the AuthGuard resolved for
// this request, if any.
func SessionClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*SessionClaims)
	return claims, ok
}

// The CSRF lookup (CSRFTokenFor) is provided by AuthGuard so middleware.CSRF
// can be constructed from it without a second auth implementation.

// AuthGuard enforces spec.md §4.3: Bearer header takes precedence over
// session cookie, a fixed set of paths are exempt, and a session nearing
// expiry is transparently refreshed.
type AuthGuard struct {
	issuer           *SessionIssuer
	cookieName       string
	refreshThreshold time.Duration
	exemptPaths      map[string]struct{}
}

// NewAuthGuard builds an AuthGuard.
func NewAuthGuard(issuer *SessionIssuer, cookieName string, refreshThreshold time.Duration, exemptPaths []string) *AuthGuard {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return &AuthGuard{
		issuer:           issuer,
		cookieName:       cookieName,
		refreshThreshold: refreshThreshold,
		exemptPaths:      exempt,
	}
}

// Middleware returns the auth-enforcing http middleware.
func (g *AuthGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, fromCookie := g.extractToken(r)
			if token == "" {
				httputil.WriteError(w, cperrors.NoCredentials())
				return
			}

			claims, err := g.issuer.Verify(token)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := r.Context()
			ctx = WithSessionClaims(ctx, claims)
			ctx = logging.WithUserID(ctx, claims.UserID)
			ctx = logging.WithRole(ctx, claims.Role)
			if claims.WorkspaceID != "" {
				ctx = logging.WithWorkspaceID(ctx, claims.WorkspaceID)
			}
			r = r.WithContext(ctx)

			if fromCookie && claims.NeedsRefresh(g.refreshThreshold) {
				g.rollingRefresh(w, claims)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isExempt matches an exact path, or a trailing-slash prefix entry
// against everything below it (used for the public share-link resolver,
// which carries a variable token segment).
func (g *AuthGuard) isExempt(path string) bool {
	if _, ok := g.exemptPaths[path]; ok {
		return true
	}
	for p := range g.exemptPaths {
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// extractToken implements the Bearer-over-cookie precedence rule: an
// Authorization header always wins, even if a (possibly stale) session
// cookie is also present.
func (g *AuthGuard) extractToken(r *http.Request) (token string, fromCookie bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if rest, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(rest), false
		}
	}
	if cookie, err := r.Cookie(g.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func (g *AuthGuard) rollingRefresh(w http.ResponseWriter, claims *SessionClaims) {
	token, refreshed, err := g.issuer.Refresh(claims)
	if err != nil {
		return
	}
	g.SetCookie(w, token, refreshed)
}

// SetCookie writes the session cookie with the attributes spec.md §4.3
// requires: HttpOnly always, SameSite=Lax, Secure unless local-dev
// cookies are explicitly allowed.
func (g *AuthGuard) SetCookie(w http.ResponseWriter, token string, claims *SessionClaims) {
	secure := !runtime.LocalDevCookies()
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(claims.ExpiresAt, 0),
	})
}

// ClearCookie expires the session cookie immediately, used on logout. Its
// flags match SetCookie's exactly (spec.md §4.3: "logout deletes the
// cookie with identical flags"), since a deletion whose attributes differ
// from the issuing cookie is a distinct cookie to some clients.
func (g *AuthGuard) ClearCookie(w http.ResponseWriter) {
	secure := !runtime.LocalDevCookies()
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// CSRFTokenFor implements middleware.SessionCSRFToken against the guard's
// own session resolution.
func (g *AuthGuard) CSRFTokenFor(r *http.Request) (string, bool) {
	claims, ok := SessionClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.CSRFToken, true
}
