package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// IdentityClaims is the normalized view of an inbound credential, whether
// it came from the upstream IdP's JWT or a self-issued session token
// (spec.md §4.2).
type IdentityClaims struct {
	UserID      string
	Email       string
	Role        string
	WorkspaceID string
	Audience    string
	ExpiresAt   int64
	IssuedAt    int64
}

// IsExpired reports whether the claims' exp has passed.
func (c *IdentityClaims) IsExpired() bool {
	return time.Now().Unix() > c.ExpiresAt
}

// TokenVerifier validates an upstream-issued JWT against a KeyProvider and
// normalizes its claims. It never accepts the "none" algorithm and always
// requires an explicit audience match when one is configured.
type TokenVerifier struct {
	keys     KeyProvider
	audience string
}

// NewTokenVerifier builds a TokenVerifier. audience may be empty to skip
// audience validation.
func NewTokenVerifier(keys KeyProvider, audience string) *TokenVerifier {
	return &TokenVerifier{keys: keys, audience: strings.TrimSpace(audience)}
}

// Verify parses and validates tokenString, returning normalized claims or a
// *cperrors.ServiceError drawn from spec.md §7's auth taxonomy.
func (v *TokenVerifier) Verify(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.Parse(tokenString, v.keys.Keyfunc, jwt.WithValidMethods([]string{"HS256", "RS256"}))
	if err != nil {
		if strings.Contains(err.Error(), "token is expired") {
			return nil, cperrors.TokenExpired()
		}
		return nil, cperrors.Malformed(err)
	}
	if !token.Valid {
		return nil, cperrors.InvalidSignature(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, cperrors.Malformed(nil)
	}

	claims := parseMapClaims(mapClaims)

	if v.audience != "" && !strings.EqualFold(claims.Audience, v.audience) {
		return nil, cperrors.InvalidAudience()
	}
	if claims.UserID == "" {
		return nil, cperrors.MissingClaim("sub")
	}
	if claims.IsExpired() {
		return nil, cperrors.TokenExpired()
	}

	return claims, nil
}

func parseMapClaims(m jwt.MapClaims) *IdentityClaims {
	c := &IdentityClaims{}

	if sub, ok := m["sub"].(string); ok {
		c.UserID = sub
	}
	if email, ok := m["email"].(string); ok {
		c.Email = email
	}
	if role, ok := m["role"].(string); ok {
		c.Role = role
	}
	if aud, ok := m["aud"].(string); ok {
		c.Audience = aud
	}
	if exp, ok := m["exp"].(float64); ok {
		c.ExpiresAt = int64(exp)
	}
	if iat, ok := m["iat"].(float64); ok {
		c.IssuedAt = int64(iat)
	}

	if workspaceID, ok := m["workspace_id"].(string); ok {
		c.WorkspaceID = workspaceID
	} else if appMeta, ok := m["app_metadata"].(map[string]interface{}); ok {
		if workspaceID, ok := appMeta["workspace_id"].(string); ok {
			c.WorkspaceID = workspaceID
		}
	}

	return c
}
