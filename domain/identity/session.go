package identity

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// sessionHKDFInfo domain-separates the derived signing key from any other
// key an hkdf.Expand over the same master secret might produce.
const sessionHKDFInfo = "controlplane.session.v1"

// SessionClaims is the payload carried by a self-issued opaque session
// token (spec.md §4.2: "the control plane issues its own session token
// rather than forwarding the IdP's JWT to the browser").
type SessionClaims struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	CSRFToken   string `json:"csrf"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// IsExpired reports whether the session has passed its exp.
func (c *SessionClaims) IsExpired() bool {
	return time.Now().Unix() > c.ExpiresAt
}

// NeedsRefresh reports whether the session is within threshold of
// expiring, the rolling-refresh trigger from spec.md §4.3.
func (c *SessionClaims) NeedsRefresh(threshold time.Duration) bool {
	return time.Until(time.Unix(c.ExpiresAt, 0)) <= threshold
}

// SessionIssuer mints and verifies opaque session tokens: a base64url
// JSON payload concatenated with an HMAC-SHA256 signature over that
// payload, the same "signed opaque blob" shape as the control plane's
// proxy bearer handling, never a re-exposed upstream JWT.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer builds a SessionIssuer. The secret must be at least 32
// bytes; config.Config.Validate enforces this before Load returns. The
// HMAC key actually used to sign tokens is derived from secret via
// HKDF-SHA256 rather than the raw secret, so the same master secret can
// later be reused to derive other independent keys without sharing key
// material between them.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	derived := make([]byte, sha256.Size)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionHKDFInfo))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		panic(fmt.Sprintf("identity: failed to derive session signing key: %v", err))
	}
	return &SessionIssuer{secret: derived, ttl: ttl}
}

// Issue mints a fresh session token for the given identity.
func (s *SessionIssuer) Issue(userID, email, role, workspaceID string) (string, *SessionClaims, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID:      userID,
		Email:       email,
		Role:        role,
		WorkspaceID: workspaceID,
		CSRFToken:   newCSRFToken(),
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	}
	token, err := s.encode(claims)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Refresh mints a new token carrying the same identity but a fresh
// expiry and CSRF token, used by the rolling-refresh path.
func (s *SessionIssuer) Refresh(claims *SessionClaims) (string, *SessionClaims, error) {
	return s.Issue(claims.UserID, claims.Email, claims.Role, claims.WorkspaceID)
}

func (s *SessionIssuer) encode(claims *SessionClaims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	sig := s.sign(payloadEnc)
	return payloadEnc + "." + sig, nil
}

func (s *SessionIssuer) sign(payloadEnc string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payloadEnc))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify decodes and authenticates a session token, rejecting it if the
// signature does not match or the claims have expired.
func (s *SessionIssuer) Verify(token string) (*SessionClaims, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, cperrors.InvalidSession()
	}
	payloadEnc, sig := parts[0], parts[1]

	expected := s.sign(payloadEnc)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return nil, cperrors.InvalidSession()
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadEnc)
	if err != nil {
		return nil, cperrors.InvalidSession()
	}

	var claims SessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, cperrors.InvalidSession()
	}
	if claims.IsExpired() {
		return nil, cperrors.SessionExpired()
	}

	return &claims, nil
}

func newCSRFToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("identity: failed to generate csrf token: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
