package security

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeProxyHeadersStripsDenylistAndInjectsBearer(t *testing.T) {
	inbound := http.Header{}
	inbound.Set("Authorization", "Bearer user-supplied")
	inbound.Set("Cookie", "cp_session=abc")
	inbound.Set("X-Sprite-Bearer", "forged")
	inbound.Set("X-User-Id", "spoofed")
	inbound.Set("X-Request-ID", "req-1")
	inbound.Set("X-Workspace-ID", "ws-1")
	inbound.Set("Content-Type", "application/json")

	cfg := NewProxyHeaderConfig("X-Sprite-Bearer", "server-secret-token", nil)
	out := SanitizeProxyHeaders(inbound, cfg)

	assert.Empty(t, out.Get("Authorization"))
	assert.Empty(t, out.Get("Cookie"))
	assert.Empty(t, out.Get("X-User-Id"))
	assert.Equal(t, "server-secret-token", out.Get("X-Sprite-Bearer"))
	assert.Equal(t, "req-1", out.Get("X-Request-ID"))
	assert.Equal(t, "ws-1", out.Get("X-Workspace-ID"))
	assert.Equal(t, "application/json", out.Get("Content-Type"))
}

func TestSanitizeProxyHeadersCaseInsensitiveDenylist(t *testing.T) {
	inbound := http.Header{}
	inbound["aUtHoRiZaTiOn"] = []string{"Bearer x"}

	cfg := NewProxyHeaderConfig("", "", nil)
	out := SanitizeProxyHeaders(inbound, cfg)

	for key := range out {
		assert.NotEqual(t, "authorization", httpCanonicalLower(key))
	}
}

func httpCanonicalLower(key string) string {
	out := []byte(key)
	for i, b := range out {
		if b >= 'A' && b <= 'Z' {
			out[i] = b + ('a' - 'A')
		}
	}
	return string(out)
}

func TestRedactResponseHeadersStripsSetCookie(t *testing.T) {
	resp := http.Header{}
	resp.Set("Set-Cookie", "session=leak")
	resp.Set("Content-Type", "text/html")

	out := RedactResponseHeaders(resp)

	assert.Empty(t, out.Get("Set-Cookie"))
	assert.Equal(t, "text/html", out.Get("Content-Type"))
}

func TestTokenPrefix(t *testing.T) {
	got := TokenPrefix("abcdefgh", 4)
	assert.Equal(t, "abcd"+redactionMarker, got)
}

func TestRedactTokensReplacesTokenShapedSequences(t *testing.T) {
	token := "AbCdEfGhIjKlMnOpQrStUvWxYz0123456789ABCdefG" // 43 chars
	msg := "share link accessed with token " + token
	got := RedactTokens(msg)
	assert.NotContains(t, got, token)
	assert.Contains(t, got, redactionMarker)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("secret", "secret"))
	assert.False(t, ConstantTimeEqual("secret", "different"))
	assert.False(t, ConstantTimeEqual("short", "a-much-longer-value"))
}
