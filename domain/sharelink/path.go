package sharelink

import (
	"net/url"
	"strings"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// NormalizePath enforces a leading slash, collapses "." segments and
// repeated slashes, and rejects any ".." segment (literal or
// percent-encoded) as a traversal attempt (spec.md §4.10).
func NormalizePath(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", cperrors.PathTraversal()
	}

	if !strings.HasPrefix(decoded, "/") {
		decoded = "/" + decoded
	}

	segments := strings.Split(decoded, "/")
	var clean []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", cperrors.PathTraversal()
		default:
			clean = append(clean, seg)
		}
	}

	return "/" + strings.Join(clean, "/"), nil
}
