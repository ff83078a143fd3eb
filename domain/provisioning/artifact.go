package provisioning

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// ProvisioningTarget resolves an application release into a concrete,
// placeable artifact (spec.md §4.7).
type ProvisioningTarget struct {
	WorkspaceID  string
	AppID        string
	ReleaseID    string
	BundleSHA256 string
	SandboxName  string
}

// AppRelease describes an application's resolvable releases.
type AppRelease struct {
	AppID            string
	DefaultReleaseID string
}

// ArtifactStore is the release/artifact contract: for each (app_id,
// release_id) it holds a bundle, a BSD-format checksum file, and a
// manifest.
type ArtifactStore interface {
	// OpenBundle returns a reader over the release's bundle file. Callers
	// must close it.
	OpenBundle(ctx context.Context, appID, releaseID string) (io.ReadCloser, error)
	// ReadChecksum returns the BSD-format checksum file's raw contents
	// ("<hex>  <filename>").
	ReadChecksum(ctx context.Context, appID, releaseID string) ([]byte, error)
}

// ResolveTarget resolves (appID, explicitReleaseID) to a ProvisioningTarget.
// An explicit release ID always wins over the app's default. If neither
// resolves, or the artifact store has no checksum for the resolved
// release, it fails with RELEASE_UNAVAILABLE.
func ResolveTarget(ctx context.Context, store ArtifactStore, release AppRelease, workspaceID, environment, explicitReleaseID string) (*ProvisioningTarget, error) {
	releaseID := strings.TrimSpace(explicitReleaseID)
	if releaseID == "" {
		releaseID = release.DefaultReleaseID
	}
	if releaseID == "" {
		return nil, cperrors.ReleaseUnavailable("no release id resolvable")
	}

	checksumRaw, err := store.ReadChecksum(ctx, release.AppID, releaseID)
	if err != nil {
		return nil, cperrors.ReleaseUnavailable(fmt.Sprintf("checksum unavailable: %v", err))
	}
	digest, _, err := ParseBSDChecksum(checksumRaw)
	if err != nil {
		return nil, cperrors.ReleaseUnavailable(fmt.Sprintf("checksum unreadable: %v", err))
	}

	sandbox, err := SandboxName(release.AppID, workspaceID, environment)
	if err != nil {
		return nil, err
	}

	return &ProvisioningTarget{
		WorkspaceID:  workspaceID,
		AppID:        release.AppID,
		ReleaseID:    releaseID,
		BundleSHA256: digest,
		SandboxName:  sandbox,
	}, nil
}

// bsdChecksumLine matches the BSD checksum format: "<hex digest>  <filename>".
var bsdChecksumLine = regexp.MustCompile(`^([a-fA-F0-9]{64})\s+(.+)$`)

// ParseBSDChecksum parses a BSD-format SHA-256 checksum file's contents,
// returning the lowercased hex digest and the named file.
func ParseBSDChecksum(raw []byte) (digest string, filename string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m := bsdChecksumLine.FindStringSubmatch(line)
		if m == nil {
			return "", "", fmt.Errorf("malformed checksum line: %q", line)
		}
		return strings.ToLower(m[1]), m[2], nil
	}
	return "", "", fmt.Errorf("empty checksum file")
}

// VerifyChecksum computes bundle's SHA-256 digest and compares it against
// expected, returning ArtifactChecksumMismatch on disagreement.
func VerifyChecksum(bundle io.Reader, expected string) error {
	h := sha256.New()
	if _, err := io.Copy(h, bundle); err != nil {
		return cperrors.Internal(err)
	}
	observed := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(observed, expected) {
		return cperrors.ArtifactChecksumMismatch(expected, observed)
	}
	return nil
}

// slugPattern matches characters permitted in a sandbox-name token.
var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

const maxSandboxNameLength = 63

// SandboxName builds the deterministic sandbox name
// sbx-{app_id}-{workspace_id}-{env}, lowercasing, stripping non-slug
// characters, collapsing repeats, and bounding length (spec.md §4.7).
func SandboxName(appID, workspaceID, env string) (string, error) {
	tokens := []string{slugify(appID), slugify(workspaceID), slugify(env)}
	for i, t := range tokens {
		if t == "" {
			return "", fmt.Errorf("provisioning: sandbox name token %d is empty after normalization", i)
		}
	}

	name := "sbx-" + strings.Join(tokens, "-")
	if len(name) > maxSandboxNameLength {
		name = name[:maxSandboxNameLength]
	}
	return name, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugPattern.ReplaceAllString(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
