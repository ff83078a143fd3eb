package sharelink

import (
	"context"

	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/security"
)

const auditTokenPrefixLen = 8

// auditToken reduces a plaintext token to its redacted audit representation:
// the first few characters followed by a redaction marker, never the full
// value (spec.md §4.10).
func auditToken(token string) string {
	return security.TokenPrefix(token, auditTokenPrefixLen)
}

// logAudit emits a structured audit line for a share-link lifecycle event.
// action is one of create/access/deny/revoke/write. The token field is
// always reduced to its redacted prefix; the plaintext never reaches a log
// line (spec.md §4.10).
func logAudit(ctx context.Context, logger *logging.Logger, action, workspaceID, linkID, token string, extra map[string]interface{}) {
	if logger == nil {
		return
	}
	fields := map[string]interface{}{
		"share_id": linkID,
		"token":    auditToken(token),
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.LogSecurityEvent(ctx, "share_link."+action, fields)
	logger.LogAudit(ctx, "share_link."+action, workspaceID, logging.RequestID(ctx))
}
