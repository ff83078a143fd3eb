package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/boringdata/boring-ui-controlplane/domain/sharelink"
)

// ShareLinkStore is a sqlx-backed sharelink.Repository.
type ShareLinkStore struct {
	db *sqlx.DB
}

// NewShareLinkStore builds a ShareLinkStore over an open *sqlx.DB.
func NewShareLinkStore(db *sqlx.DB) *ShareLinkStore {
	return &ShareLinkStore{db: db}
}

const shareLinkColumns = `id, workspace_id, token_hash, path, created_by, access,
	max_uses, use_count, expires_at, revoked_at, created_at`

func (s *ShareLinkStore) Create(ctx context.Context, link *sharelink.ShareLink) error {
	const q = `
		INSERT INTO share_links
			(id, workspace_id, token_hash, path, created_by, access, max_uses, use_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)`
	_, err := s.db.ExecContext(ctx, q, link.ID, link.WorkspaceID, link.TokenHash, link.Path,
		link.CreatedBy, string(link.Access), link.MaxUses, link.ExpiresAt, link.CreatedAt)
	return err
}

func (s *ShareLinkStore) GetByTokenHash(ctx context.Context, tokenHash string) (*sharelink.ShareLink, error) {
	var row shareLinkRow
	q := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE token_hash = $1`
	if err := s.db.GetContext(ctx, &row, q, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sharelink.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *ShareLinkStore) GetByID(ctx context.Context, workspaceID, id string) (*sharelink.ShareLink, error) {
	var row shareLinkRow
	q := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE id = $1 AND workspace_id = $2`
	if err := s.db.GetContext(ctx, &row, q, id, workspaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sharelink.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *ShareLinkStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]sharelink.ShareLink, error) {
	var rows []shareLinkRow
	q := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE workspace_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &rows, q, workspaceID); err != nil {
		return nil, err
	}
	out := make([]sharelink.ShareLink, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toDomain())
	}
	return out, nil
}

func (s *ShareLinkStore) Revoke(ctx context.Context, workspaceID, id string) error {
	const q = `UPDATE share_links SET revoked_at = now() WHERE id = $1 AND workspace_id = $2 AND revoked_at IS NULL`
	res, err := s.db.ExecContext(ctx, q, id, workspaceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Idempotent: either already revoked or absent. Distinguish by presence.
		if _, err := s.GetByID(ctx, workspaceID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *ShareLinkStore) RecordUse(ctx context.Context, id string) error {
	const q = `UPDATE share_links SET use_count = use_count + 1 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sharelink.ErrNotFound
	}
	return nil
}

// shareLinkRow mirrors the share_links table layout; sharelink.ShareLink
// keeps its Access field typed, which sqlx cannot scan directly from TEXT.
type shareLinkRow struct {
	ID          string     `db:"id"`
	WorkspaceID string     `db:"workspace_id"`
	TokenHash   string     `db:"token_hash"`
	Path        string     `db:"path"`
	CreatedBy   string     `db:"created_by"`
	Access      string     `db:"access"`
	MaxUses     int        `db:"max_uses"`
	UseCount    int        `db:"use_count"`
	ExpiresAt   *time.Time `db:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r shareLinkRow) toDomain() *sharelink.ShareLink {
	return &sharelink.ShareLink{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Path:        r.Path,
		TokenHash:   r.TokenHash,
		Access:      sharelink.Access(r.Access),
		CreatedBy:   r.CreatedBy,
		MaxUses:     r.MaxUses,
		UseCount:    r.UseCount,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		RevokedAt:   r.RevokedAt,
	}
}
