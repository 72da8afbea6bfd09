package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Revocations is the durable denylist repository
type Revocations interface {
	RevocationStore

	AddTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind, ownerID string, expiresAt time.Time, reason string) error
	IsRevokedTx(ctx context.Context, tx bun.IDB, token string) (bool, error)
	PurgeExpiredTx(ctx context.Context, tx bun.IDB) (int, error)
}

type revocations struct {
	db *bun.DB
}

var _ Revocations = (*revocations)(nil)

// NewRevocationsRepository creates a bun backed RevocationStore over the
// token_blacklist table.
func NewRevocationsRepository(db *bun.DB) Revocations {
	return &revocations{db: db}
}

func (r *revocations) Add(ctx context.Context, token string, kind TokenKind, ownerID string, expiresAt time.Time, reason string) error {
	return r.AddTx(ctx, r.db, token, kind, ownerID, expiresAt, reason)
}

func (r *revocations) AddTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind, ownerID string, expiresAt time.Time, reason string) error {
	entry := &TokenBlacklist{
		ID:        uuid.New(),
		TokenHash: fingerprintToken(token),
		TokenKind: kind,
		UserID:    ownerID,
		Reason:    reason,
		ExpiresAt: expiresAt,
	}

	// revoking twice is a no-op, not an error
	_, err := tx.NewInsert().
		Model(entry).
		On("CONFLICT (token_hash) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record token revocation")
	}

	return nil
}

func (r *revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	return r.IsRevokedTx(ctx, r.db, token)
}

func (r *revocations) IsRevokedTx(ctx context.Context, tx bun.IDB, token string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*TokenBlacklist)(nil)).
		Where("?TableAlias.token_hash = ?", fingerprintToken(token)).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Exists(ctx)

	if err != nil && err != sql.ErrNoRows {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
	}

	return exists, nil
}

func (r *revocations) PurgeExpired(ctx context.Context) (int, error) {
	return r.PurgeExpiredTx(ctx, r.db)
}

func (r *revocations) PurgeExpiredTx(ctx context.Context, tx bun.IDB) (int, error) {
	res, err := tx.NewDelete().
		Model((*TokenBlacklist)(nil)).
		Where("?TableAlias.expires_at <= ?", time.Now()).
		Exec(ctx)

	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge expired revocations")
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(count), nil
}
