package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/admin/entity"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
)

// Directory looks up admin credentials. Absent rows are (nil, nil); an
// unreachable store is an error wrapping apperr.ErrStorageUnavailable.
type Directory interface {
	FindByID(ctx context.Context, id string) (*entity.Credential, error)
	FindByUsernameHash(ctx context.Context, hash string) (*entity.Credential, error)
	RecordFailedAttempt(ctx context.Context, id string) error
	ResetAttempts(ctx context.Context, id string) error
}

const columns = `sys_user_id, sys_user_uuid, sys_user_email_aes, sys_user_email_sha,
		sys_user_password, sys_user_created_at, sys_user_updated_at,
		sys_user_attempts, sys_user_last_attempt, sys_user_enabled`

// AdminRepo is the PostgreSQL Directory over store.sys_admin_user.
type AdminRepo struct {
	db *sqlx.DB
}

func NewAdminRepo(db *sqlx.DB) *AdminRepo { return &AdminRepo{db: db} }

var _ Directory = (*AdminRepo)(nil)

// FindByID returns the enabled admin with the given uuid.
func (r *AdminRepo) FindByID(ctx context.Context, id string) (*entity.Credential, error) {
	const q = `SELECT ` + columns + `
	  FROM store.sys_admin_user WHERE sys_user_uuid=$1 AND sys_user_enabled=true`
	return r.get(ctx, q, id)
}

// FindByUsernameHash returns the admin whose email digest matches hash.
// Disabled rows are returned too; callers decide what to do with them.
func (r *AdminRepo) FindByUsernameHash(ctx context.Context, hash string) (*entity.Credential, error) {
	const q = `SELECT ` + columns + `
	  FROM store.sys_admin_user WHERE sys_user_email_sha=$1`
	return r.get(ctx, q, hash)
}

func (r *AdminRepo) RecordFailedAttempt(ctx context.Context, id string) error {
	const q = `UPDATE store.sys_admin_user SET sys_user_attempts = sys_user_attempts + 1,
		sys_user_last_attempt=NOW() WHERE sys_user_uuid=$1`
	return r.exec(ctx, q, id)
}

func (r *AdminRepo) ResetAttempts(ctx context.Context, id string) error {
	const q = `UPDATE store.sys_admin_user SET sys_user_attempts=0,
		sys_user_last_attempt=NOW() WHERE sys_user_uuid=$1`
	return r.exec(ctx, q, id)
}

func (r *AdminRepo) get(ctx context.Context, q string, arg any) (*entity.Credential, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("admin repo not initialized: %w", apperr.ErrStorageUnavailable)
	}
	var c entity.Credential
	if err := r.db.GetContext(ctx, &c, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return &c, nil
}

func (r *AdminRepo) exec(ctx context.Context, q string, arg any) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("admin repo not initialized: %w", apperr.ErrStorageUnavailable)
	}
	if _, err := r.db.ExecContext(ctx, q, arg); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	return nil
}
