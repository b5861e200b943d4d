package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/pkg/database"
)

func newMockRepo(t *testing.T) (*AdminRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAdminRepo(sqlx.NewDb(db, "sqlmock")), mock
}

var credentialColumns = []string{
	"sys_user_id", "sys_user_uuid", "sys_user_email_aes", "sys_user_email_sha",
	"sys_user_password", "sys_user_created_at", "sys_user_updated_at",
	"sys_user_attempts", "sys_user_last_attempt", "sys_user_enabled",
}

func TestFindByID(t *testing.T) {
	r, mock := newMockRepo(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`FROM store\.sys_admin_user WHERE sys_user_uuid=\$1 AND sys_user_enabled=true`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow(7, "u-1", "enc", "sha", "$2b$12$hash", created, nil, 2, nil, true))

	c, err := r.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ID)
	assert.Equal(t, "u-1", c.UUID)
	assert.Equal(t, "enc", c.EmailAES)
	assert.Equal(t, "$2b$12$hash", c.PasswordHash)
	assert.Equal(t, 2, c.Attempts)
	assert.Nil(t, c.LastAttempt)
	assert.True(t, c.Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameHash_Absent(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE sys_user_email_sha=\$1`).
		WithArgs("nohash").
		WillReturnRows(sqlmock.NewRows(credentialColumns))

	c, err := r.FindByUsernameHash(context.Background(), "nohash")
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind_StorageError(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE sys_user_email_sha=\$1`).
		WillReturnError(errors.New("connection refused"))

	c, err := r.FindByUsernameHash(context.Background(), "h")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}

func TestNilHandle_FailsFast(t *testing.T) {
	r := NewAdminRepo(nil)

	_, err := r.FindByID(context.Background(), "u-1")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)

	_, err = r.FindByUsernameHash(context.Background(), "h")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)

	assert.ErrorIs(t, r.RecordFailedAttempt(context.Background(), "u-1"), apperr.ErrStorageUnavailable)
}

func TestAttemptBookkeeping(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`SET sys_user_attempts = sys_user_attempts \+ 1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET sys_user_attempts=0`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SET sys_user_attempts=0`).
		WithArgs("u-2").
		WillReturnError(errors.New("timeout"))

	require.NoError(t, r.RecordFailedAttempt(context.Background(), "u-1"))
	require.NoError(t, r.ResetAttempts(context.Background(), "u-1"))
	assert.ErrorIs(t, r.ResetAttempts(context.Background(), "u-2"), apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupAfterFailedPing(t *testing.T) {
	raw, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	db := sqlx.NewDb(raw, "sqlmock")
	cfg := database.Config{Timeout: time.Second}

	mock.ExpectPing().WillReturnError(errors.New("dial tcp 10.0.3.7:5432: connection refused"))
	mock.ExpectQuery(`WHERE sys_user_email_sha=\$1`).
		WithArgs("sha").
		WillReturnRows(sqlmock.NewRows(credentialColumns).
			AddRow(7, "u-1", "enc", "sha", "$2b$12$hash", time.Now(), nil, 0, nil, true))

	// the boot ping fails but the pool stays usable
	require.Error(t, database.Ping(context.Background(), db, cfg))

	c, err := NewAdminRepo(db).FindByUsernameHash(context.Background(), "sha")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "u-1", c.UUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
