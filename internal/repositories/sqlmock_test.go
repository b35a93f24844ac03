package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookatme/backend/internal/models"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	return conn, mock
}

func TestUserCreateClassifiesPostgresErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "UniqueViolation", err: &pgconn.PgError{Code: "23505"}, wantErr: ErrConflict},
		{name: "Other", err: errors.New("connection reset"), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := setupMockDB(t)
			repo := NewSQLUserRepository(conn)

			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).WillReturnError(tt.err)

			_, err := repo.Create(context.Background(), models.User{Name: "a", Email: "a@example.com", Password: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.ErrorIs(t, err, tt.err)
			assert.NotErrorIs(t, err, ErrConflict)
		})
	}
}

func TestFriendRequestRollsBackOnFailure(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewSQLFriendRepository(conn)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
		WithArgs(int64(2), int64(1)).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := repo.Request(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestFriendRequestMapsForeignKeyViolation(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewSQLFriendRepository(conn)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO friends`)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.Request(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFriendRequestAcceptsReversePending(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewSQLFriendRepository(conn)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.FriendPending))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE friends SET status = 'accepted'`)).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, err := repo.Request(context.Background(), 1, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.FriendAccepted, status)
}

func TestFriendRequestRetriesSerializationFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(mockDB, "pgx")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	repo := NewSQLFriendRepository(conn)

	// The first attempt loses a race with the opposite request.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO friends`)).
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.FriendPending))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE friends SET status = 'accepted'`)).
		WithArgs(int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, err := repo.Request(context.Background(), 1, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.FriendAccepted, status)
}

func TestFriendRequestGivesUpAfterRepeatedSerializationFailures(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := sqlx.NewDb(mockDB, "pgx")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})
	repo := NewSQLFriendRepository(conn)

	for i := 0; i < requestRetryAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM friends`)).
			WillReturnError(&pgconn.PgError{Code: "40001"})
		mock.ExpectRollback()
	}

	_, err = repo.Request(context.Background(), 1, 2, time.Now())
	require.Error(t, err)
	assert.True(t, isSerializationFailure(err))
}

func TestRowsAffectedFailures(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewSQLPostRepository(conn)
	driverErr := errors.New("rows affected unsupported")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewErrorResult(driverErr))

	err := repo.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, driverErr)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestReadFailuresAreWrapped(t *testing.T) {
	conn, mock := setupMockDB(t)
	friends := NewSQLFriendRepository(conn)
	users := NewSQLUserRepository(conn)
	boom := errors.New("timeout")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT`)).WillReturnError(boom)
	_, err := friends.Summary(context.Background(), 1)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT`)).WillReturnError(boom)
	_, err = users.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT`)).
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "total_posts", "online_users", "admin_users", "premium_users", "advertiser_users"}).
			AddRow(1, 0, 0, 0, 0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC`)).WillReturnError(boom)
	_, err = users.Statistics(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
}

func TestConstraintErrorIgnoresOtherCodes(t *testing.T) {
	assert.NoError(t, constraintError(&pgconn.PgError{Code: "40001"}))
	assert.False(t, isSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isSerializationFailure(errors.New("boom")))
	assert.NoError(t, constraintError(errors.New("plain")))
	assert.ErrorIs(t, constraintError(&pgconn.PgError{Code: "23503"}), ErrNotFound)
}
