package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestSubtractPointsSufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	// One conditional statement: debit and balance check together, so a
	// concurrent debit cannot slip between a read and a write.
	mock.ExpectExec("update user_points set points = points").
		WithArgs(int64(7), int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SubtractPoints(context.Background(), 7, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubtractPointsInsufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("update user_points set points = points").
		WithArgs(int64(7), int64(150)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SubtractPoints(context.Background(), 7, 150)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsUnknownUserIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery("select points").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"points"}))

	points, err := repo.Points(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), points)
}

func TestAddPointsUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("insert into user_points").
		WithArgs(int64(7), int64(500)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddPoints(context.Background(), 7, 500))
	assert.NoError(t, mock.ExpectationsWereMet())
}
