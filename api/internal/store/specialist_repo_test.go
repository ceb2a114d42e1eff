package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementRecommendationSingleStatement(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSpecialistRepo(db)

	mock.ExpectExec(`update specialists set rec_count = rec_count \+ 1`).
		WithArgs("Cardiologist").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementRecommendation(context.Background(), "Cardiologist"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNamesInsertionOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSpecialistRepo(db)

	mock.ExpectQuery("select name from specialists order by id").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Cardiologist").
			AddRow("Hematologist"))

	names, err := repo.ListNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiologist", "Hematologist"}, names)
}
