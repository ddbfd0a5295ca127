package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
)

func TestDirectoryRepositoryListWithCourseFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM public_profiles WHERE is_listed = TRUE")).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"profile_id", "full_name", "program", "year", "courses", "rate_cents", "contact", "is_listed", "updated_at"}).
		AddRow("u1", "Mara Vogel", "CS", 3, pq.StringArray{"CS101"}, 1500, "mara@thi.de", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT profile_id, full_name, program, year, courses")).
		WithArgs("CS101", 20, 0).
		WillReturnRows(rows)

	entries, total, err := repo.List(context.Background(), models.DirectoryFilter{Course: "CS101", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, entries, 1)
	require.True(t, entries[0].IsListed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositorySetListed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE public_profiles SET is_listed")).
		WithArgs("u1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetListed(context.Background(), "u1", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDirectoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO public_profiles")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.DirectoryEntry{ProfileID: "u1", IsListed: true}
	require.NoError(t, repo.Upsert(context.Background(), entry))
	require.NotNil(t, entry.Courses)
	require.NoError(t, mock.ExpectationsWereMet())
}
