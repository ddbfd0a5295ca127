package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestProfileRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	rows := sqlmock.NewRows([]string{"id", "full_name", "program", "year", "contact", "courses", "rate_cents", "preferred_role", "created_at", "updated_at"}).
		AddRow("u1", "Mara Vogel", "CS", 3, "mara@thi.de", pq.StringArray{"CS101"}, 1500, "tutor", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, program, year, contact, courses, rate_cents, preferred_role")).
		WithArgs("u1").
		WillReturnRows(rows)

	profile, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", profile.ID)
	require.Equal(t, models.Role("tutor"), profile.PreferredRole)
	require.Equal(t, pq.StringArray{"CS101"}, profile.Courses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewProfileRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	contact := "mara@thi.de"
	profile := &models.Profile{
		ID:            "u1",
		Contact:       &contact,
		PreferredRole: models.RoleTutor,
	}
	require.NoError(t, repo.Upsert(context.Background(), profile))
	require.NotNil(t, profile.Courses)
	require.False(t, profile.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
