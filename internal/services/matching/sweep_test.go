package matching

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docufind/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func TestCreateMatch(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	foundCaseID := uuid.New()
	lostCaseID := uuid.New()
	analysis := &MatchAnalysis{OverallScore: 82, Confidence: "HIGH", Recommendation: "SAME_PERSON"}

	mock.ExpectQuery(`INSERT INTO "matches"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	match, err := svc.createMatch(context.Background(), foundCaseID, lostCaseID, analysis, nil)
	require.NoError(t, err)
	require.NotNil(t, match)

	assert.Equal(t, foundCaseID, match.FoundCaseID)
	assert.Equal(t, lostCaseID, match.LostCaseID)
	assert.Equal(t, models.MatchStatusPending, match.Status)
	assert.InDelta(t, 0.82, match.MatchScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMatchDuplicatePairIsNoOp(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	// A concurrent sweep already created the pair; the partial unique index
	// rejects the insert and the sweep moves on.
	mock.ExpectQuery(`INSERT INTO "matches"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	match, err := svc.createMatch(context.Background(), uuid.New(), uuid.New(),
		&MatchAnalysis{OverallScore: 82, Confidence: "HIGH", Recommendation: "SAME_PERSON"}, nil)
	require.NoError(t, err)
	assert.Nil(t, match)
	assert.NoError(t, mock.ExpectationsWereMet())
}
