package match

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/transitions"
	"github.com/google/uuid"
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

func reasonRows(reasonID uuid.UUID, code string, auto bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "entity_type", "from_status", "to_status", "code", "label", "auto"}).
		AddRow(reasonID, "match", "pending", "rejected", code, "Owner rejected", auto)
}

func TestTransitionTx(t *testing.T) {
	gdb, mock := newMockDB(t)

	actorID := uuid.New()
	m := &models.Match{
		Base:    models.Base{ID: uuid.New()},
		Status:  models.MatchStatusPending,
		Version: 3,
	}

	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRows(uuid.New(), models.ReasonCodeOwnerRejectedMatch, false))
	mock.ExpectExec(`UPDATE "matches" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The ledger insert returns its generated id.
	mock.ExpectQuery(`INSERT INTO "status_transitions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	err := TransitionTx(gdb, m, models.MatchStatusRejected, models.ReasonCodeOwnerRejectedMatch, false, &actorID, "not my document")
	require.NoError(t, err)

	// The in-memory copy advances with the row.
	assert.Equal(t, models.MatchStatusRejected, m.Status)
	assert.Equal(t, 4, m.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxConflict(t *testing.T) {
	gdb, mock := newMockDB(t)

	actorID := uuid.New()
	m := &models.Match{
		Base:    models.Base{ID: uuid.New()},
		Status:  models.MatchStatusPending,
		Version: 1,
	}

	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRows(uuid.New(), models.ReasonCodeOwnerRejectedMatch, false))
	// A concurrent transition already changed status or version.
	mock.ExpectExec(`UPDATE "matches" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := TransitionTx(gdb, m, models.MatchStatusRejected, models.ReasonCodeOwnerRejectedMatch, false, &actorID, "")
	assert.ErrorIs(t, err, ErrConflict)

	// The loaded copy must not advance and no ledger row is written.
	assert.Equal(t, models.MatchStatusPending, m.Status)
	assert.Equal(t, 1, m.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxUnregisteredReasonFailsClosed(t *testing.T) {
	gdb, mock := newMockDB(t)

	actorID := uuid.New()
	m := &models.Match{
		Base:    models.Base{ID: uuid.New()},
		Status:  models.MatchStatusPending,
		Version: 0,
	}

	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := TransitionTx(gdb, m, models.MatchStatusRejected, "MADE_UP_CODE", false, &actorID, "")
	assert.ErrorIs(t, err, transitions.ErrReasonNotRegistered)
	assert.Equal(t, models.MatchStatusPending, m.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
