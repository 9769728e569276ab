package claims

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/billing"
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

func TestCreateRequiresExactlyOneDeliveryChoice(t *testing.T) {
	// The delivery check runs before anything touches the database.
	svc := &Service{}
	userID := uuid.New()
	stationID := uuid.New()
	addressID := uuid.New()

	_, err := svc.Create(context.Background(), userID, CreateInput{MatchID: uuid.New()})
	assert.ErrorIs(t, err, ErrDeliveryChoice, "neither option set")

	_, err = svc.Create(context.Background(), userID, CreateInput{
		MatchID:         uuid.New(),
		PickupStationID: &stationID,
		AddressID:       &addressID,
	})
	assert.ErrorIs(t, err, ErrDeliveryChoice, "both options set")
}

func questionRows(qs []models.SecurityQuestion) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "found_case_id", "question", "normalized_answer"})
	for _, q := range qs {
		rows.AddRow(q.ID, q.FoundCaseID, q.Question, q.NormalizedAnswer)
	}
	return rows
}

func TestCheckSecurityAnswers(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	foundCaseID := uuid.New()
	q1 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Middle name on the card?", NormalizedAnswer: "mary ann"}
	q2 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Place of issue?", NormalizedAnswer: "accra"}

	mock.ExpectQuery(`SELECT .* FROM "security_questions"`).
		WillReturnRows(questionRows([]models.SecurityQuestion{q1, q2}))

	verification, err := svc.checkSecurityAnswers(context.Background(), foundCaseID, []SecurityAnswer{
		{QuestionID: q1.ID, Answer: "MARY-ANN"}, // fuzzy match
		{QuestionID: q2.ID, Answer: " ACCRA. "},
	})
	require.NoError(t, err)

	assert.True(t, verification.Passed, "all answers match after normalization")
	assert.Equal(t, 2, verification.QuestionsAsked)
	assert.Equal(t, 2, verification.CorrectAnswers)

	r1 := verification.QuestionResults[q1.ID.String()].(map[string]interface{})
	assert.Equal(t, true, r1["correct"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSecurityAnswersOneWrongAnswerFails(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	foundCaseID := uuid.New()
	q1 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Middle name on the card?", NormalizedAnswer: "mary ann"}
	q2 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Place of issue?", NormalizedAnswer: "accra"}

	mock.ExpectQuery(`SELECT .* FROM "security_questions"`).
		WillReturnRows(questionRows([]models.SecurityQuestion{q1, q2}))

	verification, err := svc.checkSecurityAnswers(context.Background(), foundCaseID, []SecurityAnswer{
		{QuestionID: q1.ID, Answer: "MARY-ANN"},
		{QuestionID: q2.ID, Answer: "Kumasi"}, // wrong
	})
	require.NoError(t, err)

	assert.False(t, verification.Passed, "one wrong answer fails the check")
	assert.Equal(t, 1, verification.CorrectAnswers)
	r2 := verification.QuestionResults[q2.ID.String()].(map[string]interface{})
	assert.Equal(t, false, r2["correct"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSecurityAnswersUnansweredQuestionFails(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	foundCaseID := uuid.New()
	q1 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Place of issue?", NormalizedAnswer: "accra"}
	q2 := models.SecurityQuestion{Base: models.Base{ID: uuid.New()}, FoundCaseID: foundCaseID, Question: "Date of birth year?", NormalizedAnswer: "1990"}

	mock.ExpectQuery(`SELECT .* FROM "security_questions"`).
		WillReturnRows(questionRows([]models.SecurityQuestion{q1, q2}))

	// One correct answer, one question left unanswered.
	verification, err := svc.checkSecurityAnswers(context.Background(), foundCaseID, []SecurityAnswer{
		{QuestionID: q1.ID, Answer: "Accra"},
	})
	require.NoError(t, err)

	assert.False(t, verification.Passed)
	assert.Equal(t, 1, verification.CorrectAnswers)
	r2 := verification.QuestionResults[q2.ID.String()].(map[string]interface{})
	assert.Equal(t, false, r2["answered"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func claimRows(claimID, matchID, foundCaseID, userID uuid.UUID, status models.ClaimStatus, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "match_id", "found_case_id", "user_id", "status", "version",
		"service_fee", "finder_reward", "total_amount",
	}).AddRow(claimID, matchID, foundCaseID, userID, status, version, 25.0, 50.0, 75.0)
}

func matchRows(matchID uuid.UUID, status models.MatchStatus, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "found_case_id", "lost_case_id", "status", "version"}).
		AddRow(matchID, uuid.New(), uuid.New(), status, version)
}

func reasonRow(entity models.EntityType, from, to, code string, auto bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "entity_type", "from_status", "to_status", "code", "label", "auto"}).
		AddRow(uuid.New(), entity, from, to, code, code, auto)
}

// expectClaimLoad covers the claim fetch with its preloads, which gorm runs
// in name order: Attachments, Match, Verification.
func expectClaimLoad(mock sqlmock.Sqlmock, claim *sqlmock.Rows, m *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT .* FROM "claims" WHERE id =`).WillReturnRows(claim)
	mock.ExpectQuery(`SELECT .* FROM "claim_attachments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM "matches"`).WillReturnRows(m)
	mock.ExpectQuery(`SELECT .* FROM "claim_verifications"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

// expectLedgerInsert covers the status_transitions insert, which returns its
// generated id.
func expectLedgerInsert(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`INSERT INTO "status_transitions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
}

func TestVerifyCascadesToMatchAndIssuesInvoice(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	adminID := uuid.New()

	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), uuid.New(), models.ClaimStatusPending, 1),
		matchRows(matchID, models.MatchStatusAwaitingClaimVerification, 2))

	mock.ExpectBegin()
	// Claim pending -> verified.
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeClaim, "pending", "verified", models.ReasonCodeAdminVerifiedClaim, false))
	mock.ExpectExec(`UPDATE "claims" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	// Match cascade awaiting_claim_verification -> claimed.
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeMatch, "awaiting_claim_verification", "claimed", models.ReasonCodeClaimVerified, true))
	mock.ExpectExec(`UPDATE "matches" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	// Invoice issued in the same transaction.
	mock.ExpectQuery(`SELECT .* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "invoices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	invoice, err := svc.Verify(context.Background(), claimID, adminID, "documents check out", false)
	require.NoError(t, err)
	require.NotNil(t, invoice)

	assert.Equal(t, claimID, invoice.ClaimID)
	assert.Equal(t, 75.0, invoice.TotalAmount, "invoice totals the claim's fee snapshot")
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyUnderReviewRequiresFlag(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), uuid.New(), models.ClaimStatusUnderReview, 3),
		matchRows(matchID, models.MatchStatusRejected, 3))

	// A plain verify must not resolve a claim that is under review.
	_, err := svc.Verify(context.Background(), claimID, uuid.New(), "", false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectVerifiedClaimRevokesMatch(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	adminID := uuid.New()

	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), uuid.New(), models.ClaimStatusVerified, 2),
		matchRows(matchID, models.MatchStatusClaimed, 3))

	mock.ExpectBegin()
	// Claim verified -> rejected, pulling the match back out of claimed.
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeClaim, "verified", "rejected", models.ReasonCodeAdminRejectedClaim, false))
	mock.ExpectExec(`UPDATE "claims" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeMatch, "claimed", "rejected", models.ReasonCodeClaimRejected, true))
	mock.ExpectExec(`UPDATE "matches" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectCommit()

	err := svc.Reject(context.Background(), claimID, adminID, "handover documents did not hold up", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReturnsMatchToPending(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	userID := uuid.New()

	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), userID, models.ClaimStatusPending, 1),
		matchRows(matchID, models.MatchStatusAwaitingClaimVerification, 1))

	mock.ExpectBegin()
	// Claim pending -> cancelled, then the match reopens for other claims.
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeClaim, "pending", "cancelled", models.ReasonCodeClaimantCancelled, false))
	mock.ExpectExec(`UPDATE "claims" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeMatch, "awaiting_claim_verification", "pending", models.ReasonCodeClaimantCancelled, true))
	mock.ExpectExec(`UPDATE "matches" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectCommit()

	err := svc.Cancel(context.Background(), claimID, userID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelDisputedClaim(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	userID := uuid.New()

	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), userID, models.ClaimStatusDisputed, 3),
		matchRows(matchID, models.MatchStatusRejected, 2))

	mock.ExpectBegin()
	// Withdrawing the dispute cancels the claim and reopens the match.
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeClaim, "disputed", "cancelled", models.ReasonCodeClaimantCancelled, false))
	mock.ExpectExec(`UPDATE "claims" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectQuery(`SELECT .* FROM "transition_reasons"`).
		WillReturnRows(reasonRow(models.EntityTypeMatch, "rejected", "pending", models.ReasonCodeClaimantCancelled, true))
	mock.ExpectExec(`UPDATE "matches" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	expectLedgerInsert(mock)
	mock.ExpectCommit()

	err := svc.Cancel(context.Background(), claimID, userID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureNoActiveClaim(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}
	matchID := uuid.New()

	// A non-cancelled claim already exists for the match.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "claims"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	err := svc.ensureNoActiveClaim(context.Background(), matchID)
	assert.ErrorIs(t, err, ErrActiveClaimExists)

	// Only a cancelled claim exists, so the count comes back zero.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "claims"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	assert.NoError(t, svc.ensureNoActiveClaim(context.Background(), matchID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRejectsForeignClaim(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb, nil, billing.NewService(gdb))

	claimID := uuid.New()
	matchID := uuid.New()
	expectClaimLoad(mock,
		claimRows(claimID, matchID, uuid.New(), uuid.New(), models.ClaimStatusPending, 1),
		matchRows(matchID, models.MatchStatusAwaitingClaimVerification, 1))

	err := svc.Cancel(context.Background(), claimID, uuid.New())
	assert.ErrorIs(t, err, ErrClaimNotFound, "someone else's claim looks like a missing claim")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSecurityAnswersPassesVacuously(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := &Service{db: gdb}

	mock.ExpectQuery(`SELECT .* FROM "security_questions"`).
		WillReturnRows(questionRows(nil))

	verification, err := svc.checkSecurityAnswers(context.Background(), uuid.New(), nil)
	require.NoError(t, err)

	assert.True(t, verification.Passed)
	assert.Equal(t, 0, verification.QuestionsAsked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
