package billing

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/docufind/backend/internal/models"
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

func testClaim() *models.Claim {
	return &models.Claim{
		Base:         models.Base{ID: uuid.New()},
		ServiceFee:   25,
		FinderReward: 50,
		TotalAmount:  75,
	}
}

func TestCreateInvoiceTx(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb)
	claim := testClaim()

	mock.ExpectQuery(`SELECT .* FROM "invoices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "invoices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	invoice, err := svc.CreateInvoiceTx(gdb, claim, true)
	require.NoError(t, err)

	assert.Equal(t, claim.ID, invoice.ClaimID)
	assert.Equal(t, 25.0, invoice.ServiceFee)
	assert.Equal(t, 50.0, invoice.FinderReward)
	assert.Equal(t, 75.0, invoice.TotalAmount)
	assert.Equal(t, models.InvoiceStatusPending, invoice.Status)
	assert.Contains(t, invoice.InvoiceNumber, "INV")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoiceTxAlreadyExists(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := NewService(gdb)
	claim := testClaim()

	existingID := uuid.New()
	existingRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "invoice_number", "claim_id", "total_amount", "status"}).
			AddRow(existingID, "INV-001", claim.ID, 75.0, "pending")
	}

	// throwIfExists surfaces the duplicate as an error.
	mock.ExpectQuery(`SELECT .* FROM "invoices"`).WillReturnRows(existingRows())
	_, err := svc.CreateInvoiceTx(gdb, claim, true)
	assert.ErrorIs(t, err, ErrInvoiceExists)

	// Retry-safe mode returns the existing invoice without inserting.
	mock.ExpectQuery(`SELECT .* FROM "invoices"`).WillReturnRows(existingRows())
	invoice, err := svc.CreateInvoiceTx(gdb, claim, false)
	require.NoError(t, err)
	assert.Equal(t, existingID, invoice.ID)
	assert.Equal(t, "INV-001", invoice.InvoiceNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
