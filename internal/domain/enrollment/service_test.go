// internal/domain/enrollment/service_test.go
package enrollment

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/academy-backend/internal/config"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewService(db, nil, &config.Config{}), mock
}

func TestCreatePending(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`INSERT INTO "enrollments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	e, err := svc.CreatePending(7, &CreatePendingRequest{
		CourseID:  1,
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(10), e.ID)
	assert.Equal(t, PaymentStatusPending, e.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLatestByUserAndCourse(t *testing.T) {
	t.Run("latest row wins", func(t *testing.T) {
		svc, mock := newTestService(t)

		// The query must ask for created_at DESC; older rows are history.
		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*user_id = \$1 AND course_id = \$2.*ORDER BY created_at DESC`).
			WithArgs(7, 1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(12, 7, 1, "pending"))

		e, err := svc.FindLatestByUserAndCourse(7, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(12), e.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row maps to ErrNotFound", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.FindLatestByUserAndCourse(7, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkCompleted(t *testing.T) {
	t.Run("pending row settles", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*id = \$1`).
			WithArgs(10, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(10, 7, 1, "pending"))
		mock.ExpectExec(`UPDATE "enrollments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.MarkCompleted(10, "cs_123", 129900)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed row is left untouched", func(t *testing.T) {
		svc, mock := newTestService(t)

		// Only the read happens; a second reconciliation attempt must not
		// issue an UPDATE.
		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*id = \$1`).
			WithArgs(10, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status", "payment_amount", "payment_date"}).
				AddRow(10, 7, 1, "completed", 129900, time.Now()))

		err := svc.MarkCompleted(10, "cs_456", 129900)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := svc.MarkCompleted(99, "cs_123", 129900)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMarkFailed(t *testing.T) {
	t.Run("pending row fails", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*id = \$1`).
			WithArgs(10, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(10, 7, 1, "pending"))
		mock.ExpectExec(`UPDATE "enrollments" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.MarkFailed(10, "cs_123")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("settled row is terminal", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*id = \$1`).
			WithArgs(10, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(10, 7, 1, "completed"))

		err := svc.MarkFailed(10, "cs_123")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckStatus(t *testing.T) {
	t.Run("no enrollment means not completed", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		status, err := svc.CheckStatus(7, 1)
		require.NoError(t, err)
		assert.False(t, status.Completed)
		assert.Nil(t, status.EnrollmentID)
	})

	t.Run("latest completed row reports completed", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(12, 7, 1, "completed"))

		status, err := svc.CheckStatus(7, 1)
		require.NoError(t, err)
		assert.True(t, status.Completed)
		require.NotNil(t, status.EnrollmentID)
		assert.Equal(t, uint(12), *status.EnrollmentID)
	})

	t.Run("latest pending row reports not completed", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "enrollments" WHERE .*ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "course_id", "payment_status"}).
				AddRow(13, 7, 1, "pending"))

		status, err := svc.CheckStatus(7, 1)
		require.NoError(t, err)
		assert.False(t, status.Completed)
	})
}
