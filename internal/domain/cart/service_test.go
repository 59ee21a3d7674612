// internal/domain/cart/service_test.go
package cart

import (
	"errors"
	"testing"

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

func TestGetOrCreateCartRow(t *testing.T) {
	t.Run("existing cart is reused", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WithArgs(7, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))

		c, err := svc.getOrCreateCartRow(7)
		require.NoError(t, err)
		assert.Equal(t, uint(3), c.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first access creates the row", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`INSERT INTO "carts"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		c, err := svc.getOrCreateCartRow(7)
		require.NoError(t, err)
		assert.Equal(t, uint(3), c.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the creation race reads back the winner's row", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`INSERT INTO "carts"`).
			WillReturnError(errors.New(`duplicate key value violates unique constraint "idx_carts_user_id"`))
		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))

		c, err := svc.getOrCreateCartRow(7)
		require.NoError(t, err)
		assert.Equal(t, uint(3), c.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddItemDeduplicates(t *testing.T) {
	svc, mock := newTestService(t)

	// Active course exists.
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1 AND status = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "status"}).
			AddRow(1, "CNA", 129900, "active"))
	// User exists.
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	// Cart exists.
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
	// The course is already in the cart, so no INSERT may follow.
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1 AND course_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "course_id", "quantity"}).
			AddRow(21, 3, 1, 1))
	// Response rebuild.
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1.*ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "course_id", "quantity"}).
			AddRow(21, 3, 1, 1))
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "status"}).
			AddRow(1, "CNA", 129900, "active"))

	response, err := svc.AddItem(7, 1)
	require.NoError(t, err)
	require.Len(t, response.Items, 1)
	assert.Equal(t, 1, response.Items[0].Quantity)
	assert.Equal(t, int64(129900), response.Totals.TotalAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRejectsInactiveCourse(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1 AND status = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.AddItem(7, 99)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestClear(t *testing.T) {
	t.Run("no cart means nothing to clear", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		assert.NoError(t, svc.Clear(7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdraws only pending claims then empties the cart", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))
		mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "course_id", "quantity"}).
				AddRow(21, 3, 1, 1))

		// Enrollment withdrawal is scoped to payment_status = pending;
		// completed rows survive cart clearing.
		mock.ExpectExec(`UPDATE "enrollments" SET "deleted_at"=.* WHERE .*payment_status = \$\d`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec(`UPDATE "cart_items" SET "deleted_at"=.* WHERE cart_id = \$\d`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, svc.Clear(7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveItemWithdrawsPendingClaim(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "course_id", "quantity"}).
			AddRow(21, 3, 1, 1))
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7))

	// Same scoping as Clear: only the pending claim is withdrawn, a
	// completed enrollment is out of the cart's reach.
	mock.ExpectExec(`UPDATE "enrollments" SET "deleted_at"=.* WHERE .*payment_status = \$\d`).
		WithArgs(sqlmock.AnyArg(), 7, 1, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`UPDATE "cart_items" SET "deleted_at"=.* WHERE "cart_items"\."id" = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1.*ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	response, err := svc.RemoveItem(7, 21)
	require.NoError(t, err)
	assert.Empty(t, response.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnedItem(t *testing.T) {
	t.Run("foreign item is indistinguishable from missing", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "course_id"}).AddRow(21, 3, 1))
		// Cart 3 belongs to user 8, not 7.
		mock.ExpectQuery(`SELECT \* FROM "carts" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 8))

		_, _, err := svc.ownedItem(7, 21)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("missing item", func(t *testing.T) {
		svc, mock := newTestService(t)

		mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, _, err := svc.ownedItem(7, 99)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}
