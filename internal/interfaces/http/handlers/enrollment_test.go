// internal/interfaces/http/handlers/enrollment_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/checkout"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/payment"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGateway struct {
	session *payment.Session
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ uint, _ []payment.LineItem) (*payment.Session, error) {
	return g.session, nil
}

func (g *stubGateway) RetrieveSession(_ context.Context, _ string) (*payment.SessionStatus, error) {
	return nil, payment.ErrGatewayUnavailable
}

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

func TestEnrollmentCreateReturnsCheckoutURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock := newMockDB(t)
	cfg := &config.Config{}

	gw := &stubGateway{session: &payment.Session{ID: "cs_123", URL: "https://pay.example.com/cs_123"}}
	enrollmentService := enrollment.NewService(db, nil, cfg)
	checkoutService := checkout.NewService(db, nil, cfg, gw, nil)
	h := NewEnrollmentHandler(db, enrollmentService, checkoutService, cfg)

	courseRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "price", "status"}).
			AddRow(1, "Certified Nursing Assistant", 129900, "active")
	}
	cartRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id"}).AddRow(3, 7)
	}
	itemRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "cart_id", "course_id", "quantity"}).
			AddRow(21, 3, 1, 1)
	}

	// Cart add: active course, known user, existing cart, first add.
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1 AND status = \$2`).
		WillReturnRows(courseRows())
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
		WillReturnRows(cartRows())
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1 AND course_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "cart_items"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1.*ORDER BY created_at ASC`).
		WillReturnRows(itemRows())
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1`).
		WillReturnRows(courseRows())

	// Pending enrollment row.
	mock.ExpectQuery(`INSERT INTO "enrollments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	// Checkout snapshot reads the cart back before the gateway call.
	mock.ExpectQuery(`SELECT \* FROM "carts" WHERE user_id = \$1`).
		WillReturnRows(cartRows())
	mock.ExpectQuery(`SELECT \* FROM "cart_items" WHERE .*cart_id = \$1.*ORDER BY created_at ASC`).
		WillReturnRows(itemRows())
	mock.ExpectQuery(`SELECT \* FROM "courses" WHERE .*id = \$1`).
		WillReturnRows(courseRows())

	body := `{"course_id":1,"first_name":"Dana","last_name":"Reyes","email":"dana@example.com"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", uint(7))

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			SessionID   string `json:"session_id"`
			CheckoutURL string `json:"checkout_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cs_123", resp.Data.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_123", resp.Data.CheckoutURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}
