// internal/domain/checkout/service_test.go
package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/academy-backend/internal/domain/cart"
	"github.com/your-org/academy-backend/internal/domain/course"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/payment"
)

type fakeGateway struct {
	session       *payment.Session
	createErr     error
	status        *payment.SessionStatus
	retrieveErr   error
	createdItems  []payment.LineItem
	retrieveCalls int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, _ uint, items []payment.LineItem) (*payment.Session, error) {
	g.createdItems = items
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.session, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, _ string) (*payment.SessionStatus, error) {
	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return g.status, nil
}

type fakeCourses struct {
	courses map[uint]*course.Course
}

func (f *fakeCourses) Get(id uint) (*course.Course, error) {
	crs, ok := f.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	return crs, nil
}

type completedCall struct {
	enrollmentID uint
	sessionID    string
	amount       int64
}

type fakeLedger struct {
	rows         map[uint]*enrollment.Enrollment // keyed by course id
	completed    []completedCall
	failed       []uint
	completeErrs map[uint]error // keyed by enrollment id
}

func (f *fakeLedger) FindLatestByUserAndCourse(_, courseID uint) (*enrollment.Enrollment, error) {
	e, ok := f.rows[courseID]
	if !ok {
		return nil, enrollment.ErrNotFound
	}
	return e, nil
}

func (f *fakeLedger) MarkCompleted(enrollmentID uint, sessionID string, amount int64) error {
	if err := f.completeErrs[enrollmentID]; err != nil {
		return err
	}
	f.completed = append(f.completed, completedCall{enrollmentID, sessionID, amount})
	return nil
}

func (f *fakeLedger) MarkFailed(enrollmentID uint, _ string) error {
	f.failed = append(f.failed, enrollmentID)
	return nil
}

type fakeCarts struct {
	items      []cart.CartItemResponse
	itemsErr   error
	clearCalls int
	clearErr   error
}

func (f *fakeCarts) Items(_ uint) ([]cart.CartItemResponse, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return f.items, nil
}

func (f *fakeCarts) Clear(_ uint) error {
	f.clearCalls++
	return f.clearErr
}

type confirmation struct {
	email       string
	name        string
	courseNames []string
	total       int64
}

type fakeNotifier struct {
	sent    []confirmation
	sendErr error
}

func (f *fakeNotifier) SendEnrollmentConfirmation(_ context.Context, toEmail, toName string, courseNames []string, total int64) error {
	f.sent = append(f.sent, confirmation{toEmail, toName, courseNames, total})
	return f.sendErr
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestService(gw *fakeGateway, crs *fakeCourses, led *fakeLedger, carts *fakeCarts, n *fakeNotifier) *Service {
	return &Service{
		gateway:  gw,
		courses:  crs,
		ledger:   led,
		carts:    carts,
		notifier: n,
		logger:   quietLogger(),
	}
}

func pendingRow(id, userID, courseID uint) *enrollment.Enrollment {
	return &enrollment.Enrollment{
		ID:            id,
		UserID:        userID,
		CourseID:      courseID,
		FirstName:     "Dana",
		LastName:      "Reyes",
		Email:         "dana@example.com",
		PaymentStatus: enrollment.PaymentStatusPending,
	}
}

func TestBegin(t *testing.T) {
	cna := &course.Course{ID: 1, Name: "Certified Nursing Assistant", Price: 129900, Status: course.StatusActive}
	phleb := &course.Course{ID: 2, Name: "Phlebotomy Technician", Price: 89900, Status: course.StatusActive}

	t.Run("creates a session from the cart snapshot", func(t *testing.T) {
		gw := &fakeGateway{session: &payment.Session{ID: "cs_123", URL: "https://pay.example.com/cs_123"}}
		carts := &fakeCarts{items: []cart.CartItemResponse{
			{CourseID: 1, Course: cna},
			{CourseID: 2, Course: phleb},
		}}
		svc := newTestService(gw, &fakeCourses{}, &fakeLedger{}, carts, &fakeNotifier{})

		session, err := svc.Begin(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "cs_123", session.ID)
		require.Len(t, gw.createdItems, 2)
		assert.Equal(t, int64(129900), gw.createdItems[0].Price)
		assert.Equal(t, int64(89900), gw.createdItems[1].Price)
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		svc := newTestService(&fakeGateway{}, &fakeCourses{}, &fakeLedger{}, &fakeCarts{}, &fakeNotifier{})

		_, err := svc.Begin(context.Background(), 7)
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("unauthenticated user is rejected", func(t *testing.T) {
		svc := newTestService(&fakeGateway{}, &fakeCourses{}, &fakeLedger{}, &fakeCarts{}, &fakeNotifier{})

		_, err := svc.Begin(context.Background(), 0)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestReconcilePaidSession(t *testing.T) {
	courses := &fakeCourses{courses: map[uint]*course.Course{
		1: {ID: 1, Name: "Certified Nursing Assistant", Price: 129900},
		2: {ID: 2, Name: "Phlebotomy Technician", Price: 89900},
	}}
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{
		1: pendingRow(10, 7, 1),
		2: pendingRow(11, 7, 2),
	}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_123",
		PaymentStatus: payment.SessionPaid,
		UserID:        7,
		CourseIDs:     []uint{1, 2},
	}}
	carts := &fakeCarts{}
	mail := &fakeNotifier{}
	svc := newTestService(gw, courses, led, carts, mail)

	err := svc.Reconcile(context.Background(), 7, "cs_123")
	require.NoError(t, err)

	// Both rows settle, in metadata order, priced from the course table.
	require.Len(t, led.completed, 2)
	assert.Equal(t, completedCall{10, "cs_123", 129900}, led.completed[0])
	assert.Equal(t, completedCall{11, "cs_123", 89900}, led.completed[1])

	// Cart cleared exactly once, after the settlement loop.
	assert.Equal(t, 1, carts.clearCalls)

	// One confirmation covering both courses.
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "dana@example.com", mail.sent[0].email)
	assert.Equal(t, []string{"Certified Nursing Assistant", "Phlebotomy Technician"}, mail.sent[0].courseNames)
	assert.Equal(t, int64(219800), mail.sent[0].total)
}

func TestReconcileUsesStoredPriceNotSessionAmount(t *testing.T) {
	// The course price changed between checkout and reconciliation; the
	// amount written to the ledger must be the current stored price.
	courses := &fakeCourses{courses: map[uint]*course.Course{
		1: {ID: 1, Name: "Certified Nursing Assistant", Price: 149900},
	}}
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(10, 7, 1)}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_123",
		PaymentStatus: payment.SessionPaid,
		CourseIDs:     []uint{1},
	}}
	svc := newTestService(gw, courses, led, &fakeCarts{}, &fakeNotifier{})

	require.NoError(t, svc.Reconcile(context.Background(), 7, "cs_123"))
	require.Len(t, led.completed, 1)
	assert.Equal(t, int64(149900), led.completed[0].amount)
}

func TestReconcileGatewayUnreachable(t *testing.T) {
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(10, 7, 1)}}
	gw := &fakeGateway{retrieveErr: payment.ErrGatewayUnavailable}
	carts := &fakeCarts{}
	mail := &fakeNotifier{}
	svc := newTestService(gw, &fakeCourses{}, led, carts, mail)

	// No error surfaces: the user still gets their confirmation page and
	// the pending rows stay pending for a later repair pass.
	err := svc.Reconcile(context.Background(), 7, "cs_123")
	require.NoError(t, err)
	assert.Empty(t, led.completed)
	assert.Empty(t, led.failed)
	assert.Zero(t, carts.clearCalls)
	assert.Empty(t, mail.sent)
}

func TestReconcileUnpaidSession(t *testing.T) {
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(10, 7, 1)}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_123",
		PaymentStatus: payment.SessionUnpaid,
		CourseIDs:     []uint{1},
	}}
	carts := &fakeCarts{}
	svc := newTestService(gw, &fakeCourses{}, led, carts, &fakeNotifier{})

	require.NoError(t, svc.Reconcile(context.Background(), 7, "cs_123"))

	// An unsettled session mutates nothing; the cart survives for retry.
	assert.Empty(t, led.completed)
	assert.Empty(t, led.failed)
	assert.Zero(t, carts.clearCalls)
}

func TestReconcilePartialFailure(t *testing.T) {
	// Course 2 has no enrollment row; courses 1 and 3 must still settle
	// and the cart must still clear exactly once.
	courses := &fakeCourses{courses: map[uint]*course.Course{
		1: {ID: 1, Name: "CNA", Price: 129900},
		2: {ID: 2, Name: "Phlebotomy", Price: 89900},
		3: {ID: 3, Name: "EKG", Price: 79900},
	}}
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{
		1: pendingRow(10, 7, 1),
		3: pendingRow(12, 7, 3),
	}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_123",
		PaymentStatus: payment.SessionPaid,
		CourseIDs:     []uint{1, 2, 3},
	}}
	carts := &fakeCarts{}
	mail := &fakeNotifier{}
	svc := newTestService(gw, courses, led, carts, mail)

	require.NoError(t, svc.Reconcile(context.Background(), 7, "cs_123"))

	require.Len(t, led.completed, 2)
	assert.Equal(t, uint(10), led.completed[0].enrollmentID)
	assert.Equal(t, uint(12), led.completed[1].enrollmentID)
	assert.Equal(t, 1, carts.clearCalls)

	// Confirmation covers only what actually settled.
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"CNA", "EKG"}, mail.sent[0].courseNames)
	assert.Equal(t, int64(209800), mail.sent[0].total)
}

func TestReconcileRejectsForeignSession(t *testing.T) {
	// User 8 replays a paid session created for user 7. Their own pending
	// row must stay pending and the cart must survive.
	courses := &fakeCourses{courses: map[uint]*course.Course{1: {ID: 1, Name: "CNA", Price: 129900}}}
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(42, 8, 1)}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_belongs_to_user_7",
		PaymentStatus: payment.SessionPaid,
		UserID:        7,
		CourseIDs:     []uint{1},
	}}
	carts := &fakeCarts{}
	mail := &fakeNotifier{}
	svc := newTestService(gw, courses, led, carts, mail)

	require.NoError(t, svc.Reconcile(context.Background(), 8, "cs_belongs_to_user_7"))
	assert.Empty(t, led.completed)
	assert.Empty(t, led.failed)
	assert.Zero(t, carts.clearCalls)
	assert.Empty(t, mail.sent)
}

func TestReconcilePreconditions(t *testing.T) {
	svc := newTestService(&fakeGateway{}, &fakeCourses{}, &fakeLedger{}, &fakeCarts{}, &fakeNotifier{})

	assert.ErrorIs(t, svc.Reconcile(context.Background(), 0, "cs_123"), ErrUnauthenticated)
	assert.ErrorIs(t, svc.Reconcile(context.Background(), 7, ""), ErrMissingSession)
}

func TestReconcileMailFailureIsAbsorbed(t *testing.T) {
	courses := &fakeCourses{courses: map[uint]*course.Course{1: {ID: 1, Name: "CNA", Price: 129900}}}
	led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(10, 7, 1)}}
	gw := &fakeGateway{status: &payment.SessionStatus{
		ID:            "cs_123",
		PaymentStatus: payment.SessionPaid,
		CourseIDs:     []uint{1},
	}}
	mail := &fakeNotifier{sendErr: errors.New("smtp down")}
	svc := newTestService(gw, courses, led, &fakeCarts{}, mail)

	assert.NoError(t, svc.Reconcile(context.Background(), 7, "cs_123"))
	assert.Len(t, led.completed, 1)
}

func TestResolvePending(t *testing.T) {
	t.Run("paid session completes like a normal return", func(t *testing.T) {
		courses := &fakeCourses{courses: map[uint]*course.Course{1: {ID: 1, Name: "CNA", Price: 129900}}}
		led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(10, 7, 1)}}
		gw := &fakeGateway{status: &payment.SessionStatus{
			ID:            "cs_123",
			PaymentStatus: payment.SessionPaid,
			CourseIDs:     []uint{1},
		}}
		carts := &fakeCarts{}
		svc := newTestService(gw, courses, led, carts, &fakeNotifier{})

		require.NoError(t, svc.ResolvePending(context.Background(), 7, "cs_123"))
		assert.Len(t, led.completed, 1)
		assert.Equal(t, 1, carts.clearCalls)
	})

	t.Run("unpaid session marks the pending rows failed", func(t *testing.T) {
		led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{
			1: pendingRow(10, 7, 1),
			2: pendingRow(11, 7, 2),
		}}
		gw := &fakeGateway{status: &payment.SessionStatus{
			ID:            "cs_123",
			PaymentStatus: payment.SessionUnpaid,
			CourseIDs:     []uint{1, 2},
		}}
		carts := &fakeCarts{}
		svc := newTestService(gw, &fakeCourses{}, led, carts, &fakeNotifier{})

		require.NoError(t, svc.ResolvePending(context.Background(), 7, "cs_123"))
		assert.Equal(t, []uint{10, 11}, led.failed)
		assert.Empty(t, led.completed)
		assert.Zero(t, carts.clearCalls)
	})

	t.Run("session owned by another user is refused", func(t *testing.T) {
		led := &fakeLedger{rows: map[uint]*enrollment.Enrollment{1: pendingRow(42, 8, 1)}}
		gw := &fakeGateway{status: &payment.SessionStatus{
			ID:            "cs_123",
			PaymentStatus: payment.SessionPaid,
			UserID:        7,
			CourseIDs:     []uint{1},
		}}
		carts := &fakeCarts{}
		svc := newTestService(gw, &fakeCourses{}, led, carts, &fakeNotifier{})

		err := svc.ResolvePending(context.Background(), 8, "cs_123")
		assert.ErrorIs(t, err, ErrSessionOwnership)
		assert.Empty(t, led.completed)
		assert.Empty(t, led.failed)
		assert.Zero(t, carts.clearCalls)
	})

	t.Run("gateway errors surface on the repair path", func(t *testing.T) {
		gw := &fakeGateway{retrieveErr: payment.ErrGatewayUnavailable}
		svc := newTestService(gw, &fakeCourses{}, &fakeLedger{}, &fakeCarts{}, &fakeNotifier{})

		err := svc.ResolvePending(context.Background(), 7, "cs_123")
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})
}
