// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/cart"
	"github.com/your-org/academy-backend/internal/domain/course"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/payment"
	"gorm.io/gorm"
)

// Service errors. These two are the only ones Reconcile surfaces; every
// downstream failure is logged and absorbed so the confirmation page always
// renders.
var (
	ErrUnauthenticated  = errors.New("user not authenticated")
	ErrMissingSession   = errors.New("checkout session reference missing")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSessionOwnership = errors.New("checkout session belongs to a different user")
)

// courseReader re-reads the authoritative course record at settlement time
type courseReader interface {
	Get(id uint) (*course.Course, error)
}

// ledger is the slice of the enrollment service reconciliation acts on
type ledger interface {
	FindLatestByUserAndCourse(userID, courseID uint) (*enrollment.Enrollment, error)
	MarkCompleted(enrollmentID uint, gatewaySessionID string, amount int64) error
	MarkFailed(enrollmentID uint, gatewaySessionID string) error
}

// cartStore is the slice of the cart service used around checkout
type cartStore interface {
	Items(userID uint) ([]cart.CartItemResponse, error)
	Clear(userID uint) error
}

// notifier delivers the enrollment confirmation after settlement
type notifier interface {
	SendEnrollmentConfirmation(ctx context.Context, toEmail, toName string, courseNames []string, total int64) error
}

// Service aligns ledger state with the payment gateway's authoritative
// settlement record. It is deliberately lenient at the external boundary
// and strict in its own bookkeeping: payment truth lives with the gateway,
// the ledger is allowed to lag behind it.
type Service struct {
	gateway  payment.Gateway
	courses  courseReader
	ledger   ledger
	carts    cartStore
	notifier notifier
	logger   *logrus.Logger
}

// NewService creates a checkout service wired to the real stores
func NewService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, gateway payment.Gateway, mailer notifier) *Service {
	enrollmentService := enrollment.NewService(db, redisClient, cfg)

	return &Service{
		gateway:  gateway,
		courses:  course.NewService(db, cfg),
		ledger:   enrollmentService,
		carts:    cart.NewService(db, enrollmentService, cfg),
		notifier: mailer,
		logger:   logrus.StandardLogger(),
	}
}

// Begin snapshots the user's cart into a checkout session and returns the
// gateway URL the user is redirected to.
func (s *Service) Begin(ctx context.Context, userID uint) (*payment.Session, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	items, err := s.carts.Items(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lineItems := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		if item.Course == nil {
			s.logger.WithFields(logrus.Fields{
				"user_id":   userID,
				"course_id": item.CourseID,
			}).Warn("cart item references a missing course; skipping at checkout")
			continue
		}
		lineItems = append(lineItems, payment.LineItem{
			CourseID:    item.CourseID,
			Name:        item.Course.Name,
			Description: item.Course.Description,
			Price:       item.Course.Price,
		})
	}
	if len(lineItems) == 0 {
		return nil, ErrEmptyCart
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, userID, lineItems)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Reconcile runs after the gateway redirects the user back. It completes
// the ledger rows the session settled and clears the cart. Apart from the
// two precondition errors it never fails: a gateway outage or a missing
// row is logged and the user still sees their confirmation page, with the
// untouched PENDING rows left for a later repair pass.
func (s *Service) Reconcile(ctx context.Context, userID uint, sessionID string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if sessionID == "" {
		return ErrMissingSession
	}

	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	})

	status, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		// Recoverable: the gateway holds the truth and will still hold it
		// when someone retries. Touching the ledger here could only make
		// things wrong.
		log.WithError(err).Error("session lookup failed, ledger left untouched pending retry")
		return nil
	}

	// A session settles only the user it was created for. Session ids leak
	// (they sit in return URLs), so a mismatch means someone is replaying
	// another user's session against their own pending rows.
	if status.UserID != 0 && status.UserID != userID {
		log.WithField("session_user_id", status.UserID).
			Warn("session owned by another user, skipping reconciliation")
		return nil
	}

	if !status.Paid() {
		log.WithField("payment_status", status.PaymentStatus).
			Warn("session not settled, skipping reconciliation")
		return nil
	}

	completed := s.completeCourses(log, userID, sessionID, status.CourseIDs)

	// The cart is cleared exactly once, after every course had its chance,
	// never between per-course attempts.
	if err := s.carts.Clear(userID); err != nil {
		log.WithError(err).Error("failed to clear cart after reconciliation")
	}

	s.sendConfirmation(ctx, log, completed)
	return nil
}

// ResolvePending is the explicit repair path for sessions the return
// redirect never reconciled (gateway outage, closed browser tab). A paid
// session completes as usual; a session the gateway reports unpaid marks
// the pending rows FAILED so they stop looking like live claims.
func (s *Service) ResolvePending(ctx context.Context, userID uint, sessionID string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if sessionID == "" {
		return ErrMissingSession
	}

	log := s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	})

	status, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return err // repair path reports gateway trouble instead of hiding it
	}

	if status.UserID != 0 && status.UserID != userID {
		log.WithField("session_user_id", status.UserID).
			Warn("session owned by another user, refusing to resolve")
		return ErrSessionOwnership
	}

	if status.Paid() {
		completed := s.completeCourses(log, userID, sessionID, status.CourseIDs)
		if err := s.carts.Clear(userID); err != nil {
			log.WithError(err).Error("failed to clear cart after reconciliation")
		}
		s.sendConfirmation(ctx, log, completed)
		return nil
	}

	for _, courseID := range status.CourseIDs {
		e, err := s.ledger.FindLatestByUserAndCourse(userID, courseID)
		if err != nil {
			log.WithField("course_id", courseID).WithError(err).
				Error("no enrollment row to mark failed")
			continue
		}
		if err := s.ledger.MarkFailed(e.ID, sessionID); err != nil {
			log.WithField("course_id", courseID).WithError(err).
				Error("failed to mark enrollment failed")
		}
	}
	return nil
}

// completeCourses walks the session's courses in metadata order. One bad
// course never aborts the others; each failure is logged and skipped.
func (s *Service) completeCourses(log *logrus.Entry, userID uint, sessionID string, courseIDs []uint) []*enrollment.Enrollment {
	var completed []*enrollment.Enrollment

	for _, courseID := range courseIDs {
		courseLog := log.WithField("course_id", courseID)

		// The stored price is the only amount that ever reaches the
		// ledger. Session metadata and line items are not trusted.
		crs, err := s.courses.Get(courseID)
		if err != nil {
			courseLog.WithError(err).Error("course lookup failed during reconciliation")
			continue
		}

		e, err := s.ledger.FindLatestByUserAndCourse(userID, courseID)
		if err != nil {
			courseLog.WithError(err).Error("no enrollment row for settled course")
			continue
		}

		if err := s.ledger.MarkCompleted(e.ID, sessionID, crs.Price); err != nil {
			courseLog.WithError(err).Error("failed to mark enrollment completed")
			continue
		}

		e.PaymentStatus = enrollment.PaymentStatusCompleted
		e.PaymentAmount = &crs.Price
		completed = append(completed, e)

		courseLog.WithField("amount", crs.Price).Info("enrollment completed")
	}

	return completed
}

// sendConfirmation emails the student about their settled enrollments.
// Fire-and-forget: a mail failure never surfaces past this point.
func (s *Service) sendConfirmation(ctx context.Context, log *logrus.Entry, completed []*enrollment.Enrollment) {
	if s.notifier == nil || len(completed) == 0 {
		return
	}

	first := completed[0]
	names := make([]string, 0, len(completed))
	var total int64
	for _, e := range completed {
		crs, err := s.courses.Get(e.CourseID)
		if err != nil {
			continue
		}
		names = append(names, crs.Name)
		if e.PaymentAmount != nil {
			total += *e.PaymentAmount
		}
	}

	toName := first.FirstName + " " + first.LastName
	if err := s.notifier.SendEnrollmentConfirmation(ctx, first.Email, toName, names, total); err != nil {
		log.WithError(err).Warn("enrollment confirmation email failed")
	}
}
