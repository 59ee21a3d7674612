// internal/domain/payment/stripe_gateway.go
package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/your-org/academy-backend/internal/config"
)

// StripeGateway implements Gateway on top of Stripe Checkout Sessions
type StripeGateway struct {
	client *stripecl.API
	config *config.Config
}

// NewStripeGateway creates the Stripe-backed gateway. A missing secret key
// is a configuration error, not something to discover at checkout time.
func NewStripeGateway(cfg *config.Config) (*StripeGateway, error) {
	if cfg.External.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is not configured")
	}

	// All gateway calls share one bounded HTTP client; a hung gateway
	// must never hold the confirmation page hostage.
	httpClient := &http.Client{Timeout: cfg.External.Stripe.Timeout}

	sc := &stripecl.API{}
	sc.Init(cfg.External.Stripe.SecretKey, stripe.NewBackends(httpClient))

	return &StripeGateway{
		client: sc,
		config: cfg,
	}, nil
}

// CreateCheckoutSession opens a hosted checkout session for the given
// courses. Course ids ride along in session metadata so reconciliation can
// find its ledger rows later; prices in the line items are display-only and
// re-read from the catalog at settlement time.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID uint, items []LineItem) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	courseIDs := make([]string, 0, len(items))

	for _, it := range items {
		courseIDs = append(courseIDs, strconv.FormatUint(uint64(it.CourseID), 10))

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),

			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(it.Price),

				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(it.Name),
					Description: stripe.String(it.Description),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(g.config.App.BaseURL + "/checkout/return?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.config.App.BaseURL + "/cart"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))
	params.AddMetadata("course_ids", strings.Join(courseIDs, ","))

	s, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: creating checkout session: %v", ErrGatewayUnavailable, err)
	}

	return &Session{ID: s.ID, URL: s.URL}, nil
}

// RetrieveSession fetches the authoritative settlement record for a session
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieving session %s: %v", ErrGatewayUnavailable, sessionID, err)
	}

	status := &SessionStatus{
		ID:            s.ID,
		PaymentStatus: string(s.PaymentStatus),
	}

	if raw, ok := s.Metadata["user_id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			status.UserID = uint(id)
		}
	}

	if raw, ok := s.Metadata["course_ids"]; ok && raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				continue // malformed metadata entry, skip it
			}
			status.CourseIDs = append(status.CourseIDs, uint(id))
		}
	}

	return status, nil
}
