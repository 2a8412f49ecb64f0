package stripegw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"app/internal/payment"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// テストで差し替えるための最小インターフェース
type sessionsAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// payment.Gateway / payment.EventVerifier のStripe実装。
type StripeGateway struct {
	sessions      sessionsAPI
	webhookSecret string
}

func NewStripeGateway(apiKey string, webhookSecret string) (*StripeGateway, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("stripe: api key is required")
	}
	if strings.TrimSpace(webhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	sc := client.New(apiKey, nil)
	return &StripeGateway{
		sessions:      sc.CheckoutSessions,
		webhookSecret: webhookSecret,
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in payment.CreateSessionInput) (payment.Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
	}
	params.Context = ctx

	if len(in.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			params.Metadata[k] = v
		}
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.Items))
	for _, item := range in.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{item.ImageURL})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String("usd"),
				UnitAmount:  stripe.Int64(item.UnitAmountCents),
				ProductData: productData,
			},
		})
	}
	params.LineItems = lineItems

	sess, err := g.sessions.New(params)
	if err != nil {
		return payment.Session{}, mapStripeError(err)
	}

	return payment.Session{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (payment.SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.sessions.Get(sessionID, params)
	if err != nil {
		return payment.SessionStatus{}, mapStripeError(err)
	}

	out := payment.SessionStatus{
		ID:       sess.ID,
		Paid:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

// webhookの署名検証。失敗したら副作用ゼロで返すこと（呼び出し側の契約）。
func (g *StripeGateway) VerifyEvent(body []byte, signature string) (payment.Event, error) {
	event, err := webhook.ConstructEvent(body, signature, g.webhookSecret)
	if err != nil {
		return payment.Event{}, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	out := payment.Event{Type: string(event.Type)}

	var sess stripe.CheckoutSession
	if len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &sess); err == nil {
			out.SessionID = sess.ID
		}
	}

	return out, nil
}

// Stripeのエラーを種類別のerrorへ。元実装が文言で分岐していたものをここに集約。
func mapStripeError(err error) error {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return err
	}

	switch {
	case sErr.HTTPStatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", payment.ErrBadConfig, sErr.Msg)
	case sErr.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", payment.ErrSessionNotFound, sErr.Msg)
	case sErr.Code == "url_invalid" || strings.Contains(sErr.Msg, "Not a valid URL"):
		return fmt.Errorf("%w: %s", payment.ErrBadImageURL, sErr.Msg)
	case strings.Contains(sErr.Msg, "No such price"):
		return fmt.Errorf("%w: %s", payment.ErrBadPricing, sErr.Msg)
	}
	return err
}
