package usecase

import (
	"context"

	"app/internal/payment"
)

// テスト用のゲートウェイ。作成された入力を記録し、決められた応答を返す。
type fakeGateway struct {
	createCalls []payment.CreateSessionInput
	session     payment.Session
	createErr   error

	statuses    map[string]payment.SessionStatus
	retrieveErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		session:  payment.Session{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"},
		statuses: map[string]payment.SessionStatus{},
	}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, in payment.CreateSessionInput) (payment.Session, error) {
	g.createCalls = append(g.createCalls, in)
	if g.createErr != nil {
		return payment.Session{}, g.createErr
	}
	return g.session, nil
}

func (g *fakeGateway) RetrieveSession(ctx context.Context, sessionID string) (payment.SessionStatus, error) {
	if g.retrieveErr != nil {
		return payment.SessionStatus{}, g.retrieveErr
	}
	st, ok := g.statuses[sessionID]
	if !ok {
		return payment.SessionStatus{}, payment.ErrSessionNotFound
	}
	return st, nil
}
