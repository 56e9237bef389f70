package payment

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const stubPrefix = "sim_"

// StubProvider issues simulated payment intents. Every intent verifies, also
// after ExpiresAt has passed.
type StubProvider struct {
	now func() time.Time
}

func NewStubProvider() *StubProvider {
	return &StubProvider{now: time.Now}
}

func (s *StubProvider) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("payment: order id required")
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("payment: negative amount")
	}
	now := s.now()
	return &PaymentResponse{
		Reference:    fmt.Sprintf("%s%s_%d", stubPrefix, req.OrderID, now.UnixNano()),
		OrderID:      req.OrderID,
		Amount:       req.Amount,
		Status:       "PENDING",
		ExpiresAt:    now.Add(req.ExpiresIn),
		Instructions: fmt.Sprintf("Transfer Rp %d untuk %s lalu tekan Bayar", req.Amount, req.Title),
	}, nil
}

func (s *StubProvider) VerifyPayment(ctx context.Context, reference string) (bool, error) {
	return strings.HasPrefix(reference, stubPrefix), nil
}
