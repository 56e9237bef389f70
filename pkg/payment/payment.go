// Package payment models the checkout step in front of payOrder. There is no
// gateway: intents are simulated and their expiry is informational only.
package payment

import (
	"context"
	"time"
)

type PaymentRequest struct {
	OrderID   string
	UserID    string
	Amount    int64 // whole Rupiah
	Title     string
	ExpiresIn time.Duration
}

type PaymentResponse struct {
	Reference string    `json:"reference"`
	OrderID   string    `json:"orderId"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	// Instructions is what the checkout screen shows the student.
	Instructions string `json:"instructions"`
}

type Provider interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	VerifyPayment(ctx context.Context, reference string) (bool, error)
}
