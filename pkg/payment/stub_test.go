package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProvider(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &StubProvider{now: func() time.Time { return fixed }}

	resp, err := p.InitiatePayment(context.Background(), PaymentRequest{OrderID: "abc", Amount: 150000, Title: "Makalah", ExpiresIn: 15 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, fixed.Add(15*time.Minute), resp.ExpiresAt)
	assert.Contains(t, resp.Instructions, "150000")

	ok, err := p.VerifyPayment(context.Background(), resp.Reference)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = p.VerifyPayment(context.Background(), "other")
	assert.False(t, ok)

	_, err = p.InitiatePayment(context.Background(), PaymentRequest{})
	assert.Error(t, err)
}
