package payments

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxGateway accepts any payment id except those prefixed "fail_" and
// charges a 2.9% processing fee. It is never registered in production.
type SandboxGateway struct {
	FeeBps int64
	// RefundErr, when set, is returned by every refund.
	RefundErr error

	mu      sync.Mutex
	refunds map[string]sandboxRefund
}

type sandboxRefund struct {
	id     string
	amount int64
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{FeeBps: 290, refunds: map[string]sandboxRefund{}}
}

func (g *SandboxGateway) Name() string { return "sandbox" }

func (g *SandboxGateway) Capture(ctx context.Context, providerPaymentID string, expectedAmount int64, currency string) (*Charge, error) {
	if strings.HasPrefix(providerPaymentID, "fail_") {
		return nil, ErrDeclined
	}
	return &Charge{
		ProviderPaymentID: providerPaymentID,
		ProviderCaptureID: "cap_" + providerPaymentID,
		Method:            "sandbox",
		Amount:            expectedAmount,
		Currency:          currency,
		Fee:               (expectedAmount*g.FeeBps + 5000) / 10000,
	}, nil
}

func (g *SandboxGateway) Refund(ctx context.Context, captureID string, amount int64, currency, reason, idempotencyKey string) (*RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	if r, ok := g.refunds[idempotencyKey]; ok {
		return &RefundResult{ProviderRefundID: r.id}, nil
	}
	r := sandboxRefund{id: "rf_" + uuid.NewString(), amount: amount}
	g.refunds[idempotencyKey] = r
	return &RefundResult{ProviderRefundID: r.id}, nil
}

// Refunded is the total amount refunded so far.
func (g *SandboxGateway) Refunded() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, r := range g.refunds {
		total += r.amount
	}
	return total
}
