package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
)

var (
	ErrDeclined        = errors.New("payment declined by provider")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Charge is a payment the provider has captured.
type Charge struct {
	ProviderPaymentID string
	ProviderCaptureID string
	Method            string
	Amount            int64
	Currency          string
	Fee               int64
}

type RefundResult struct {
	ProviderRefundID string
}

// Gateway captures client payments and refunds them. Amounts are minor units.
// Refunds sent twice with the same idempotency key move money once.
type Gateway interface {
	Name() string
	Capture(ctx context.Context, providerPaymentID string, expectedAmount int64, currency string) (*Charge, error)
	Refund(ctx context.Context, captureID string, amount int64, currency, reason, idempotencyKey string) (*RefundResult, error)
}

var (
	gateways   = map[string]Gateway{}
	gatewaysMu sync.RWMutex
)

func Register(g Gateway) {
	gatewaysMu.Lock()
	defer gatewaysMu.Unlock()
	gateways[g.Name()] = g
}

func Get(name string) (Gateway, error) {
	gatewaysMu.RLock()
	defer gatewaysMu.RUnlock()
	g, ok := gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return g, nil
}

func Names() []string {
	gatewaysMu.RLock()
	defer gatewaysMu.RUnlock()
	names := make([]string, 0, len(gateways))
	for name := range gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Init registers every gateway listed in PAYMENT_PROVIDERS.
func Init() {
	for _, name := range config.Strings("PAYMENT_PROVIDERS") {
		switch name {
		case "paypal":
			if config.Config("PAYPAL_CLIENT_ID") == "" || config.Config("PAYPAL_CLIENT_SECRET") == "" {
				logger.Log.Warn("⚠️ PayPal credentials missing, gateway not registered")
				continue
			}
			Register(NewPayPalGateway(
				config.Config("PAYPAL_API_BASE_URL"),
				config.Config("PAYPAL_CLIENT_ID"),
				config.Config("PAYPAL_CLIENT_SECRET"),
			))
		case "sandbox":
			if config.IsProduction() {
				logger.Log.Warn("⚠️ sandbox gateway is disabled in production")
				continue
			}
			Register(NewSandboxGateway())
		default:
			logger.Log.Warnw("unknown payment provider in PAYMENT_PROVIDERS", "provider", name)
			continue
		}
		logger.Log.Infow("✅ Payment gateway registered", "provider", name)
	}
}
