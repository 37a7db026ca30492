package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/cenkalti/backoff/v4"
)

type PayPalGateway struct {
	apiBase      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewPayPalGateway(apiBase, clientID, clientSecret string) *PayPalGateway {
	return &PayPalGateway{
		apiBase:      strings.TrimRight(apiBase, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *PayPalGateway) Name() string { return "paypal" }

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalMoney struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCapture struct {
	ID                        string      `json:"id"`
	Status                    string      `json:"status"`
	Amount                    paypalMoney `json:"amount"`
	SellerReceivableBreakdown struct {
		PayPalFee paypalMoney `json:"paypal_fee"`
	} `json:"seller_receivable_breakdown"`
}

type paypalOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []paypalCapture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// accessToken returns the cached OAuth token, fetching a new one five minutes
// before the current one expires.
func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	g.tokenMu.RLock()
	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		token := g.token
		g.tokenMu.RUnlock()
		return token, nil
	}
	g.tokenMu.RUnlock()

	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()
	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	logger.Log.Debug("Fetching new PayPal access token...")
	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(g.clientID, g.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get access token, status: %s", resp.Status)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	g.token = tokenResp.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-300) * time.Second)
	return g.token, nil
}

// doWithRetry retries transport errors and 5xx responses with exponential
// backoff. Other responses are returned to the caller untouched.
func (g *PayPalGateway) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	operation := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			body, _ := io.ReadAll(r.Body)
			r.Body.Close()
			return fmt.Errorf("paypal returned %s: %s", r.Status, string(body))
		}
		resp = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 20 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *PayPalGateway) authorizedJSON(ctx context.Context, method, path, requestID string, payload any) (*http.Response, error) {
	accessToken, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body []byte
	if payload != nil {
		if body, err = json.Marshal(payload); err != nil {
			return nil, err
		}
	}

	return g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("PayPal-Request-Id", requestID)
		return req, nil
	})
}

// Capture captures an approved checkout order and returns the settled amount
// and PayPal's fee.
func (g *PayPalGateway) Capture(ctx context.Context, orderID string, expectedAmount int64, currency string) (*Charge, error) {
	resp, err := g.authorizedJSON(ctx, http.MethodPost, fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), "capture-"+orderID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Log.Warnw("PayPal capture rejected", "order_id", orderID, "status", resp.StatusCode, "body", string(respBody))
		return nil, ErrDeclined
	}

	var order paypalOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	if order.Status != "COMPLETED" || len(order.PurchaseUnits) == 0 || len(order.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, ErrDeclined
	}

	capture := order.PurchaseUnits[0].Payments.Captures[0]
	amount, err := ToMinor(capture.Amount.Value)
	if err != nil {
		return nil, err
	}
	var fee int64
	if capture.SellerReceivableBreakdown.PayPalFee.Value != "" {
		if fee, err = ToMinor(capture.SellerReceivableBreakdown.PayPalFee.Value); err != nil {
			return nil, err
		}
	}

	return &Charge{
		ProviderPaymentID: order.ID,
		ProviderCaptureID: capture.ID,
		Method:            "paypal",
		Amount:            amount,
		Currency:          capture.Amount.CurrencyCode,
		Fee:               fee,
	}, nil
}

func (g *PayPalGateway) Refund(ctx context.Context, captureID string, amount int64, currency, reason, idempotencyKey string) (*RefundResult, error) {
	payload := map[string]any{
		"amount": paypalMoney{CurrencyCode: currency, Value: FormatMinor(amount)},
	}
	if reason != "" {
		payload["note_to_payer"] = reason
	}

	resp, err := g.authorizedJSON(ctx, http.MethodPost, fmt.Sprintf("/v2/payments/captures/%s/refund", captureID), "refund-"+idempotencyKey, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to refund capture %s: %s", captureID, string(respBody))
	}

	var refund paypalRefund
	if err := json.NewDecoder(resp.Body).Decode(&refund); err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRefundID: refund.ID}, nil
}
