package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/resend/resend-go/v2"
	"github.com/sony/gobreaker"
)

type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Mailer delivers one email and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// InitMailer builds the mailer selected by MAIL_PROVIDER, wrapped in a
// circuit breaker. Missing credentials fall back to the no-op mailer.
func InitMailer() Mailer {
	senderEmail := config.Config("EMAIL_SENDER")
	senderName := config.Config("EMAIL_SENDER_NAME")

	var m Mailer
	switch provider := config.Config("MAIL_PROVIDER"); provider {
	case "brevo":
		apiKey := config.Config("BREVO_API_KEY")
		if apiKey == "" || senderEmail == "" {
			logger.Log.Warn("⚠️ Brevo not configured. Missing BREVO_API_KEY or EMAIL_SENDER.")
			return NoopMailer{}
		}
		m = NewBrevoMailer(apiKey, senderEmail, senderName)
	case "resend":
		apiKey := config.Config("RESEND_API_KEY")
		if apiKey == "" || senderEmail == "" {
			logger.Log.Warn("⚠️ Resend not configured. Missing RESEND_API_KEY or EMAIL_SENDER.")
			return NoopMailer{}
		}
		m = NewResendMailer(apiKey, fmt.Sprintf("%s <%s>", senderName, senderEmail))
	default:
		logger.Log.Infow("Email delivery disabled", "provider", provider)
		return NoopMailer{}
	}

	logger.Log.Info("✅ Email service initialized successfully.")
	return NewBreakerMailer(m)
}

type BrevoMailer struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Endpoint    string
	client      *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

func NewBrevoMailer(apiKey, senderEmail, senderName string) *BrevoMailer {
	return &BrevoMailer{
		APIKey:      apiKey,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Endpoint:    "https://api.brevo.com/v3/smtp/email",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BrevoMailer) Send(ctx context.Context, msg Message) (string, error) {
	if msg.ToEmail == "" || !strings.Contains(msg.ToEmail, "@") {
		return "", fmt.Errorf("invalid recipient email: %s", msg.ToEmail)
	}

	recipientName := msg.ToName
	if recipientName == "" {
		recipientName = msg.ToEmail[:strings.Index(msg.ToEmail, "@")]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": msg.ToEmail, "name": recipientName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out brevoResponse
	_ = json.Unmarshal(bodyBytes, &out)
	return out.MessageID, nil
}

type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.ToEmail},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}

// NoopMailer logs and drops every message.
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, msg Message) (string, error) {
	logger.Log.Debugw("email skipped, no provider configured", "to", msg.ToEmail, "subject", msg.Subject)
	return "noop", nil
}

// BreakerMailer stops calling a failing provider for a while so the outbox
// backs off instead of hammering it.
type BreakerMailer struct {
	next Mailer
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerMailer(next Mailer) *BreakerMailer {
	st := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Log.Warnw("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerMailer{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (m *BreakerMailer) Send(ctx context.Context, msg Message) (string, error) {
	res, err := m.cb.Execute(func() (interface{}, error) {
		return m.next.Send(ctx, msg)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
