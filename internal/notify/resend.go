// Package notify delivers transactional email through the Resend HTTP
// API. Delivery is best-effort from the booking engine's perspective;
// callers log failures and never roll back session state over them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultEndpoint = "https://api.resend.com/emails"

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendMailer implements Mailer against the Resend API, throttled so a
// burst of cancellations cannot trip provider rate limits.
type ResendMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

// NewResendMailer builds a mailer. perSecond <= 0 falls back to 10 rps.
func NewResendMailer(apiKey, from string, perSecond float64, logger *zerolog.Logger) *ResendMailer {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &ResendMailer{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
		logger:   logger,
	}
}

// WithEndpoint overrides the API URL. Tests point it at a local server.
func (m *ResendMailer) WithEndpoint(url string) *ResendMailer {
	m.endpoint = url
	return m
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send posts one message. A missing API key downgrades to a log line so
// development environments run without a mail account.
func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.apiKey == "" {
		m.logger.Warn().Str("to", to).Str("subject", subject).Msg("email api key not configured, skipping send")
		return nil
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limiter: %w", err)
	}

	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email api status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
