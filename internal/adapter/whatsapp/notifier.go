// Package whatsapp implements a notifier.Notifier on the WhatsApp Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
)

const (
	providerName   = "whatsapp"
	defaultBaseURL = "https://graph.facebook.com/v19.0"
	maxBodyRunes   = 4096
)

// Notifier sends plain text messages through a WhatsApp Business phone number.
type Notifier struct {
	baseURL       string
	phoneNumberID string
	token         func() string
	httpClient    *http.Client
}

// NewNotifier creates a WhatsApp notifier. baseURL may be empty for the public API.
func NewNotifier(baseURL, phoneNumberID, accessToken string) *Notifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Notifier{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         func() string { return accessToken },
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *Notifier) Name() string { return providerName }

// UseTokenSource makes Send read the access token from fn on every call, so a
// rotated token takes effect without rebuilding the notifier.
func (n *Notifier) UseTokenSource(fn func() string) {
	n.token = fn
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// Send delivers msg. Rejections the provider will never accept, such as an
// invalid number, are marked permanent so they do not trip the circuit breaker.
func (n *Notifier) Send(ctx context.Context, msg notifier.Message) error {
	token := n.token()
	if n.phoneNumberID == "" || token == "" {
		return notifier.ErrNotConfigured
	}
	to := NormalizePhone(msg.Phone)
	if to == "" {
		return resilience.Permanent(fmt.Errorf("whatsapp: invalid phone %q", msg.Phone))
	}

	body, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: truncate(msg.Body, maxBodyRunes)},
	})
	if err != nil {
		return fmt.Errorf("whatsapp marshal: %w", err)
	}

	url := n.baseURL + "/" + n.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := n.httpClient.Do(req) //nolint:gosec // API URL from trusted config
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("whatsapp API %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resilience.Permanent(apiErr)
		}
		return apiErr
	}
	return nil
}

// NormalizePhone reduces a phone number to the digits-only international form
// the API expects. A leading "00" is treated as the international prefix.
// It returns "" when fewer than 8 digits remain.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")
	if len(digits) < 8 || len(digits) > 15 {
		return ""
	}
	return digits
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
