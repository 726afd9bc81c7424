package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendEmailsURL = "https://api.resend.com/emails"

// Email is one outbound message, already composed and addressed.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender is the interface any email backend must implement. Keeping it
// minimal means backends are trivially swappable without changing the
// consumer.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// ResendSender delivers email via the Resend REST API using stdlib net/http
// only, no SDK dependency.
type ResendSender struct {
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewResendSender creates a ResendSender ready to use. from is the sender
// identity, e.g. `FoodBridge <notifications@foodbridge.org>`.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// resendRequest is the JSON body sent to POST /emails.
type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// resendResponse captures just the fields we care about for logging.
type resendResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send dispatches email to the Resend API. It returns a non-nil error if
// the HTTP request fails or Resend returns a non-2xx status. The caller
// (Kafka consumer) decides whether to retry or route to the DLQ.
func (s *ResendSender) Send(ctx context.Context, email Email) error {
	body, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEmailsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rr resendResponse
		if err := json.Unmarshal(respBody, &rr); err == nil && rr.Message != "" {
			return fmt.Errorf("resend returned %d: %s", resp.StatusCode, rr.Message)
		}
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
