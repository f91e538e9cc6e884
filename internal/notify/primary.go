package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"coachly/internal/config"
	"coachly/internal/models"
)

// MailTransport talks to the transactional email provider's REST API.
type MailTransport struct {
	cfg    config.PrimaryMail
	client *http.Client
}

func NewMailTransport(cfg config.PrimaryMail) *MailTransport {
	return &MailTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *MailTransport) Name() string { return "mail-api" }

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailRequest struct {
	Sender      mailAddress   `json:"sender"`
	To          []mailAddress `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
}

func (t *MailTransport) Send(ctx context.Context, kind EventKind, payload models.NotificationPayload) error {
	if t.cfg.APIKey == "" {
		return fmt.Errorf("mail transport is not configured")
	}

	reqBody := mailRequest{
		Sender:      mailAddress{Email: t.cfg.SenderEmail, Name: t.cfg.SenderName},
		To:          []mailAddress{{Email: payload.RecipientEmail, Name: payload.RecipientName}},
		Subject:     subjectFor(kind, payload),
		HTMLContent: htmlFor(kind, payload),
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v3/smtp/email", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
