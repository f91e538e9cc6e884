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

// TemplateTransport is the fallback provider: the message body lives
// in a provider-side template addressed by id, we only ship params.
type TemplateTransport struct {
	cfg    config.TemplateMail
	client *http.Client
}

func NewTemplateTransport(cfg config.TemplateMail) *TemplateTransport {
	return &TemplateTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TemplateTransport) Name() string { return "template-mail" }

type templateRequest struct {
	ServiceID  string            `json:"service_id"`
	TemplateID string            `json:"template_id"`
	UserID     string            `json:"user_id"`
	Params     map[string]string `json:"template_params"`
}

func (t *TemplateTransport) Send(ctx context.Context, kind EventKind, payload models.NotificationPayload) error {
	if t.cfg.ServiceID == "" {
		return fmt.Errorf("template transport is not configured")
	}

	templateID := t.cfg.NewBookingTemplate
	if kind == EventConfirmed {
		templateID = t.cfg.ConfirmedTemplate
	}

	reqBody := templateRequest{
		ServiceID:  t.cfg.ServiceID,
		TemplateID: templateID,
		UserID:     t.cfg.PublicKey,
		Params: map[string]string{
			"to_email":     payload.RecipientEmail,
			"to_name":      payload.RecipientName,
			"coach_name":   payload.CoachName,
			"talent_name":  payload.TalentName,
			"date":         payload.Date,
			"time":         payload.Time,
			"timezone":     payload.Timezone,
			"duration":     fmt.Sprintf("%d", payload.Duration),
			"session_type": sessionLabel(payload.SessionType),
			"meet_link":    payload.MeetLink,
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode template request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/api/v1.0/email/send", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build template request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send template mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("template provider returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
