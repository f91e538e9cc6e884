// Package profiles is a thin client for the profile-lookup
// collaborator. The engine only needs an email and display name to
// address notifications.
package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coachly/internal/config"
	"coachly/internal/models"
)

type Client struct {
	cfg    config.ProfilesConfig
	client *http.Client
}

func NewClient(cfg config.ProfilesConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetProfile resolves a user's email and display name by id and role.
func (c *Client) GetProfile(ctx context.Context, userID, role string) (*models.Profile, error) {
	url := fmt.Sprintf("%s/api/v1/profiles/%s/%s", c.cfg.BaseURL, role, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("profile %s/%s not found", role, userID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile service returned %d", resp.StatusCode)
	}

	var profile models.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}
