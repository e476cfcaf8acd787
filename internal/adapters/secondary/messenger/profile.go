package messenger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	messengerPort "github.com/gab-cat/tarot-bot/internal/ports/messenger"
)

// GetUserProfile имя и фамилия пользователя по PSID
func (c *Client) GetUserProfile(ctx context.Context, psid string) (*messengerPort.Profile, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=first_name,last_name&access_token=%s",
		c.baseURL, url.PathEscape(psid), url.QueryEscape(c.token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp ProfileResponse
	if err := c.do(httpReq, &resp); err != nil {
		c.log.Debug("profile request failed", "error", err, "psid", psid)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &messengerPort.Profile{FirstName: resp.FirstName, LastName: resp.LastName}, nil
}

// SetGetStarted кнопка Get Started на экране приветствия
func (c *Client) SetGetStarted(ctx context.Context, payload string) error {
	body := map[string]interface{}{
		"get_started": map[string]string{"payload": payload},
	}
	return c.setProfile(ctx, body)
}

// SetGreeting текст приветствия, {{user_first_name}} подставляется Messenger
func (c *Client) SetGreeting(ctx context.Context, text string) error {
	body := map[string]interface{}{
		"greeting": []map[string]string{{"locale": "default", "text": text}},
	}
	return c.setProfile(ctx, body)
}

func (c *Client) setProfile(ctx context.Context, body interface{}) error {
	var resp ResultResponse
	if err := c.postJSON(ctx, "me/messenger_profile", body, &resp); err != nil {
		return fmt.Errorf("failed to update messenger profile: %w", err)
	}
	c.log.Info("messenger profile updated", "result", resp.Result)
	return nil
}
