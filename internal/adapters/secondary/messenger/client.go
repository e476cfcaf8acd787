package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"log/slog"

	"github.com/gab-cat/tarot-bot/internal/domain"
	"golang.org/x/time/rate"
)

const (
	apiTimeout        = 30 * time.Second
	messagingResponse = "RESPONSE"
)

// Client клиент Messenger Platform (Graph API)
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient создаёт новый клиент для Graph API
func NewClient(cfg *Config, log *slog.Logger) *Client {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		baseURL: fmt.Sprintf("%s/%s", cfg.BaseURL, cfg.GraphAPIVersion),
		token:   cfg.PageAccessToken,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

type recipient struct {
	ID string `json:"id"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type attachmentPayload struct {
	AttachmentID string `json:"attachment_id,omitempty"`
	IsReusable   bool   `json:"is_reusable,omitempty"`
}

type attachment struct {
	Type    string            `json:"type"`
	Payload attachmentPayload `json:"payload"`
}

type outgoingMessage struct {
	Text         string       `json:"text,omitempty"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
	Attachment   *attachment  `json:"attachment,omitempty"`
}

// SendRequest тело запроса me/messages
type SendRequest struct {
	Recipient     recipient       `json:"recipient"`
	MessagingType string          `json:"messaging_type"`
	Message       outgoingMessage `json:"message"`
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s?access_token=%s", c.baseURL, path, url.QueryEscape(c.token))
}

// SendText отправляет текст, quickReplies опциональны
func (c *Client) SendText(ctx context.Context, recipientID, text string, quickReplies []domain.QuickReplyOption) error {
	msg := outgoingMessage{Text: text}
	for _, qr := range quickReplies {
		msg.QuickReplies = append(msg.QuickReplies, quickReply{
			ContentType: "text",
			Title:       qr.Title,
			Payload:     qr.Payload,
		})
	}
	return c.send(ctx, SendRequest{
		Recipient:     recipient{ID: recipientID},
		MessagingType: messagingResponse,
		Message:       msg,
	})
}

// SendImages отправляет картинки по одной, порядок сохраняется
func (c *Client) SendImages(ctx context.Context, recipientID string, attachmentIDs []string) error {
	for _, id := range attachmentIDs {
		err := c.send(ctx, SendRequest{
			Recipient:     recipient{ID: recipientID},
			MessagingType: messagingResponse,
			Message: outgoingMessage{
				Attachment: &attachment{Type: "image", Payload: attachmentPayload{AttachmentID: id}},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to send image %s: %w", id, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req SendRequest) error {
	var resp SendResponse
	if err := c.postJSON(ctx, "me/messages", req, &resp); err != nil {
		c.log.Debug("messenger send failed",
			"error", err,
			"recipient_id", req.Recipient.ID,
		)
		return err
	}

	c.log.Debug("message sent successfully",
		"recipient_id", resp.RecipientID,
		"message_id", resp.MessageID,
	)
	return nil
}

// postJSON POST с JSON телом, ответ с полем error превращается в *GraphError
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, out)
}

func (c *Client) do(httpReq *http.Request, out interface{}) error {
	if err := c.limiter.Wait(httpReq.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to graph API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body (status %d): %w", resp.StatusCode, err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if apiResp.Error != nil {
		return apiResp.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("graph API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
