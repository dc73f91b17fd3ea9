package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

type tokenRequest struct {
	ProviderKey string      `json:"provider_key"`
	Device      tokenDevice `json:"device"`
}

type tokenDevice struct {
	AppID    string `json:"app_id,omitempty"`
	Platform string `json:"platform"`
}

type sendRequest struct {
	Message sendMessage `json:"message"`
}

type sendMessage struct {
	To      sendTo         `json:"to"`
	Content sendContent    `json:"content"`
	Data    map[string]any `json:"data,omitempty"`
	Routing sendRouting    `json:"routing"`
}

type sendTo struct {
	UserID string `json:"user_id"`
}

type sendContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendRouting struct {
	Method   string   `json:"method"`
	Channels []string `json:"channels"`
}

type sendResponse struct {
	RequestID string `json:"requestId"`
}

func (c *Client) tokenURL(token string) string {
	return fmt.Sprintf("%s/users/%s/tokens/%s", c.opts.APIURL, url.PathEscape(c.session.UserID), url.PathEscape(token))
}

// PutToken registers a push token for the signed-in user.
func (c *Client) PutToken(ctx context.Context, token domain.PushToken) error {
	providerKey := token.Provider
	if providerKey == "" {
		providerKey = domain.PushProviderFCM
	}
	body := tokenRequest{ProviderKey: providerKey, Device: tokenDevice{Platform: "go"}}
	return c.rest(ctx, http.MethodPut, c.tokenURL(token.Token), "put push token", body, nil)
}

// DeleteToken removes a push token for the signed-in user.
func (c *Client) DeleteToken(ctx context.Context, token string) error {
	return c.rest(ctx, http.MethodDelete, c.tokenURL(token), "delete push token", nil, nil)
}

// Send sends an inbox message to a user and returns the request id.
func (c *Client) Send(ctx context.Context, req provider.SendRequest) (string, error) {
	if req.UserID == "" {
		return "", fmt.Errorf("send requires a user id")
	}
	body := sendRequest{Message: sendMessage{
		To:      sendTo{UserID: req.UserID},
		Content: sendContent{Title: req.Title, Body: req.Body},
		Data:    req.Data,
		Routing: sendRouting{Method: "all", Channels: []string{"inbox"}},
	}}

	var resp sendResponse
	if err := c.rest(ctx, http.MethodPost, c.opts.APIURL+"/send", "send message", body, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

func (c *Client) rest(ctx context.Context, method, target, op string, in, out any) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to %s: %w: status %d: %s", op, domain.ErrTransport, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w: %w", op, domain.ErrParse, err)
	}
	return nil
}
