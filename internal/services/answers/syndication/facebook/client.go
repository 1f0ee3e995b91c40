// Package facebook publishes answers to a Facebook Page through the Graph API.
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/louisbranch/answerdesk/internal/platform/errors"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
)

// DefaultAPIBase is the versioned Graph API root.
const DefaultAPIBase = "https://graph.facebook.com/v19.0"

// Config configures the Page the adapter posts as.
type Config struct {
	APIBase    string
	PageID     string
	PageToken  string
	HTTPClient *http.Client
}

// Client is the Facebook Page adapter.
type Client struct {
	cfg Config
}

// New builds a Facebook adapter. PageID and PageToken are required.
func New(cfg Config) (*Client, error) {
	cfg.PageID = strings.TrimSpace(cfg.PageID)
	cfg.PageToken = strings.TrimSpace(cfg.PageToken)
	if cfg.PageID == "" || cfg.PageToken == "" {
		return nil, fmt.Errorf("facebook page id and token are required")
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg}, nil
}

// Platform reports the platform this adapter serves.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformFacebook
}

// Publish creates a Page feed post and returns its id.
func (c *Client) Publish(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"message":      text,
		"access_token": c.cfg.PageToken,
	})
	if err != nil {
		return "", fmt.Errorf("marshal facebook post: %w", err)
	}
	endpoint := c.cfg.APIBase + "/" + url.PathEscape(c.cfg.PageID) + "/feed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build facebook publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.ID) == "" {
		return "", apperrors.New(apperrors.CodeExternalServiceFailed, "facebook publish returned no post id")
	}
	return payload.ID, nil
}

// Delete removes a Page post. Graph reports success in the response body.
func (c *Client) Delete(ctx context.Context, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("facebook post id is required")
	}
	endpoint := c.cfg.APIBase + "/" + url.PathEscape(postID) + "?" + url.Values{"access_token": {c.cfg.PageToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build facebook delete request: %w", err)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if err := c.do(req, &payload); err != nil {
		return err
	}
	if !payload.Success {
		return apperrors.New(apperrors.CodeExternalServiceFailed, "facebook delete was not acknowledged")
	}
	return nil
}

// do sends req and decodes a 2xx JSON body into out. Errors never include
// the request URL, which may carry the page token.
func (c *Client) do(req *http.Request, out any) error {
	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return apperrors.Wrap(apperrors.CodeExternalServiceFailed, "facebook request failed", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExternalServiceFailed, "read facebook response", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apperrors.New(apperrors.CodeExternalServiceFailed,
			fmt.Sprintf("facebook request status %d: %s", res.StatusCode, graphErrorMessage(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(apperrors.CodeExternalServiceFailed, "decode facebook response", err)
	}
	return nil
}

func graphErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Sprintf("%s (%s %d)", payload.Error.Message, payload.Error.Type, payload.Error.Code)
	}
	return strings.TrimSpace(string(body))
}
