// Package linkedin publishes answers as LinkedIn organization posts and owns
// the organization's OAuth2 token lifecycle.
package linkedin

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

const (
	// DefaultAPIBase is the versioned REST API root.
	DefaultAPIBase = "https://api.linkedin.com/rest"
	// DefaultVersion is the LinkedIn-Version header value.
	DefaultVersion = "202401"

	restliProtocolVersion = "2.0.0"
)

// AccessTokenSource supplies bearer tokens for API calls.
type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config configures the organization the adapter posts as.
type Config struct {
	APIBase        string
	Version        string
	OrganizationID string
	HTTPClient     *http.Client
}

// Client is the LinkedIn organization posts adapter.
type Client struct {
	cfg    Config
	tokens AccessTokenSource
}

// New builds a LinkedIn adapter.
func New(cfg Config, tokens AccessTokenSource) (*Client, error) {
	cfg.OrganizationID = strings.TrimSpace(cfg.OrganizationID)
	if cfg.OrganizationID == "" {
		return nil, fmt.Errorf("linkedin organization id is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("linkedin token source is required")
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Client{cfg: cfg, tokens: tokens}, nil
}

// Platform reports the platform this adapter serves.
func (c *Client) Platform() domain.Platform {
	return domain.PlatformLinkedIn
}

type postRequest struct {
	Author       string       `json:"author"`
	Commentary   string       `json:"commentary"`
	Visibility   string       `json:"visibility"`
	Distribution distribution `json:"distribution"`
	Lifecycle    string       `json:"lifecycleState"`
	Reshare      bool         `json:"isReshareDisabledByAuthor"`
}

type distribution struct {
	FeedDistribution               string `json:"feedDistribution"`
	TargetEntities                 []any  `json:"targetEntities"`
	ThirdPartyDistributionChannels []any  `json:"thirdPartyDistributionChannels"`
}

// Publish creates an organization post and returns its URN.
func (c *Client) Publish(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(postRequest{
		Author:     "urn:li:organization:" + c.cfg.OrganizationID,
		Commentary: text,
		Visibility: "PUBLIC",
		Distribution: distribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []any{},
			ThirdPartyDistributionChannels: []any{},
		},
		Lifecycle: "PUBLISHED",
	})
	if err != nil {
		return "", fmt.Errorf("marshal linkedin post: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.APIBase+"/posts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return "", statusError("publish", res)
	}
	urn := strings.TrimSpace(res.Header.Get("x-restli-id"))
	if urn == "" {
		urn = strings.TrimSpace(res.Header.Get("x-linkedin-id"))
	}
	if urn == "" {
		return "", apperrors.New(apperrors.CodeExternalServiceFailed, "linkedin publish returned no post urn")
	}
	return urn, nil
}

// Delete removes an organization post. LinkedIn acknowledges with 204.
func (c *Client) Delete(ctx context.Context, postURN string) error {
	postURN = strings.TrimSpace(postURN)
	if postURN == "" {
		return fmt.Errorf("linkedin post urn is required")
	}
	req, err := c.newRequest(ctx, http.MethodDelete, c.cfg.APIBase+"/posts/"+url.QueryEscape(postURN), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-RestLi-Method", "DELETE")

	res, err := c.send(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		return statusError("delete", res)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build linkedin request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("LinkedIn-Version", c.cfg.Version)
	req.Header.Set("X-Restli-Protocol-Version", restliProtocolVersion)
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, apperrors.Wrap(apperrors.CodeExternalServiceFailed, "linkedin request failed", err)
	}
	return res, nil
}

func statusError(op string, res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		detail = payload.Message
	}
	return apperrors.New(apperrors.CodeExternalServiceFailed,
		fmt.Sprintf("linkedin %s status %d: %s", op, res.StatusCode, detail))
}
