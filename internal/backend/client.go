package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
)

// Client talks to the LocalLife backend: the streaming chat endpoint plus
// the conversation, auth and usage management endpoints.
type Client struct {
	cfg        config.Backend
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

func NewClient(cfg config.Backend, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
	}
}

func (c *Client) CreateConversation(ctx context.Context, userID string, metadata map[string]any) (string, error) {
	var resp createConversationResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations/create", createConversationRequest{
		UserID:   userID,
		Metadata: metadata,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}
	return resp.ConversationID, nil
}

func (c *Client) GetConversation(ctx context.Context, userID, conversationID string) (model.Conversation, error) {
	var wire wireConversation
	path := fmt.Sprintf("/api/conversations/%s/%s", userID, conversationID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return model.Conversation{}, fmt.Errorf("failed to get conversation %s: %w", conversationID, err)
	}
	return wire.toModel()
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	var resp struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	path := fmt.Sprintf("/api/conversations/%s", userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return resp.Conversations, nil
}

func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	path := fmt.Sprintf("/api/conversations/%s/%s", userID, conversationID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	return nil
}

// VerifyToken checks an auth token and returns the registered user id.
func (c *Client) VerifyToken(ctx context.Context, token string) (string, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/verify", verifyRequest{Token: token}, &resp); err != nil {
		return "", fmt.Errorf("failed to verify token: %w", err)
	}
	if !resp.Success || resp.UserID == "" {
		return "", fmt.Errorf("token verification rejected")
	}
	return resp.UserID, nil
}

// RegisterWithToken registers an authenticated user and asks the backend
// to migrate the anonymous user's conversation records.
func (c *Client) RegisterWithToken(ctx context.Context, token, anonymousID string) (string, error) {
	var resp authResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register-with-token", registerRequest{
		Token:           token,
		AnonymousUserID: anonymousID,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to register: %w", err)
	}
	if !resp.Success || resp.UserID == "" {
		return "", fmt.Errorf("registration rejected")
	}
	return resp.UserID, nil
}

func (c *Client) GetUsage(ctx context.Context, userID string) (model.UsageStats, error) {
	var stats model.UsageStats
	path := fmt.Sprintf("/api/usage/%s", userID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return model.UsageStats{}, fmt.Errorf("failed to get usage: %w", err)
	}
	return stats, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	ctx, span := c.tracer.Start(ctx, "backend_request")
	defer span.End()

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
