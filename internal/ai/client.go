// Package ai wraps the text-completion provider used for proposal drafts and
// action plans.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"potencialize/internal/apperr"
)

// TextCompleter turns a prompt into generated text.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// MistralClient calls the chat completions endpoint.
type MistralClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

func NewMistralClient(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) *MistralClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MistralClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *MistralClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Transient(fmt.Errorf("ai request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("ai completion failed", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		err := fmt.Errorf("ai status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", apperr.Transient(err)
		}
		return "", err
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("ai returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Offline is used when no API key is configured; Assistant substitutes templates.
type Offline struct{}

func (Offline) Complete(_ context.Context, _ string) (string, error) {
	return "", errOffline
}

var errOffline = fmt.Errorf("ai offline")
