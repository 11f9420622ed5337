// Package provider calls the Records Provider's lookup endpoint. Results
// arrive later through the webhook callback, not on this request.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"historial-tg-bot/internal/config"
	apperrors "historial-tg-bot/internal/errors"
	"historial-tg-bot/internal/payload"
)

// lookupRequest is sent to the provider's lookup endpoint.
type lookupRequest struct {
	CURP    string `json:"curp"`
	NSS     string `json:"nss"`
	Webhook string `json:"webhook"`
}

// Client handles communication with the Records Provider API
type Client struct {
	baseURL     string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Records Provider client
func NewClient(cfg config.ProviderConfig, callbackURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callbackURL: callbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// SubmitLookup submits a labor-history lookup and returns the provider's
// correlation identifier. A non-2xx status, or a 2xx body without a usable
// identifier, returns a ProviderError carrying the raw response body; there
// are no retries.
func (c *Client) SubmitLookup(ctx context.Context, curp, nss string) (string, error) {
	body, err := json.Marshal(lookupRequest{
		CURP:    curp,
		NSS:     nss,
		Webhook: c.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &apperrors.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	requestID := payload.RequestID(respBody)
	if requestID == "" {
		c.logger.Warn("provider response lacks a correlation identifier", "body_length", len(respBody))
		return "", &apperrors.ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Debug("lookup submitted", "request_id", requestID)
	return requestID, nil
}
