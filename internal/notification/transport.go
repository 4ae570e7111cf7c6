package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
)

// LogTransport writes emails to the logger instead of delivering them.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, email *Email) error {
	t.logger.Info("email",
		"from", email.From,
		"to", email.To,
		"subject", email.Subject,
		"text", email.Text)
	return nil
}

func (t *LogTransport) Name() string { return "log" }

// HTTPTransport posts emails as JSON to a provider API.
type HTTPTransport struct {
	apiURL string
	apiKey string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPTransport(apiURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (t *HTTPTransport) Send(ctx context.Context, email *Email) error {
	jsonData, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	t.logger.Debug("email accepted by provider", "to", email.To, "status", resp.StatusCode)
	return nil
}

func (t *HTTPTransport) Name() string { return "http" }

// NewTransport picks the transport configured for the deployment.
func NewTransport(cfg internal.NotificationConfig, logger *slog.Logger) Transport {
	if cfg.Provider == "http" {
		return NewHTTPTransport(cfg.APIURL, cfg.APIKey, cfg.Timeout, logger)
	}
	return NewLogTransport(logger)
}
