package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/lineplan/internal/config"
)

// Client delivers planner alerts to an external webhook.
type Client interface {
	Notify(ctx context.Context, alert Alert) error
}

// Alert is one anomaly notification.
type Alert struct {
	Kind     string            `json:"kind"`
	Severity string            `json:"severity"`
	Subject  string            `json:"subject"`
	Message  string            `json:"message"`
	Labels   map[string]string `json:"labels,omitempty"`
	RaisedAt time.Time         `json:"raised_at"`
}

// Severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client from configuration.
func NewClient(cfg config.AlertsConfig) *WebhookClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &WebhookClient{httpClient: restyClient, url: cfg.WebhookURL}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Notify posts the alert as JSON.
func (c *WebhookClient) Notify(ctx context.Context, alert Alert) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("alert webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}

// Nop discards alerts.
type Nop struct{}

// Notify implements Client.
func (Nop) Notify(context.Context, Alert) error { return nil }
