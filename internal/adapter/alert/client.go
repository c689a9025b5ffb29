// Package alert delivers critical-turbidity notifications to an operator
// webhook, deduplicating per river and acquisition date.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
)

// Client implements domain.Alerter by POSTing alerts as JSON to a webhook.
type Client struct {
	webhookURL string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a webhook alert client.
func NewClient(webhookURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Send posts one alert. Any non-2xx response is an error; the body is
// included for operator diagnosis.
func (c *Client) Send(ctx context.Context, a domain.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.AlertRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("alert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.metrics.AlertRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("alert webhook error: status %d: %s", resp.StatusCode, body)
	}

	c.metrics.AlertRequests.WithLabelValues("delivered").Inc()
	c.logger.Info("alert delivered", "river", a.River, "acquired_at", a.AcquiredAt, "mean_turbidity", a.MeanTurbidity)
	return nil
}
