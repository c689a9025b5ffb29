package domain

import (
	"context"
	"time"
)

// Alert describes a critical-status observation worth notifying about.
type Alert struct {
	River         string    `json:"river"`
	AcquiredAt    time.Time `json:"acquired_at"`
	MeanTurbidity float64   `json:"mean_turbidity"`
	Status        string    `json:"status"`
}

// Alerter delivers critical-turbidity alerts to an external receiver.
type Alerter interface {
	// Send delivers one alert. Implementations must be safe for
	// concurrent use.
	Send(ctx context.Context, a Alert) error
}
