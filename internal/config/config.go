package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Index computation configuration.
	NDWIThreshold  float64 // water-mask cutoff; standard 0.0, lowered for muddy rivers
	MinWaterPixels int     // minimum valid water pixels for a scene to count
	SummaryMin     float64 // plausibility lower bound for the masked mean
	SummaryMax     float64 // plausibility upper bound for the masked mean
	StatusModerate float64 // masked mean above this is at least moderate
	StatusCritical float64 // masked mean above this is critical

	// Alert webhook configuration.
	AlertWebhookURL string
	AlertEnabled    bool
	AlertTimeout    time.Duration
	AlertCacheSize  int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	ndwiThreshold, err := parseFloat("NDWI_THRESHOLD", 0.0)
	if err != nil {
		return nil, err
	}

	minWaterPixels, err := parseInt("MIN_WATER_PIXELS", 50)
	if err != nil {
		return nil, err
	}

	summaryMin, err := parseFloat("SUMMARY_MIN", -0.5)
	if err != nil {
		return nil, err
	}
	summaryMax, err := parseFloat("SUMMARY_MAX", 0.8)
	if err != nil {
		return nil, err
	}

	statusModerate, err := parseFloat("STATUS_MODERATE", 0.0)
	if err != nil {
		return nil, err
	}
	statusCritical, err := parseFloat("STATUS_CRITICAL", 0.1)
	if err != nil {
		return nil, err
	}

	alertTimeout, err := parseDuration("ALERT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	alertCacheSize, err := parseInt("ALERT_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	alertWebhookURL := os.Getenv("ALERT_WEBHOOK_URL")
	alertEnabled := alertWebhookURL != ""
	if v := os.Getenv("ALERT_ENABLED"); v != "" {
		alertEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-river-scenes"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "river-turbidity-summaries"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "river-turbidity-etl"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		NDWIThreshold:  ndwiThreshold,
		MinWaterPixels: minWaterPixels,
		SummaryMin:     summaryMin,
		SummaryMax:     summaryMax,
		StatusModerate: statusModerate,
		StatusCritical: statusCritical,

		AlertWebhookURL: alertWebhookURL,
		AlertEnabled:    alertEnabled,
		AlertTimeout:    alertTimeout,
		AlertCacheSize:  alertCacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.NDWIThreshold <= -1 || cfg.NDWIThreshold >= 1 {
		return nil, errors.New("NDWI_THRESHOLD must be within (-1, 1)")
	}
	if cfg.MinWaterPixels < 1 {
		return nil, errors.New("MIN_WATER_PIXELS must be at least 1")
	}
	if cfg.SummaryMin >= cfg.SummaryMax {
		return nil, errors.New("SUMMARY_MIN must be below SUMMARY_MAX")
	}
	if cfg.StatusModerate >= cfg.StatusCritical {
		return nil, errors.New("STATUS_MODERATE must be below STATUS_CRITICAL")
	}
	if cfg.AlertEnabled && cfg.AlertWebhookURL == "" {
		return nil, errors.New("ALERT_ENABLED is true but ALERT_WEBHOOK_URL is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBatchSize() (int, error) {
	n, err := parseInt("BATCH_SIZE", 50)
	if err != nil {
		return 0, err
	}
	// Scenes carry full band arrays, so batches stay small to bound memory.
	if n > 1000 {
		return 0, errors.New("invalid BATCH_SIZE: must be at most 1000")
	}
	return n, nil
}
