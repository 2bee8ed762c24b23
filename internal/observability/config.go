package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/menuya/internal/config"
	"github.com/spf13/viper"
)

// Config holds the logging, tracing and metrics settings of one process.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Restaurant  string

	LogLevel         string
	LogFormat        string
	LogSampleInitial int
	LogSampleAfter   int
	LogSampleWindow  time.Duration
	LogQuietRoutes   []string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	MetricsNamespace string
}

// LoadConfig layers OTEL_* and LOG_* environment variables over the app config.
func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DEPLOYMENT_ENV", cfg.Environment)
	v.SetDefault("SERVICE_VERSION", cfg.AppVersion)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_SAMPLE_INITIAL", 100)
	v.SetDefault("LOG_SAMPLE_THEREAFTER", 100)
	v.SetDefault("LOG_SAMPLE_WINDOW", time.Second)
	v.SetDefault("LOG_QUIET_ROUTES", "/health,/metrics")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "menuya"
	}

	protocol := v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL")
	if traces := strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = traces
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(v.GetString("DEPLOYMENT_ENV")),
		Version:              strings.TrimSpace(v.GetString("SERVICE_VERSION")),
		Restaurant:           strings.TrimSpace(cfg.RestaurantName),
		LogLevel:             lower(v.GetString("LOG_LEVEL")),
		LogFormat:            lower(v.GetString("LOG_FORMAT")),
		LogSampleInitial:     v.GetInt("LOG_SAMPLE_INITIAL"),
		LogSampleAfter:       v.GetInt("LOG_SAMPLE_THEREAFTER"),
		LogSampleWindow:      v.GetDuration("LOG_SAMPLE_WINDOW"),
		LogQuietRoutes:       splitRoutes(v.GetString("LOG_QUIET_ROUTES")),
		OtelEnabled:          v.GetBool("OTEL_ENABLED"),
		OtelExporterEndpoint: strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OtelExporterProtocol: lower(protocol),
		OtelSamplingRatio:    v.GetFloat64("OTEL_SAMPLING_RATIO"),
		MetricsNamespace:     metricsNamespace(serviceName),
	}
}

// Debug is true for debug logging or a development deployment.
func (c Config) Debug() bool {
	if lower(c.LogLevel) == "debug" {
		return true
	}
	switch lower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

// metricsNamespace turns a service name into a valid Prometheus namespace.
func metricsNamespace(serviceName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(serviceName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	if b.Len() == 0 {
		return "menuya"
	}
	return b.String()
}

func splitRoutes(raw string) []string {
	var routes []string
	for _, part := range strings.Split(raw, ",") {
		if route := strings.TrimSpace(part); route != "" {
			routes = append(routes, route)
		}
	}
	return routes
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
