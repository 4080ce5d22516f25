package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/triviabees/internal/config"
)

const envPrefix = "TRIVIABEES_"

// Config holds the logging and telemetry settings of the functions process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig starts from the application config. TRIVIABEES_-prefixed
// variables win over the standard OTEL_* ones.
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "triviabees"
	}
	environment := strings.TrimSpace(cfg.Environment)

	defaultFormat, defaultRatio := "json", 0.1
	if isDevEnv(environment) {
		defaultFormat, defaultRatio = "console", 1
	}

	protocol := lookup("grpc", envPrefix+"OTEL_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL")

	return Config{
		ServiceName:          serviceName,
		Environment:          environment,
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(lookup("info", envPrefix+"LOG_LEVEL", "LOG_LEVEL")),
		LogFormat:            strings.ToLower(lookup(defaultFormat, envPrefix+"LOG_FORMAT", "LOG_FORMAT")),
		OtelEnabled:          parseBool(lookup("", envPrefix+"OTEL_ENABLED", "OTEL_ENABLED"), false),
		OtelExporterEndpoint: lookup(cfg.OTLPEndpoint, envPrefix+"OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterProtocol: strings.ToLower(protocol),
		OtelSamplingRatio:    clampRatio(parseFloat(lookup("", envPrefix+"OTEL_SAMPLING_RATIO", "OTEL_SAMPLING_RATIO"), defaultRatio)),
	}
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// lookup returns the first non-empty variable among keys, or def.
func lookup(def string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(def)
}

func parseBool(value string, def bool) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func parseFloat(value string, def float64) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
