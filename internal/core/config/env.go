package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"molgraph/internal/shared/logger"

	"go.uber.org/zap"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: MOLGRAPH_[SECTION]_[KEY] (e.g., MOLGRAPH_PROCESSING_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Output
	setEnvString(&cfg.Output.Prefix, "MOLGRAPH_OUTPUT_PREFIX")
	setEnvBoolPtr(&cfg.Output.Combine, "MOLGRAPH_OUTPUT_COMBINE")

	// Processing
	setEnvInt(&cfg.Processing.Workers, "MOLGRAPH_PROCESSING_WORKERS")
	setEnvInt(&cfg.Processing.BatchSize, "MOLGRAPH_PROCESSING_BATCH_SIZE")
	setEnvDuration(&cfg.Processing.FlushInterval, "MOLGRAPH_PROCESSING_FLUSH_INTERVAL")
	setEnvInt(&cfg.Processing.StructureCache, "MOLGRAPH_PROCESSING_STRUCTURE_CACHE")
	setEnvFloat64(&cfg.Processing.MaxLoadsPerSecond, "MOLGRAPH_PROCESSING_MAX_LOADS_PER_SECOND")
	setEnvBool(&cfg.Processing.IncludeHetero, "MOLGRAPH_PROCESSING_INCLUDE_HETERO")

	// Manifest
	setEnvString(&cfg.Manifest.Path, "MOLGRAPH_MANIFEST_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "MOLGRAPH_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "MOLGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "MOLGRAPH_OBSERVABILITY_OTLP_INSECURE")
	setEnvString(&cfg.Observability.ServiceName, "MOLGRAPH_OBSERVABILITY_SERVICE_NAME")

	// Logging
	setEnvString(&cfg.Logging.Level, "MOLGRAPH_LOGGING_LEVEL")
}

func logOverride(key, val string) {
	logger.Debug("applying env override", zap.String("key", key), zap.String("value", val))
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
