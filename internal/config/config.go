package config

import (
	"errors"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	// KafkaGroupID enables committed consumer-group offsets. When empty the
	// reader replays the source topic from the first offset on every start,
	// rebuilding the in-memory model from the full observation log.
	KafkaGroupID    string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	BasinName        string
	BasinDefinition  string
	PublishSnapshots bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	publish, err := strconv.ParseBool(sharedcfg.EnvOrDefault("PUBLISH_SNAPSHOTS", "true"))
	if err != nil {
		return nil, errors.New("invalid PUBLISH_SNAPSHOTS: must be a boolean")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "basin-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "basin-health-snapshots"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", ""),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		BasinName:        sharedcfg.EnvOrDefault("BASIN_NAME", "basin"),
		BasinDefinition:  sharedcfg.EnvOrDefault("BASIN_DEFINITION", ""),
		PublishSnapshots: publish,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.PublishSnapshots && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when PUBLISH_SNAPSHOTS is true")
	}

	return cfg, nil
}
