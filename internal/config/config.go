package config

import (
	"regexp"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Table names end up in the INSERT query as is, optionally qualified by a database.
var clickHouseTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

const (
	SinkClickHouse = "clickhouse"
	SinkKafka      = "kafka"
	SinkDirectory  = "directory"
)

type Config struct {
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"        required:"true"`
	KafkaTopic         string   `envconfig:"KAFKA_TOPIC"          required:"true"`
	KafkaClientID      string   `envconfig:"KAFKA_CLIENT_ID"      required:"true"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" required:"true"`
	KafkaFetchMaxMB    int32    `envconfig:"KAFKA_FETCH_MAX_MB"   default:"50"`

	Sink string `envconfig:"SINK" default:"clickhouse"`

	KafkaOutputTopic string `envconfig:"KAFKA_OUTPUT_TOPIC"`

	ClickHouseURL            string `envconfig:"CLICKHOUSE_URL"`
	ClickHouseTableName      string `envconfig:"CLICKHOUSE_TABLE_NAME"       default:"battle_log"`
	ClickHousePushRetryCount int    `envconfig:"CLICKHOUSE_PUSH_RETRY_COUNT" default:"3"`

	OutputDir string `envconfig:"OUTPUT_DIR"`

	AggregationPeriod time.Duration `envconfig:"AGGREGATION_PERIOD" default:"10s"`
	MaxWindowSize     int           `envconfig:"MAX_WINDOW_SIZE"    default:"1000"`

	// A leak kills the service unless explicitly relaxed.
	StrictMode bool `envconfig:"STRICT_MODE" default:"true"`

	LogLevel      zapcore.Level `envconfig:"LOG_LEVEL"       default:"info"`
	LogFile       string        `envconfig:"LOG_FILE"`
	KafkaLogLevel zapcore.Level `envconfig:"KAFKA_LOG_LEVEL" default:"error"`
}

func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &c, nil
}

// Validate checks the settings required by the selected sink.
func (c *Config) Validate() error {
	switch c.Sink {
	case SinkClickHouse:
		if c.ClickHouseURL == "" {
			return errors.New("CLICKHOUSE_URL is required for the clickhouse sink")
		}
		if !clickHouseTableName.MatchString(c.ClickHouseTableName) {
			return errors.Errorf("CLICKHOUSE_TABLE_NAME %q is not a valid table name", c.ClickHouseTableName)
		}
	case SinkKafka:
		if c.KafkaOutputTopic == "" {
			return errors.New("KAFKA_OUTPUT_TOPIC is required for the kafka sink")
		}
		if c.KafkaOutputTopic == c.KafkaTopic {
			return errors.New("KAFKA_OUTPUT_TOPIC must differ from KAFKA_TOPIC")
		}
	case SinkDirectory:
		if c.OutputDir == "" {
			return errors.New("OUTPUT_DIR is required for the directory sink")
		}
	default:
		return errors.Errorf("unknown sink %q", c.Sink)
	}
	if c.AggregationPeriod <= 0 {
		return errors.New("AGGREGATION_PERIOD must be positive")
	}
	return nil
}
