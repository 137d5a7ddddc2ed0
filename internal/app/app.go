package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kzap"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/battlelog"
	"github.com/tchap/anonbattle/internal/config"
	"github.com/tchap/anonbattle/internal/pipeline"
)

// Push deadline for directory runs, windows are flushed by size well before.
const directoryAggregationPeriod = 10 * time.Second

type App struct {
	kafka      *kgo.Client
	anonymizer *battlelog.Anonymizer
	pipe       *pipeline.Pipeline[*Battle, *Batch]
}

// New builds the service: battle logs are consumed from Kafka and pushed into
// the configured sink. One registry serves the whole run.
func New(
	c config.Config,
	logger *zap.Logger,
) (*App, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	// Init the Kafka client.
	kafkaClient, err := kgo.NewClient(
		kgo.SeedBrokers(c.KafkaBrokers...),
		kgo.ClientID(c.KafkaClientID),
		kgo.ConsumerGroup(c.KafkaConsumerGroup),
		kgo.ConsumeTopics(c.KafkaTopic),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxBytes(1024*1024*c.KafkaFetchMaxMB),
		// Every battle has to be published, start from the oldest one.
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.WithLogger(kzap.New(logger.Named("kafka").WithOptions(zap.IncreaseLevel(c.KafkaLogLevel)))),
	)
	if err != nil {
		logger.Error("Failed to init Kafka client.", zap.Error(err))
		return nil, err
	}

	pusher, err := newPusher(c, logger, kafkaClient, runID)
	if err != nil {
		kafkaClient.Close()
		return nil, err
	}

	anonymizer := battlelog.NewAnonymizer(logger.Named("anonymizer"), battlelog.NewRegistry(), c.StrictMode)
	source := NewKafkaSource(logger.Named("kafka_source"), kafkaClient, c.KafkaTopic)
	return &App{
		kafka:      kafkaClient,
		anonymizer: anonymizer,
		pipe:       newPipeline(logger, source, anonymizer, c.AggregationPeriod, c.MaxWindowSize, pusher),
	}, nil
}

func newPusher(c config.Config, logger *zap.Logger, kafkaClient *kgo.Client, runID string) (pipeline.Pusher[*Batch], error) {
	switch c.Sink {
	case config.SinkClickHouse:
		return NewHTTPPostPusher(
			logger.Named("http_post_pusher"),
			c.ClickHouseURL, c.ClickHouseTableName, runID, c.ClickHousePushRetryCount, c.AggregationPeriod,
		), nil

	case config.SinkKafka:
		return NewKafkaPusher(logger.Named("kafka_pusher"), kafkaClient, c.KafkaOutputTopic, runID), nil

	case config.SinkDirectory:
		pusher, err := NewDirectoryPusher(logger.Named("directory_pusher"), c.OutputDir)
		if err != nil {
			return nil, err
		}
		return pusher, nil
	}
	return nil, errors.Errorf("unknown sink %q", c.Sink)
}

type DirectoryOptions struct {
	Inputs    []string
	OutputDir string
	Format    string
	Strict    bool
	BatchSize int
}

// NewDirectoryRun anonymizes every battle log of the given format found under
// the inputs into OutputDir. The returned app finishes on its own.
func NewDirectoryRun(o DirectoryOptions, logger *zap.Logger) (*App, error) {
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	source, err := NewDirectorySource(logger.Named("directory_source"), o.Inputs, o.Format, o.BatchSize)
	if err != nil {
		return nil, err
	}
	pusher, err := NewDirectoryPusher(logger.Named("directory_pusher"), o.OutputDir)
	if err != nil {
		return nil, err
	}

	anonymizer := battlelog.NewAnonymizer(logger.Named("anonymizer"), battlelog.NewRegistry(), o.Strict)
	return &App{
		anonymizer: anonymizer,
		pipe:       newPipeline(logger, source, anonymizer, directoryAggregationPeriod, source.batchSize, pusher),
	}, nil
}

func newPipeline(
	logger *zap.Logger,
	source pipeline.Source,
	anonymizer *battlelog.Anonymizer,
	aggregationPeriod time.Duration,
	maxWindowSize int,
	pusher pipeline.Pusher[*Batch],
) *pipeline.Pipeline[*Battle, *Batch] {
	return pipeline.New[*Battle, *Batch](
		logger.Named("pipeline"),
		source,
		NewMessageDecoder(logger.Named("decoder")),
		NewBattleAnonymizer(logger.Named("transformer"), anonymizer),
		func() pipeline.AggregationWindow[*Battle, *Batch] { return NewAggregator() },
		aggregationPeriod,
		maxWindowSize,
		pusher,
	)
}

func (app *App) Stop() {
	app.pipe.Stop()
}

func (app *App) Wait() error {
	if app.kafka != nil {
		defer app.kafka.Close()
	}
	return app.pipe.Wait()
}

// Stats must only be called after Wait returns.
func (app *App) Stats() battlelog.Stats {
	return app.anonymizer.Stats()
}
