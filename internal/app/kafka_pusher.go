package app

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// KafkaPusher produces anonymized battles into an output topic.
type KafkaPusher struct {
	logger *zap.Logger
	kafka  *kgo.Client
	topic  string
	runID  string
}

func NewKafkaPusher(logger *zap.Logger, kafkaClient *kgo.Client, topic, runID string) *KafkaPusher {
	return &KafkaPusher{
		logger: logger,
		kafka:  kafkaClient,
		topic:  topic,
		runID:  runID,
	}
}

func (pusher *KafkaPusher) Push(ctx context.Context, batch *Batch, windowSize int) error {
	records := make([]*kgo.Record, 0, len(batch.Battles))
	for _, b := range batch.Battles {
		records = append(records, pusher.record(b))
	}

	if err := pusher.kafka.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		pusher.logger.Error(
			"Failed to produce anonymized battles.",
			zap.String("kafka_topic", pusher.topic),
			zap.Error(err),
		)
		return err
	}

	pusher.logger.Info(
		"Anonymized battles produced successfully.",
		zap.String("kafka_topic", pusher.topic),
		zap.Int("window_size", windowSize),
	)
	return nil
}

func (pusher *KafkaPusher) record(b *Battle) *kgo.Record {
	number := strconv.FormatUint(b.Number, 10)
	return &kgo.Record{
		Topic: pusher.topic,
		Key:   []byte(b.Format + "-" + number),
		Value: []byte(b.Anonymized),
		Headers: []kgo.RecordHeader{
			{Key: formatHeader, Value: []byte(b.Format)},
			{Key: runIDHeader, Value: []byte(pusher.runID)},
			{Key: battleNumberHeader, Value: []byte(number)},
		},
	}
}
