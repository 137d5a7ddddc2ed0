package app

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/logging"
	"github.com/tchap/anonbattle/internal/pipeline"
)

const (
	formatHeader       = "format"
	runIDHeader        = "run_id"
	battleNumberHeader = "battle_number"
)

type KafkaSource struct {
	logger *zap.Logger
	kafka  *kgo.Client
	topic  string
}

func NewKafkaSource(logger *zap.Logger, kafkaClient *kgo.Client, topic string) *KafkaSource {
	return &KafkaSource{
		logger: logger,
		kafka:  kafkaClient,
		topic:  topic,
	}
}

func (s *KafkaSource) Poll(ctx context.Context) ([]*pipeline.Message, error) {
	fetches := s.kafka.PollFetches(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetches.IsClientClosed() {
		return nil, io.EOF
	}

	var fetchErr error
	fetches.EachError(func(topic string, partition int32, err error) {
		// ErrDataLoss is just for information.
		var ex *kgo.ErrDataLoss
		if errors.As(err, &ex) {
			s.logger.Warn(
				"Data loss error encountered.",
				zap.String("topic", ex.Topic),
				zap.Int32("partition", ex.Partition),
				zap.Error(ex),
			)
			return
		}

		// Just crash for any other error.
		s.logger.Error(
			"Unrecoverable fetch error encountered.",
			zap.String("topic", topic),
			zap.Int32("partition", partition),
			zap.Error(err),
		)
		if fetchErr == nil {
			fetchErr = err
		}
	})
	if fetchErr != nil {
		return nil, fetchErr
	}

	var msgs []*pipeline.Message
	fetches.EachRecord(func(r *kgo.Record) {
		s.logger.Debug("Record fetched.", zap.Object("record", (*logging.KafkaRecord)(r)))
		msgs = append(msgs, &pipeline.Message{
			Origin:      r.Topic,
			Format:      headerValue(r, formatHeader),
			Partition:   r.Partition,
			Offset:      r.Offset,
			LeaderEpoch: r.LeaderEpoch,
			Value:       r.Value,
		})
	})
	return msgs, nil
}

func (s *KafkaSource) Commit(ctx context.Context, offsets map[int32]pipeline.Checkpoint) error {
	epochOffsets := make(map[int32]kgo.EpochOffset, len(offsets))
	for partition, checkpoint := range offsets {
		// The committed offset is the next one to be consumed.
		epochOffsets[partition] = kgo.EpochOffset{
			Epoch:  checkpoint.Epoch,
			Offset: checkpoint.Offset + 1,
		}
	}

	// This currently does not have a timeout set.
	commitErrCh := make(chan error, 1)
	s.kafka.CommitOffsets(ctx, map[string]map[int32]kgo.EpochOffset{
		s.topic: epochOffsets,
	}, func(_ *kgo.Client, _ *kmsg.OffsetCommitRequest, _ *kmsg.OffsetCommitResponse, err error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			commitErrCh <- ctxErr
		} else {
			// kgo returns nil error even when the response signals an issue.
			// The error is logged internally by kgo, though, so we are not missing that.
			commitErrCh <- err
		}
	})
	return <-commitErrCh
}

func headerValue(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
