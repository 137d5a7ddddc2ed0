package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/tomb.v2"
)

var ErrSkipRecord = stderrors.New("skip record")

// Message is a raw record as delivered by a Source.
type Message struct {
	Origin      string
	Format      string
	Partition   int32
	Offset      int64
	LeaderEpoch int32
	Value       []byte
}

func (m *Message) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("origin", m.Origin)
	enc.AddString("format", m.Format)
	enc.AddInt32("partition", m.Partition)
	enc.AddInt64("offset", m.Offset)
	return nil
}

type Checkpoint struct {
	Epoch  int32
	Offset int64
}

// Source delivers messages to the pipeline. Poll returns io.EOF once a finite
// source is drained. Commit acknowledges everything up to the given offsets
// after it has been pushed.
type Source interface {
	Poll(ctx context.Context) ([]*Message, error)
	Commit(ctx context.Context, offsets map[int32]Checkpoint) error
}

type MessageDecoder[Record any] interface {
	DecodeMessage(*Message) (Record, error)
}

type RecordTransformer[Record any] interface {
	TransformRecord(Record) (Record, error)
}

type AggregationWindow[Record, State any] interface {
	AppendRecord(record Record) error
	Aggregate() State
}

type AggregationWindowConstructor[Record, State any] func() AggregationWindow[Record, State]

type Pusher[AggregationState any] interface {
	Push(ctx context.Context, state AggregationState, windowSize int) error
}

type pushContext[AggregationState any] struct {
	WindowState   AggregationState
	WindowSize    int
	CommitOffsets map[int32]Checkpoint
}

// Pipeline moves messages from a source through decoding, transformation and
// aggregation to a pusher. Records are decoded and transformed one at a time
// in a single goroutine, so transformers may keep unsynchronized state.
type Pipeline[MessageRecord, AggregationState any] struct {
	logger               *zap.Logger
	source               Source
	messageDecoder       MessageDecoder[MessageRecord]
	recordTransformer    RecordTransformer[MessageRecord]
	newAggregationWindow AggregationWindowConstructor[MessageRecord, AggregationState]
	aggregationPeriod    time.Duration
	maxWindowSize        int
	pusher               Pusher[AggregationState]

	consumerOutputCh chan *Message
	pusherInputCh    chan pushContext[AggregationState]

	t tomb.Tomb
}

// New starts the pipeline. A window is pushed every aggregationPeriod, when it
// reaches maxWindowSize records (0 disables the limit) and when the source is drained.
func New[MessageRecord, AggregationState any](
	logger *zap.Logger,
	source Source,
	messageDecoder MessageDecoder[MessageRecord],
	recordTransformer RecordTransformer[MessageRecord],
	newAggregationWindow AggregationWindowConstructor[MessageRecord, AggregationState],
	aggregationPeriod time.Duration,
	maxWindowSize int,
	pusher Pusher[AggregationState],
) *Pipeline[MessageRecord, AggregationState] {
	p := &Pipeline[MessageRecord, AggregationState]{
		logger:               logger,
		source:               source,
		messageDecoder:       messageDecoder,
		recordTransformer:    recordTransformer,
		newAggregationWindow: newAggregationWindow,
		aggregationPeriod:    aggregationPeriod,
		maxWindowSize:        maxWindowSize,
		pusher:               pusher,
		consumerOutputCh:     make(chan *Message, 1),
		pusherInputCh:        make(chan pushContext[AggregationState], 1),
	}
	p.t.Go(p.consumerLoop)
	p.t.Go(p.aggregatorLoop)
	p.t.Go(p.pusherLoop)
	return p
}

func (p *Pipeline[MessageRecord, AggregationState]) Stop() {
	p.t.Kill(nil)
}

// Wait blocks until the pipeline is stopped, fails or finishes a drained source.
func (p *Pipeline[MessageRecord, AggregationState]) Wait() error {
	return p.t.Wait()
}

func (p *Pipeline[MessageRecord, AggregationState]) consumerLoop() error {
	logger := p.logger.Named("consumer")
	logger.Info("Consumer starting...")
	defer logger.Info("Consumer terminated.")

	ctx := p.t.Context(nil)
	for {
		// Get another batch of messages.
		msgs, err := p.source.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				logger.Info("Source drained.")
				close(p.consumerOutputCh)
				return nil
			}
			logger.Error("Unrecoverable poll error encountered.", zap.Error(err))
			return err
		}

		for _, m := range msgs {
			select {
			case p.consumerOutputCh <- m:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *Pipeline[MessageRecord, AggregationState]) aggregatorLoop() error {
	logger := p.logger.Named("aggregator")
	logger.Info(
		"Aggregator starting...",
		zap.Duration("aggregation_period", p.aggregationPeriod),
		zap.Int("max_window_size", p.maxWindowSize),
	)
	defer logger.Info("Aggregator terminated.")

	ctx := p.t.Context(nil)
	ticker := time.NewTicker(p.aggregationPeriod)
	defer ticker.Stop()

	var (
		agg           AggregationWindow[MessageRecord, AggregationState]
		windowSize    int
		commitOffsets map[int32]Checkpoint
	)
	resetWindow := func() {
		agg = p.newAggregationWindow()
		windowSize = 0
		commitOffsets = make(map[int32]Checkpoint)
	}
	resetWindow()

	// Forward the window to the pusher. Returns false when terminating.
	flush := func() bool {
		select {
		case p.pusherInputCh <- pushContext[AggregationState]{
			WindowState:   agg.Aggregate(),
			WindowSize:    windowSize,
			CommitOffsets: commitOffsets,
		}:
			resetWindow()
			return true

		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case m, ok := <-p.consumerOutputCh:
			if !ok {
				// Source drained, push what is left and let the pusher finish.
				if windowSize != 0 && !flush() {
					return nil
				}
				close(p.pusherInputCh)
				return nil
			}

			// Decode the message.
			r, err := p.messageDecoder.DecodeMessage(m)
			if err != nil {
				if stderrors.Is(err, ErrSkipRecord) {
					continue
				}
				return err
			}

			// Transform, optionally.
			if p.recordTransformer != nil {
				r, err = p.recordTransformer.TransformRecord(r)
				if err != nil {
					if stderrors.Is(err, ErrSkipRecord) {
						continue
					}
					logger.Error("Unrecoverable transform error encountered.", zap.Object("message", m), zap.Error(err))
					return err
				}
			}

			// Add the record into the aggregation window.
			// Logging is expected to be handled by the aggregator.
			if err := agg.AppendRecord(r); err != nil {
				if stderrors.Is(err, ErrSkipRecord) {
					continue
				}
				return err
			}

			// Update offsets to be committed.
			commitOffsets[m.Partition] = Checkpoint{
				Epoch:  m.LeaderEpoch,
				Offset: m.Offset,
			}

			windowSize++
			if p.maxWindowSize > 0 && windowSize >= p.maxWindowSize && !flush() {
				return nil
			}

		case <-ticker.C:
			// Do nothing in case there are no records buffered.
			if windowSize == 0 {
				logger.Debug("Buffer empty, skipping push...")
				continue
			}
			if !flush() {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Pipeline[MessageRecord, AggregationState]) pusherLoop() error {
	logger := p.logger.Named("pusher")
	logger.Info("Pusher starting...")
	defer logger.Info("Pusher terminated.")

	ctx := p.t.Context(nil)
	for {
		select {
		case push, ok := <-p.pusherInputCh:
			if !ok {
				return nil
			}

			// Push. Set timeout to the aggregation period.
			pushCtx, cancelPush := context.WithTimeout(ctx, p.aggregationPeriod)
			err := p.pusher.Push(pushCtx, push.WindowState, push.WindowSize)
			cancelPush()
			if err != nil {
				return err
			}

			// Commit offsets. A failed commit only risks duplicate processing.
			logger.Debug("Offsets being committed...", zap.Reflect("offsets", push.CommitOffsets))
			if err := p.source.Commit(ctx, push.CommitOffsets); err != nil {
				logger.Error(
					"Failed to commit offsets.",
					zap.Error(err),
				)
				continue
			}

		case <-ctx.Done():
			return nil
		}
	}
}
