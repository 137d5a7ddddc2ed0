package app

import (
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/battlelog"
	"github.com/tchap/anonbattle/internal/pipeline"
)

const unknownFormat = "unknown"

type Battle struct {
	Origin    string
	Format    string
	Partition int32
	Offset    int64

	// Raw is dropped as soon as the battle is anonymized.
	Raw []byte

	Number     uint64
	Anonymized string
}

type MessageDecoder struct {
	logger *zap.Logger
}

func NewMessageDecoder(logger *zap.Logger) *MessageDecoder {
	return &MessageDecoder{logger: logger}
}

func (d *MessageDecoder) DecodeMessage(m *pipeline.Message) (*Battle, error) {
	if len(m.Value) == 0 {
		d.logger.Warn("Empty battle log message, skipping.", zap.Object("message", m))
		return nil, pipeline.ErrSkipRecord
	}

	// The format ends up in file names and headers, keep it to id characters.
	format := battlelog.ToID(m.Format)
	if format == "" {
		format = battlelog.ToID(gjson.GetBytes(m.Value, "format").String())
	}
	if format == "" {
		format = unknownFormat
	}

	return &Battle{
		Origin:    m.Origin,
		Format:    format,
		Partition: m.Partition,
		Offset:    m.Offset,
		Raw:       m.Value,
	}, nil
}
