package app_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/app"
	"github.com/tchap/anonbattle/internal/pipeline"
)

var _ pipeline.MessageDecoder[*app.Battle] = (*app.MessageDecoder)(nil)

type MessageDecoderSuite struct {
	suite.Suite
	decoder *app.MessageDecoder
}

func (s *MessageDecoderSuite) SetupTest() {
	s.decoder = app.NewMessageDecoder(zap.NewNop())
}

func (s *MessageDecoderSuite) TestMessageFormatPreferred() {
	b, err := s.decoder.DecodeMessage(&pipeline.Message{
		Origin:    "battle-logs",
		Format:    "gen7ou",
		Partition: 3,
		Offset:    42,
		Value:     []byte(`{"format":"[Gen 8] OU"}`),
	})
	s.Require().NoError(err)
	s.Equal(&app.Battle{
		Origin:    "battle-logs",
		Format:    "gen7ou",
		Partition: 3,
		Offset:    42,
		Raw:       []byte(`{"format":"[Gen 8] OU"}`),
	}, b)
}

func (s *MessageDecoderSuite) TestFormatFromRecord() {
	b, err := s.decoder.DecodeMessage(&pipeline.Message{Value: []byte(`{"format":"[Gen 8] OU"}`)})
	s.Require().NoError(err)
	s.Equal("gen8ou", b.Format)
}

func (s *MessageDecoderSuite) TestFormatSanitized() {
	b, err := s.decoder.DecodeMessage(&pipeline.Message{Format: "../Gen 8 OU", Value: []byte(`{}`)})
	s.Require().NoError(err)
	s.Equal("gen8ou", b.Format)
}

func (s *MessageDecoderSuite) TestUnknownFormat() {
	b, err := s.decoder.DecodeMessage(&pipeline.Message{Value: []byte(`not even json`)})
	s.Require().NoError(err)
	s.Equal("unknown", b.Format)
}

func (s *MessageDecoderSuite) TestEmptyMessageSkipped() {
	_, err := s.decoder.DecodeMessage(&pipeline.Message{Origin: "battle-logs"})
	s.ErrorIs(err, pipeline.ErrSkipRecord)
}

func TestMessageDecoderSuite(t *testing.T) {
	suite.Run(t, new(MessageDecoderSuite))
}
