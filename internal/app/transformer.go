package app

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/battlelog"
	"github.com/tchap/anonbattle/internal/pipeline"
)

// BattleAnonymizer runs battles through a shared battlelog.Anonymizer.
// Malformed battles are skipped, a strict-mode leak stops the pipeline.
type BattleAnonymizer struct {
	logger     *zap.Logger
	anonymizer *battlelog.Anonymizer
}

func NewBattleAnonymizer(logger *zap.Logger, anonymizer *battlelog.Anonymizer) *BattleAnonymizer {
	return &BattleAnonymizer{
		logger:     logger,
		anonymizer: anonymizer,
	}
}

func (t *BattleAnonymizer) TransformRecord(b *Battle) (*Battle, error) {
	out, n, err := t.anonymizer.Anonymize(b.Raw)
	if err != nil {
		if errors.Is(err, battlelog.ErrParse) || errors.Is(err, battlelog.ErrSchema) {
			t.logger.Warn(
				"Failed to anonymize battle log, skipping.",
				zap.String("origin", b.Origin),
				zap.Int64("offset", b.Offset),
				zap.Error(err),
			)
			return nil, pipeline.ErrSkipRecord
		}
		return nil, errors.Wrapf(err, "failed to anonymize %s", b.Origin)
	}

	b.Raw = nil
	b.Number = n
	b.Anonymized = out
	t.logger.Debug("Battle anonymized.", zap.String("origin", b.Origin), zap.Uint64("battle_number", n))
	return b, nil
}
