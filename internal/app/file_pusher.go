package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BattleFileName is the output name of an anonymized battle,
// e.g. battle-gen8ou-42.log.json.
func BattleFileName(format string, number uint64) string {
	return fmt.Sprintf("battle-%s-%d.log.json", format, number)
}

type DirectoryPusher struct {
	logger *zap.Logger
	dir    string
}

func NewDirectoryPusher(logger *zap.Logger, dir string) (*DirectoryPusher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}
	return &DirectoryPusher{
		logger: logger,
		dir:    dir,
	}, nil
}

func (pusher *DirectoryPusher) Push(ctx context.Context, batch *Batch, windowSize int) error {
	var err error
	for _, b := range batch.Battles {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		path := filepath.Join(pusher.dir, BattleFileName(b.Format, b.Number))
		err = multierr.Append(err, errors.Wrapf(os.WriteFile(path, []byte(b.Anonymized), 0o644), "failed to write %s", path))
	}
	if err != nil {
		pusher.logger.Error(
			"Failed to write anonymized battles.",
			zap.String("output_dir", pusher.dir),
			zap.Int("failed", len(multierr.Errors(err))),
			zap.Error(err),
		)
		return err
	}

	pusher.logger.Info(
		"Anonymized battles written.",
		zap.String("output_dir", pusher.dir),
		zap.Int("window_size", windowSize),
	)
	return nil
}
