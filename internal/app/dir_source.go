package app

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/pipeline"
)

const defaultDirectoryBatchSize = 100

// DirectorySource reads battle logs of one format from directory trees.
// Subdirectories named gen* other than the format are skipped, and only files
// whose path contains the format are read. Files are read in lexical order.
// Inputs that cannot be walked and files that cannot be read are logged and
// skipped, the run only fails when none of the inputs can be walked.
type DirectorySource struct {
	logger    *zap.Logger
	format    string
	batchSize int

	paths []string
	next  int

	skipped    error
	summarized bool
}

func NewDirectorySource(logger *zap.Logger, inputs []string, format string, batchSize int) (*DirectorySource, error) {
	if batchSize <= 0 {
		batchSize = defaultDirectoryBatchSize
	}
	s := &DirectorySource{
		logger:    logger,
		format:    format,
		batchSize: batchSize,
	}

	var walkErr error
	for _, input := range inputs {
		var found []string
		err := filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != input && strings.HasPrefix(d.Name(), "gen") && d.Name() != format {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.Contains(path, format) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			err = errors.Wrapf(err, "failed to walk %s", input)
			logger.Warn("Skipping battle log input.", zap.String("input", input), zap.Error(err))
			walkErr = multierr.Append(walkErr, err)
			continue
		}
		s.paths = append(s.paths, found...)
	}
	if walkErr != nil && len(multierr.Errors(walkErr)) == len(inputs) {
		return nil, walkErr
	}
	s.skipped = walkErr

	logger.Info(
		"Battle logs collected.",
		zap.Strings("inputs", inputs),
		zap.String("format", format),
		zap.Int("count", len(s.paths)),
	)
	return s, nil
}

func (s *DirectorySource) Poll(ctx context.Context) ([]*pipeline.Message, error) {
	if s.next >= len(s.paths) {
		if s.skipped != nil && !s.summarized {
			s.summarized = true
			s.logger.Warn(
				"Some battle logs were skipped.",
				zap.Int("count", len(multierr.Errors(s.skipped))),
				zap.Error(s.skipped),
			)
		}
		return nil, io.EOF
	}

	end := min(s.next+s.batchSize, len(s.paths))
	msgs := make([]*pipeline.Message, 0, end-s.next)
	for i := s.next; i < end; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := os.ReadFile(s.paths[i])
		if err != nil {
			err = errors.Wrapf(err, "failed to read %s", s.paths[i])
			s.logger.Warn("Skipping battle log.", zap.Error(err))
			s.skipped = multierr.Append(s.skipped, err)
			continue
		}
		msgs = append(msgs, &pipeline.Message{
			Origin: s.paths[i],
			Format: s.format,
			Offset: int64(i),
			Value:  value,
		})
	}
	s.next = end
	return msgs, nil
}

// Skipped returns the inputs and files that could not be read so far.
func (s *DirectorySource) Skipped() []error {
	return multierr.Errors(s.skipped)
}

// Commit only reports progress, files are never consumed twice within a run.
func (s *DirectorySource) Commit(_ context.Context, offsets map[int32]pipeline.Checkpoint) error {
	if checkpoint, ok := offsets[0]; ok {
		s.logger.Debug(
			"Battle logs processed.",
			zap.Int64("done", checkpoint.Offset+1),
			zap.Int("total", len(s.paths)),
		)
	}
	return nil
}
