package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tchap/anonbattle/internal/logging"
)

type LoggingSuite struct {
	suite.Suite
}

func (s *LoggingSuite) TestFileReceivesEntries() {
	file := filepath.Join(s.T().TempDir(), "logs", "anonbattle.log")

	logger, err := logging.New(zapcore.InfoLevel, file)
	s.Require().NoError(err)
	logger.Debug("Filtered out.")
	logger.Info("Battle anonymized.", zap.Uint64("battle_number", 7))
	_ = logger.Sync()

	content, err := os.ReadFile(file)
	s.Require().NoError(err)
	s.Contains(string(content), `"msg":"Battle anonymized."`)
	s.Contains(string(content), `"battle_number":7`)
	s.NotContains(string(content), "Filtered out.")
}

func (s *LoggingSuite) TestConsoleOnly() {
	logger, err := logging.New(zapcore.WarnLevel, "")
	s.Require().NoError(err)
	s.False(logger.Core().Enabled(zapcore.InfoLevel))
	s.True(logger.Core().Enabled(zapcore.WarnLevel))
}

func TestLoggingSuite(t *testing.T) {
	suite.Run(t, new(LoggingSuite))
}
