package app_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/app"
	"github.com/tchap/anonbattle/internal/pipeline"
)

type DirectorySourceSuite struct {
	suite.Suite
	root string
}

func (s *DirectorySourceSuite) SetupTest() {
	s.root = s.T().TempDir()
	for _, name := range []string{
		"gen8ou/2020-11-21/battle-gen8ou-2.log.json",
		"gen8ou/2020-11-21/battle-gen8ou-1.log.json",
		"gen7ou/2020-11-21/battle-gen7ou-1.log.json",
		"gen8ouuu/battle-gen8ouuu-1.log.json",
		"misc/battle-gen8ou-3.log.json",
		"misc/readme.txt",
	} {
		s.WriteFile(name, name)
	}
}

func (s *DirectorySourceSuite) WriteFile(name, content string) {
	path := filepath.Join(s.root, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
}

func (s *DirectorySourceSuite) Drain(source *app.DirectorySource) []*pipeline.Message {
	var all []*pipeline.Message
	for {
		msgs, err := source.Poll(context.Background())
		if err == io.EOF {
			return all
		}
		s.Require().NoError(err)
		s.Require().LessOrEqual(len(msgs), 2)
		all = append(all, msgs...)
	}
}

func (s *DirectorySourceSuite) TestFormatFiltering() {
	source, err := app.NewDirectorySource(zap.NewNop(), []string{s.root}, "gen8ou", 2)
	s.Require().NoError(err)

	var values []string
	for i, m := range s.Drain(source) {
		s.Equal("gen8ou", m.Format)
		s.Equal(int64(i), m.Offset)
		s.Equal(string(m.Value), m.Origin[len(s.root)+1:])
		values = append(values, string(m.Value))
	}
	s.Equal([]string{
		"gen8ou/2020-11-21/battle-gen8ou-1.log.json",
		"gen8ou/2020-11-21/battle-gen8ou-2.log.json",
		"misc/battle-gen8ou-3.log.json",
	}, values)

	s.NoError(source.Commit(context.Background(), map[int32]pipeline.Checkpoint{0: {Offset: 2}}))
}

func (s *DirectorySourceSuite) TestMultipleInputs() {
	source, err := app.NewDirectorySource(zap.NewNop(), []string{
		filepath.Join(s.root, "misc"),
		filepath.Join(s.root, "gen7ou"),
	}, "gen7ou", 0)
	s.Require().NoError(err)

	msgs := s.Drain(source)
	s.Require().Len(msgs, 1)
	s.Equal("gen7ou/2020-11-21/battle-gen7ou-1.log.json", string(msgs[0].Value))
}

func (s *DirectorySourceSuite) TestMissingInput() {
	_, err := app.NewDirectorySource(zap.NewNop(), []string{filepath.Join(s.root, "nope")}, "gen8ou", 1)
	s.Error(err)
}

func (s *DirectorySourceSuite) TestFailingInputSkipped() {
	source, err := app.NewDirectorySource(zap.NewNop(), []string{
		filepath.Join(s.root, "nope"),
		filepath.Join(s.root, "gen7ou"),
	}, "gen7ou", 2)
	s.Require().NoError(err)

	msgs := s.Drain(source)
	s.Require().Len(msgs, 1)
	s.Equal("gen7ou/2020-11-21/battle-gen7ou-1.log.json", string(msgs[0].Value))
	s.Require().Len(source.Skipped(), 1)
	s.ErrorContains(source.Skipped()[0], "nope")
}

func (s *DirectorySourceSuite) TestUnreadableFileSkipped() {
	source, err := app.NewDirectorySource(zap.NewNop(), []string{s.root}, "gen8ou", 2)
	s.Require().NoError(err)
	s.Require().NoError(os.Remove(filepath.Join(s.root, "gen8ou/2020-11-21/battle-gen8ou-2.log.json")))

	var values []string
	for _, m := range s.Drain(source) {
		values = append(values, string(m.Value))
	}
	s.Equal([]string{
		"gen8ou/2020-11-21/battle-gen8ou-1.log.json",
		"misc/battle-gen8ou-3.log.json",
	}, values)
	s.Require().Len(source.Skipped(), 1)
	s.ErrorContains(source.Skipped()[0], "battle-gen8ou-2.log.json")
}

func TestDirectorySourceSuite(t *testing.T) {
	suite.Run(t, new(DirectorySourceSuite))
}
