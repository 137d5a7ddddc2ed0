package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/tchap/anonbattle/internal/app"
	"github.com/tchap/anonbattle/internal/battlelog"
)

type DirectoryRunSuite struct {
	suite.Suite
	input  string
	output string
}

func (s *DirectoryRunSuite) SetupTest() {
	s.input = s.T().TempDir()
	s.output = filepath.Join(s.T().TempDir(), "anonymized")

	s.WriteInput("gen8ou/battle-gen8ou-100.log.json", battleLog("Annika", "Zarel"))
	s.WriteInput("gen8ou/battle-gen8ou-101.log.json", battleLog("Zarel", "Kris"))
	s.WriteInput("gen8ou/battle-gen8ou-102.log.json", []byte(`{"p1":"broken"`))
	s.WriteInput("gen8ou/battle-gen8ou-103.log.json", battleLog("Kris", "Annika"))
	s.WriteInput("gen7ou/battle-gen7ou-100.log.json", battleLog("Cathy", "Lisa"))
}

func (s *DirectoryRunSuite) WriteInput(name string, content []byte) {
	path := filepath.Join(s.input, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, content, 0o644))
}

func (s *DirectoryRunSuite) RunDirectory(strict bool) (*app.App, error) {
	a, err := app.NewDirectoryRun(app.DirectoryOptions{
		Inputs:    []string{s.input},
		OutputDir: s.output,
		Format:    "gen8ou",
		Strict:    strict,
		BatchSize: 2,
	}, zap.NewNop())
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() { done <- a.Wait() }()
	select {
	case err := <-done:
		return a, err
	case <-time.After(10 * time.Second):
		a.Stop()
		s.FailNow("directory run did not finish")
		return nil, nil
	}
}

func (s *DirectoryRunSuite) ReadOutput(number int) gjson.Result {
	content, err := os.ReadFile(filepath.Join(s.output, app.BattleFileName("gen8ou", uint64(number))))
	s.Require().NoError(err)
	s.Require().True(gjson.ValidBytes(content))
	return gjson.ParseBytes(content)
}

func (s *DirectoryRunSuite) TestBattlesAnonymized() {
	a, err := s.RunDirectory(false)
	s.Require().NoError(err)
	s.Equal(battlelog.Stats{Processed: 3}, a.Stats())

	entries, err := os.ReadDir(s.output)
	s.Require().NoError(err)
	s.Len(entries, 3)

	// Players keep their pseudonyms across battles.
	for number, players := range map[int][2]string{
		1: {"1", "2"}, // Annika, Zarel
		2: {"2", "3"}, // Zarel, Kris
		3: {"3", "1"}, // Kris, Annika
	} {
		doc := s.ReadOutput(number)
		s.Equal(players[0], doc.Get("p1").String())
		s.Equal(players[1], doc.Get("p2").String())
		s.Equal(players[0], doc.Get("winner").String())
		s.Equal("Mon Nov 23 2020 20:XX", doc.Get("timestamp").String())
		s.Equal(gjson.Null, doc.Get("roomid").Type)
		for _, name := range []string{"Annika", "Zarel", "Kris", "annika", "zarel", "kris"} {
			s.NotContains(doc.Raw, name)
		}
	}
}

func (s *DirectoryRunSuite) TestStrictLeakStopsRun() {
	raw := battleLog("Annika", "Zarel")
	raw = append(raw[:len(raw)-1], []byte(`,"p2team":"Zarel's team"}`)...)
	s.WriteInput("gen8ou/battle-gen8ou-101.log.json", raw)

	_, err := s.RunDirectory(true)
	s.ErrorIs(err, battlelog.ErrLeakDetected)
}

func (s *DirectoryRunSuite) TestLeakReportedWhenNotStrict() {
	raw := battleLog("Annika", "Zarel")
	raw = append(raw[:len(raw)-1], []byte(`,"p2team":"Zarel's team"}`)...)
	s.WriteInput("gen8ou/battle-gen8ou-101.log.json", raw)

	a, err := s.RunDirectory(false)
	s.Require().NoError(err)
	s.Equal(battlelog.Stats{Processed: 3, Leaks: 1}, a.Stats())
	s.Contains(s.ReadOutput(2).Raw, "Zarel's team")
}

func TestDirectoryRunSuite(t *testing.T) {
	suite.Run(t, new(DirectoryRunSuite))
}
