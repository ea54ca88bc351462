package journal

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zygl/pkg/protocol"
)

// JournalTestSuite runs against an on-disk database in a temp dir.
type JournalTestSuite struct {
	suite.Suite
	tempDir string
	dbPath  string
	journal *Journal
	ctx     context.Context
	base    time.Time
}

func (s *JournalTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "journal-test-*")
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *JournalTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *JournalTestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.tempDir, "journal.db")
	var err error
	s.journal, err = NewJournal(s.dbPath)
	s.Require().NoError(err)
}

func (s *JournalTestSuite) TearDownTest() {
	if s.journal != nil {
		s.journal.Close()
	}
	os.Remove(s.dbPath)
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")
}

func (s *JournalTestSuite) record(id uint64, typ protocol.PacketType, result protocol.CommandResult, at time.Time) {
	s.Require().NoError(s.journal.Record(s.ctx, Entry{
		CommandID: id,
		Type:      typ,
		Target:    "lbl-1",
		Operator:  "console-1",
		Result:    result,
		Message:   result.String(),
		At:        at,
	}))
}

func (s *JournalTestSuite) TestNewJournalInvalidPath() {
	_, err := NewJournal("/nonexistent/path/to/journal.db")
	s.ErrorIs(err, ErrDatabaseError)
}

func (s *JournalTestSuite) TestRecordAndRecent() {
	s.record(1, protocol.PacketDeployStack, protocol.ResultSuccess, s.base)
	s.record(2, protocol.PacketUndeployStack, protocol.ResultFailed, s.base.Add(time.Second))
	s.record(3, protocol.PacketAcknowledgeAlert, protocol.ResultNotFound, s.base.Add(2*time.Second))

	entries, err := s.journal.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(uint64(3), entries[0].CommandID)
	s.Equal(protocol.PacketAcknowledgeAlert, entries[0].Type)
	s.Equal(protocol.ResultNotFound, entries[0].Result)
	s.Equal("console-1", entries[0].Operator)
	s.True(entries[0].At.Equal(s.base.Add(2 * time.Second)))
	s.Equal(uint64(2), entries[1].CommandID)

	n, err := s.journal.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}

func (s *JournalTestSuite) TestRecordStampsZeroTime() {
	s.Require().NoError(s.journal.Record(s.ctx, Entry{CommandID: 7, Type: protocol.PacketDeployStack}))
	entries, err := s.journal.ByCommandID(s.ctx, 7)
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), entries[0].At, time.Minute)
}

func (s *JournalTestSuite) TestByCommandID() {
	s.record(42, protocol.PacketDeployStack, protocol.ResultTimeout, s.base)
	s.record(42, protocol.PacketDeployStack, protocol.ResultSuccess, s.base.Add(time.Second))
	s.record(43, protocol.PacketDeployStack, protocol.ResultSuccess, s.base)

	entries, err := s.journal.ByCommandID(s.ctx, 42)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(protocol.ResultTimeout, entries[0].Result)
	s.Equal(protocol.ResultSuccess, entries[1].Result)

	_, err = s.journal.ByCommandID(s.ctx, 99)
	s.ErrorIs(err, ErrEntryNotFound)
}

func (s *JournalTestSuite) TestLargeCommandIDRoundTrips() {
	s.record(math.MaxUint64, protocol.PacketDeployStack, protocol.ResultSuccess, s.base)

	entries, err := s.journal.ByCommandID(s.ctx, math.MaxUint64)
	s.Require().NoError(err)
	s.Equal(uint64(math.MaxUint64), entries[0].CommandID)
}

func (s *JournalTestSuite) TestPrune() {
	s.record(1, protocol.PacketDeployStack, protocol.ResultSuccess, s.base.Add(-48*time.Hour))
	s.record(2, protocol.PacketDeployStack, protocol.ResultSuccess, s.base)

	n, err := s.journal.Prune(s.ctx, s.base.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	count, err := s.journal.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *JournalTestSuite) TestRecentOnEmptyJournal() {
	entries, err := s.journal.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.NotNil(entries)
	s.Empty(entries)
}

func (s *JournalTestSuite) TestInMemoryJournal() {
	mem, err := NewJournal("")
	s.Require().NoError(err)
	defer mem.Close()

	s.Require().NoError(mem.Record(s.ctx, Entry{CommandID: 5, Type: protocol.PacketUndeployStack}))
	n, err := mem.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func TestJournalSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}
