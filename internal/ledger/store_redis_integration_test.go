//go:build integration

package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"roster/internal/ledger"
	"roster/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ledger.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = ledger.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRecordAndRecent() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, ledger.Entry{
		Kind:     ledger.KindOrphanedProfile,
		Role:     "teacher",
		EntityID: "usr_1",
		Detail:   "identity account deleted but profile row remains",
	}))
	s.Require().NoError(s.store.Record(ctx, ledger.Entry{
		Kind:     ledger.KindPartialUpdate,
		Role:     "student",
		EntityID: "usr_2",
	}))

	entries, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("usr_2", entries[0].EntityID)
	s.Equal(ledger.KindPartialUpdate, entries[0].Kind)
	s.Equal("usr_1", entries[1].EntityID)
	s.False(entries[0].At.IsZero())
}

func (s *RedisStoreSuite) TestRecentSkipsUnreadableEntries() {
	ctx := context.Background()

	s.Require().NoError(s.store.Record(ctx, ledger.Entry{Kind: ledger.KindOrphanedAccount, EntityID: "usr_1"}))
	s.Require().NoError(s.redis.Client.LPush(ctx, "ledger:inconsistencies", "not json").Err())

	entries, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("usr_1", entries[0].EntityID)
}

func (s *RedisStoreSuite) TestLimit() {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Record(ctx, ledger.Entry{Kind: ledger.KindOrphanedProfile}))
	}

	entries, err := s.store.Recent(ctx, 3)
	s.Require().NoError(err)
	s.Len(entries, 3)
}
