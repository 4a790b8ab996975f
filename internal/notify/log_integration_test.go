//go:build integration

package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certregistry/internal/notify"
	platformredis "certregistry/internal/platform/redis"
	"certregistry/pkg/testutil/containers"
)

type RedisLogSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	log   *notify.RedisLog
	ctx   context.Context
}

func TestRedisLogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLogSuite))
}

func (s *RedisLogSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.log = notify.NewRedisLog(&platformredis.Client{Client: s.redis.Client})
}

func (s *RedisLogSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLogSuite) TestMarkOnceIsExactlyOnce() {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	first, err := s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.True(first)

	second, err := s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.False(second)
}

func (s *RedisLogSuite) TestMarkersAreIndependentPerCategory() {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	for _, cat := range []notify.Category{
		notify.CategoryExpiryWarning,
		notify.CategoryFirstInspection,
		notify.CategorySecondInspection,
		notify.CategoryStatusChange,
	} {
		ok, err := s.log.MarkOnce(s.ctx, 42, cat, day)
		s.Require().NoError(err)
		s.True(ok, "category %s should get its own marker", cat)
	}
}

func (s *RedisLogSuite) TestMarkersAreIndependentPerDay() {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	ok, err := s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisLogSuite) TestMarkersAreIndependentPerCertificate() {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	ok, err := s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.log.MarkOnce(s.ctx, 43, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisLogSuite) TestMarkerCarriesTTL() {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	ok, err := s.log.MarkOnce(s.ctx, 42, notify.CategoryExpiryWarning, day)
	s.Require().NoError(err)
	s.True(ok)

	keys, err := s.redis.Client.Keys(s.ctx, "notify:*").Result()
	s.Require().NoError(err)
	s.Require().Len(keys, 1)

	ttl, err := s.redis.Client.TTL(s.ctx, keys[0]).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, 48*time.Hour)
}
