package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go_5_course_market/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss はキャッシュにエントリが無いことを示します
var ErrCacheMiss = errors.New("analytics_cache: cache miss")

// AnalyticsCache はダッシュボード集計結果の読み取りキャッシュです。
// キャッシュ障害は集計の再計算で吸収するため、呼び出し元はエラーを
// 致命的に扱ってはいけません。
type AnalyticsCache interface {
	GetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID) (*model.InstructorAnalyticsResponse, error)
	SetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID, resp *model.InstructorAnalyticsResponse) error
	GetCourseAnalytics(ctx context.Context, courseID uuid.UUID) (*model.CourseAnalyticsResponse, error)
	SetCourseAnalytics(ctx context.Context, courseID uuid.UUID, resp *model.CourseAnalyticsResponse) error
}

// --- NoopAnalyticsCache ---
// Redis無効時の実装。常にミスを返し、書き込みは捨てる。
type NoopAnalyticsCache struct{}

func (NoopAnalyticsCache) GetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID) (*model.InstructorAnalyticsResponse, error) {
	return nil, ErrCacheMiss
}

func (NoopAnalyticsCache) SetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID, resp *model.InstructorAnalyticsResponse) error {
	return nil
}

func (NoopAnalyticsCache) GetCourseAnalytics(ctx context.Context, courseID uuid.UUID) (*model.CourseAnalyticsResponse, error) {
	return nil, ErrCacheMiss
}

func (NoopAnalyticsCache) SetCourseAnalytics(ctx context.Context, courseID uuid.UUID, resp *model.CourseAnalyticsResponse) error {
	return nil
}

// --- RedisAnalyticsCache ---
type RedisAnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAnalyticsCache(client *redis.Client, ttl time.Duration) *RedisAnalyticsCache {
	return &RedisAnalyticsCache{client: client, ttl: ttl}
}

const (
	instructorAnalyticsKeyPrefix = "analytics:instructor:"
	courseAnalyticsKeyPrefix     = "analytics:course:"
)

func (c *RedisAnalyticsCache) GetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID) (*model.InstructorAnalyticsResponse, error) {
	var resp model.InstructorAnalyticsResponse
	if err := c.get(ctx, instructorAnalyticsKeyPrefix+instructorID.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RedisAnalyticsCache) SetInstructorAnalytics(ctx context.Context, instructorID uuid.UUID, resp *model.InstructorAnalyticsResponse) error {
	return c.set(ctx, instructorAnalyticsKeyPrefix+instructorID.String(), resp)
}

func (c *RedisAnalyticsCache) GetCourseAnalytics(ctx context.Context, courseID uuid.UUID) (*model.CourseAnalyticsResponse, error) {
	var resp model.CourseAnalyticsResponse
	if err := c.get(ctx, courseAnalyticsKeyPrefix+courseID.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RedisAnalyticsCache) SetCourseAnalytics(ctx context.Context, courseID uuid.UUID, resp *model.CourseAnalyticsResponse) error {
	return c.set(ctx, courseAnalyticsKeyPrefix+courseID.String(), resp)
}

func (c *RedisAnalyticsCache) get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dst)
}

func (c *RedisAnalyticsCache) set(ctx context.Context, key string, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
