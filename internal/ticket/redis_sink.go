package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	xerrors "SettleX-Atlas/internal/errors"
)

// RedisConfig 描述 Redis 工单队列的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Queue    string
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisSink 把工单以 JSON 形式 LPUSH 到 Redis list，由运营侧消费。
type RedisSink struct {
	client listPusher
	closer func() error
	queue  string
}

// NewRedisSink 创建 Redis 投递目标。
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRedisSink(client, client.Close, cfg.Queue), nil
}

func newRedisSink(client listPusher, closer func() error, queue string) *RedisSink {
	if queue == "" {
		queue = "atlas:tickets"
	}
	return &RedisSink{client: client, closer: closer, queue: queue}
}

// Submit 投递工单。
func (s *RedisSink) Submit(ctx context.Context, t Ticket) error {
	payload, err := t.Encode()
	if err != nil {
		return xerrors.Wrap(CodeSubmitFailed, err, "序列化工单失败")
	}
	if err := s.client.LPush(ctx, s.queue, payload).Err(); err != nil {
		return xerrors.Wrap(CodeSubmitFailed, err, "Redis 投递工单失败",
			xerrors.WithMetadata("queue", s.queue))
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisSink) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

var _ Sink = (*RedisSink)(nil)
