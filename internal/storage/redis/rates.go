package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/quote"
)

const defaultRatesKey = "atlas:rates:mid"

// Config 描述汇率哈希所在的 Redis。
type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
	// TTL 大于 0 时 Save 会刷新哈希的过期时间，避免读取到过期行情。
	TTL time.Duration
}

type hashClient interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
}

// RateStore 以 Redis 哈希保存 "货币代码 -> 中间价"，实现 quote.Source。
type RateStore struct {
	client hashClient
	closer func() error
	key    string
	ttl    time.Duration
}

// NewRateStore 连接 Redis 并返回汇率存储。
func NewRateStore(ctx context.Context, cfg Config) (*RateStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return newRateStore(client, client.Close, cfg.Key, cfg.TTL), nil
}

func newRateStore(client hashClient, closer func() error, key string, ttl time.Duration) *RateStore {
	if key == "" {
		key = defaultRatesKey
	}
	return &RateStore{client: client, closer: closer, key: key, ttl: ttl}
}

// Rates 读取整张中间价表。空哈希视为数据源不可用。
func (s *RateStore) Rates(ctx context.Context) (map[string]float64, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeUnavailable, err, "读取汇率哈希失败",
			xerrors.WithMetadata("key", s.key))
	}
	if len(raw) == 0 {
		return nil, xerrors.New(xerrors.CodeUnavailable, "汇率哈希为空",
			xerrors.WithMetadata("key", s.key))
	}

	rates := make(map[string]float64, len(raw))
	for field, value := range raw {
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "汇率格式错误",
				xerrors.WithMetadata("currency", field))
		}
		rates[strings.ToUpper(field)] = rate
	}
	return rates, nil
}

// Save 写入中间价，已有字段被覆盖，未给出的字段保持不变。
func (s *RateStore) Save(ctx context.Context, rates map[string]float64) error {
	if len(rates) == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "汇率表不能为空")
	}
	values := make([]interface{}, 0, len(rates)*2)
	for code, rate := range rates {
		if rate <= 0 {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("%s 的汇率必须为正数", code))
		}
		values = append(values, strings.ToUpper(code), strconv.FormatFloat(rate, 'f', -1, 64))
	}
	if err := s.client.HSet(ctx, s.key, values...).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入汇率哈希失败",
			xerrors.WithMetadata("key", s.key))
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, s.key, s.ttl).Err(); err != nil {
			return xerrors.Wrap(xerrors.CodeStorageFailure, err, "设置汇率过期时间失败")
		}
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RateStore) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

var _ quote.Source = (*RateStore)(nil)
