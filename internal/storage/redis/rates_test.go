package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/quote"
)

type stubHash struct {
	data    map[string]string
	readErr error
	expired time.Duration
}

func (s *stubHash) HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd {
	cmd := goredis.NewMapStringStringCmd(ctx, "hgetall", key)
	if s.readErr != nil {
		cmd.SetErr(s.readErr)
		return cmd
	}
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	cmd.SetVal(out)
	return cmd
}

func (s *stubHash) HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx, "hset", key)
	if s.data == nil {
		s.data = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		s.data[values[i].(string)] = values[i+1].(string)
	}
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (s *stubHash) Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(ctx, "expire", key)
	s.expired = expiration
	cmd.SetVal(true)
	return cmd
}

func TestRateStoreSaveAndRates(t *testing.T) {
	hash := &stubHash{}
	store := newRateStore(hash, nil, "", time.Minute)

	if err := store.Save(context.Background(), map[string]float64{"usd": 83.5, "SGD": 62.4}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if hash.expired != time.Minute {
		t.Fatalf("expected ttl refresh, got %v", hash.expired)
	}

	rates, err := store.Rates(context.Background())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if rates["USD"] != 83.5 || rates["SGD"] != 62.4 {
		t.Fatalf("unexpected rates: %v", rates)
	}
}

func TestRateStoreRejectsInvalidInput(t *testing.T) {
	store := newRateStore(&stubHash{}, nil, "", 0)
	if err := store.Save(context.Background(), nil); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if err := store.Save(context.Background(), map[string]float64{"USD": 0}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for zero rate, got %v", err)
	}

	bad := newRateStore(&stubHash{data: map[string]string{"USD": "eighty"}}, nil, "", 0)
	if _, err := bad.Rates(context.Background()); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for malformed rate, got %v", err)
	}
}

func TestRateStoreUnavailable(t *testing.T) {
	empty := newRateStore(&stubHash{}, nil, "", 0)
	if _, err := empty.Rates(context.Background()); xerrors.CodeOf(err) != xerrors.CodeUnavailable {
		t.Fatalf("expected unavailable for empty hash, got %v", err)
	}

	failing := newRateStore(&stubHash{readErr: errors.New("connection refused")}, nil, "", 0)
	if _, err := failing.Rates(context.Background()); xerrors.CodeOf(err) != xerrors.CodeUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRateStoreFeedsQuoteTable(t *testing.T) {
	store := newRateStore(&stubHash{data: map[string]string{"USD": "84", "EUR": "91"}}, nil, "", 0)
	table := quote.NewTable()
	if err := table.Refresh(context.Background(), store); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !table.Ready() {
		t.Fatalf("table should be ready after refresh")
	}
	q, err := table.Quote(1000, "EUR", quote.Outflow)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.MidRate != 91 {
		t.Fatalf("unexpected mid rate: %v", q.MidRate)
	}
}
