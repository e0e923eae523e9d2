package quote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
)

// vndPerUSD 用于在数据源缺少 VND 时按美元交叉换算。
const vndPerUSD = 24500

// Table 是进程内的报价实现，持有一份可整体替换的中间价表。
type Table struct {
	mu        sync.RWMutex
	rates     map[string]float64
	ready     bool
	updatedAt time.Time
	pricing   Pricing
	now       func() time.Time
}

// TableOption 定义 Table 的可选配置。
type TableOption func(*Table)

// WithPricing 覆盖默认定价。
func WithPricing(p Pricing) TableOption {
	return func(t *Table) {
		t.pricing = p
	}
}

// WithRates 以给定中间价初始化，Table 立即可用。
func WithRates(rates map[string]float64) TableOption {
	return func(t *Table) {
		_ = t.Update(rates)
	}
}

// NewTable 创建报价表。未提供汇率时 Ready 为 false。
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		rates:   map[string]float64{},
		pricing: DefaultPricing,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Update 原子地替换整张中间价表。非正数的汇率会被拒绝。
func (t *Table) Update(rates map[string]float64) error {
	next := make(map[string]float64, len(rates)+1)
	for code, rate := range rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if rate <= 0 {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("%s 的汇率必须为正数", code))
		}
		next[code] = rate
	}
	if len(next) == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "汇率表不能为空")
	}
	if _, ok := next["VND"]; !ok {
		if usd, ok := next["USD"]; ok {
			next["VND"] = usd / vndPerUSD
		}
	}

	t.mu.Lock()
	t.rates = next
	t.ready = true
	t.updatedAt = t.now()
	t.mu.Unlock()
	return nil
}

// Ready 实现 Provider。
func (t *Table) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}

// Quote 实现 Provider。
func (t *Table) Quote(amount float64, currency string, direction Direction) (*Quote, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))

	t.mu.RLock()
	ready := t.ready
	mid, ok := t.rates[code]
	pricing := t.pricing
	t.mu.RUnlock()

	if !ready {
		return nil, ErrNotReady
	}
	if !ok {
		return nil, xerrors.New(CodeUnsupportedCurrency, fmt.Sprintf("暂不支持 %s", code),
			xerrors.WithMetadata("currency", code))
	}
	return Compute(pricing, mid, amount, code, direction), nil
}

// FormatCurrency 实现 Provider。
func (t *Table) FormatCurrency(amount float64) string {
	return FormatINR(amount)
}

// Supported 返回按字母排序的可报价货币。
func (t *Table) Supported() []string {
	t.mu.RLock()
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	t.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// Snapshot 返回当前中间价表的副本与更新时间。
func (t *Table) Snapshot() (map[string]float64, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.rates))
	for code, rate := range t.rates {
		out[code] = rate
	}
	return out, t.updatedAt
}

// Source 是汇率数据源，例如 Redis 中的汇率哈希。
type Source interface {
	Rates(ctx context.Context) (map[string]float64, error)
}

// Refresh 从数据源拉取一次汇率。首次拉取失败时退回离线汇率，
// 并把原始错误返回给调用方记录。
func (t *Table) Refresh(ctx context.Context, src Source) error {
	rates, err := src.Rates(ctx)
	if err == nil {
		err = t.Update(rates)
	}
	if err == nil {
		return nil
	}
	if !t.Ready() {
		_ = t.Update(FallbackRates())
	}
	return xerrors.Wrap(xerrors.CodeUnavailable, err, "刷新汇率失败")
}

// Run 按固定间隔刷新汇率，直到上下文取消。onError 可为 nil。
func (t *Table) Run(ctx context.Context, src Source, interval time.Duration, onError func(error)) error {
	if interval <= 0 {
		interval = time.Minute
	}
	report := func(err error) {
		if err != nil && onError != nil {
			onError(err)
		}
	}
	report(t.Refresh(ctx, src))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report(t.Refresh(ctx, src))
		}
	}
}

var _ Provider = (*Table)(nil)
