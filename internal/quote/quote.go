// Package quote 提供对话核心使用的报价能力：以中间价为基础，
// 比较传统银行与批发通道的汇率、总成本与节省金额。
package quote

import (
	"math"

	xerrors "SettleX-Atlas/internal/errors"
)

// Direction 是资金方向。
type Direction string

const (
	// Outflow 表示进口付汇，需要买入外币。
	Outflow Direction = "OUTFLOW"
	// Inflow 表示出口收汇，需要卖出外币。
	Inflow Direction = "INFLOW"
)

const (
	CodeNotReady            xerrors.Code = "QUOTE_NOT_READY"
	CodeUnsupportedCurrency xerrors.Code = "QUOTE_UNSUPPORTED_CURRENCY"
)

func init() {
	xerrors.Register(CodeNotReady, xerrors.Attributes{
		Message:    "rates are not loaded yet",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		HTTPStatus: 503,
	})
	xerrors.Register(CodeUnsupportedCurrency, xerrors.Attributes{
		Message:    "currency is not supported",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: 400,
	})
}

var (
	// ErrNotReady 表示汇率尚未加载。
	ErrNotReady = xerrors.New(CodeNotReady, "rates are not loaded yet")
	// ErrUnsupportedCurrency 表示没有该货币的中间价。
	ErrUnsupportedCurrency = xerrors.New(CodeUnsupportedCurrency, "currency is not supported")
)

// Quote 是一次报价的完整结果，金额单位均为 INR。
type Quote struct {
	Currency       string    `json:"currency"`
	Amount         float64   `json:"amount"`
	Direction      Direction `json:"direction"`
	MidRate        float64   `json:"mid_rate"`
	BankRate       float64   `json:"bank_rate"`
	WholesaleRate  float64   `json:"wholesale_rate"`
	BankTotal      float64   `json:"bank_total"`
	WholesaleTotal float64   `json:"wholesale_total"`
	Savings        float64   `json:"savings"`
}

// UnitSavingsPercent 返回每单位外币的价差占中间价的百分比。
func (q *Quote) UnitSavingsPercent() float64 {
	if q == nil || q.MidRate == 0 {
		return 0
	}
	return math.Abs(q.BankRate-q.WholesaleRate) / q.MidRate * 100
}

// Provider 是对话核心依赖的报价协作方。
type Provider interface {
	// Ready 为 false 时所有报价调用都会返回 ErrNotReady。
	Ready() bool
	Quote(amount float64, currency string, direction Direction) (*Quote, error)
	FormatCurrency(amount float64) string
	Supported() []string
}

// Pricing 描述两条通道的点差与固定费用。
type Pricing struct {
	BankSpread      float64 `yaml:"bank_spread" json:"bank_spread"`
	BankFee         float64 `yaml:"bank_fee" json:"bank_fee"`
	WholesaleSpread float64 `yaml:"wholesale_spread" json:"wholesale_spread"`
	WholesaleFee    float64 `yaml:"wholesale_fee" json:"wholesale_fee"`
}

// DefaultPricing: 银行 2.5% 点差加 ₹2,500 电汇费，批发通道 0.2% 点差且无费用。
var DefaultPricing = Pricing{
	BankSpread:      0.025,
	BankFee:         2500,
	WholesaleSpread: 0.002,
	WholesaleFee:    0,
}

// FallbackRates 是无法获取实时汇率时使用的离线中间价。
func FallbackRates() map[string]float64 {
	return map[string]float64{
		"USD": 83.50,
		"SGD": 62.40,
		"GBP": 106.20,
		"EUR": 90.50,
		"VND": 0.0034,
	}
}

// Compute 按给定中间价与定价计算报价。
func Compute(p Pricing, mid, amount float64, currency string, direction Direction) *Quote {
	q := &Quote{
		Currency:  currency,
		Amount:    amount,
		Direction: direction,
		MidRate:   mid,
	}
	if direction == Inflow {
		q.BankRate = mid * (1 - p.BankSpread)
		q.WholesaleRate = mid * (1 - p.WholesaleSpread)
		q.BankTotal = amount*q.BankRate - p.BankFee
		q.WholesaleTotal = amount*q.WholesaleRate - p.WholesaleFee
	} else {
		q.Direction = Outflow
		q.BankRate = mid * (1 + p.BankSpread)
		q.WholesaleRate = mid * (1 + p.WholesaleSpread)
		q.BankTotal = amount*q.BankRate + p.BankFee
		q.WholesaleTotal = amount*q.WholesaleRate + p.WholesaleFee
	}
	q.Savings = math.Abs(q.BankTotal - q.WholesaleTotal)
	return q
}
