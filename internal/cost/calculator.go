// Package cost attributes language-model spend to complaints.
package cost

import (
	"sync"
)

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Rates maps model IDs to their pricing.
type Rates map[string]ModelRate

// Usage is the token accounting of one model call.
type Usage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_tokens"`
	CacheReadTokens     int64 `json:"cache_read_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// Calculator prices model calls and keeps a running total. It is safe for
// concurrent use.
type Calculator struct {
	rates Rates

	mu    sync.Mutex
	usage Usage
	total float64
	calls int
}

// NewCalculator creates a Calculator. Models missing from rates cost zero.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude returns the USD cost of one call without recording it.
func (c *Calculator) Claude(model string, u Usage) float64 {
	rate, ok := c.rates[model]
	if !ok {
		return 0
	}

	perTok := func(n int64, price float64) float64 {
		return float64(n) / 1e6 * price
	}

	return perTok(u.InputTokens, rate.Input) +
		perTok(u.OutputTokens, rate.Output) +
		perTok(u.CacheCreationTokens, rate.Input*rate.CacheWriteMul) +
		perTok(u.CacheReadTokens, rate.Input*rate.CacheReadMul)
}

// Record prices a call and adds it to the running totals.
func (c *Calculator) Record(model string, u Usage) float64 {
	usd := c.Claude(model, u)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.Add(u)
	c.total += usd
	c.calls++
	return usd
}

// Summary is a snapshot of recorded spend.
type Summary struct {
	Calls   int     `json:"calls"`
	Usage   Usage   `json:"usage"`
	CostUSD float64 `json:"cost_usd"`
}

// Summary returns the totals recorded so far.
func (c *Calculator) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summary{Calls: c.calls, Usage: c.usage, CostUSD: c.total}
}

// DefaultRates returns list prices for the models the classifier is
// normally pointed at.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001": {
			Input: 1.00, Output: 5.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-3-5-haiku-20241022": {
			Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
		"claude-sonnet-4-5-20250929": {
			Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1,
		},
	}
}

// Merge returns DefaultRates overlaid with overrides.
func Merge(overrides Rates) Rates {
	rates := DefaultRates()
	for model, r := range overrides {
		rates[model] = r
	}
	return rates
}
