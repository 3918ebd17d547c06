package pipeline

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Vini334/ReclamaAI/internal/cost"
	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/resilience"
	"github.com/Vini334/ReclamaAI/pkg/anthropic"
)

// ClassifyRequest is one classification call. Metadata is attached to the
// classifier's log lines and is never sent to the model.
type ClassifyRequest struct {
	System   string
	User     string
	Metadata map[string]string
}

// Classifier turns prompts into a raw analysis. A reply that cannot be
// decoded is reported with ErrMalformedReply.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (RawAnalysis, error)
}

// ClassifierConfig tunes the Anthropic-backed classifier.
type ClassifierConfig struct {
	Model             string
	MaxTokens         int64
	Temperature       float64
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
	Breaker           *resilience.CircuitBreaker
}

// AnthropicClassifier classifies complaints with a Claude model. Calls are
// rate limited, retried on transient failures, guarded by a circuit breaker
// and priced.
type AnthropicClassifier struct {
	client  anthropic.Client
	cfg     ClassifierConfig
	limiter *rate.Limiter
	costs   *cost.Calculator
	metrics *metrics.Metrics
}

// NewAnthropicClassifier creates a classifier. A non-positive
// RequestsPerSecond disables rate limiting; costs and m may be nil.
func NewAnthropicClassifier(client anthropic.Client, cfg ClassifierConfig, costs *cost.Calculator, m *metrics.Metrics) *AnthropicClassifier {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &AnthropicClassifier{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		costs:   costs,
		metrics: m,
	}
}

// Classify implements Classifier.
func (c *AnthropicClassifier) Classify(ctx context.Context, req ClassifyRequest) (RawAnalysis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return RawAnalysis{}, eris.Wrap(err, "classifier: rate limit")
	}

	fields := metadataFields(req.Metadata)
	retry := c.cfg.Retry
	retry.OnRetry = resilience.RetryLogger("analyze", req.Metadata["complaint_id"])
	guard := resilience.Guard{Retry: retry, Breaker: c.cfg.Breaker}

	temp := c.cfg.Temperature
	msg := anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      anthropic.CachedSystem(req.System),
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	}

	resp, err := resilience.Call(ctx, guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		r, err := c.client.CreateMessage(ctx, msg)
		if err != nil {
			if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		zap.L().Warn("classifier: create message failed", append(fields, zap.Error(err))...)
		return RawAnalysis{}, eris.Wrap(err, "classifier: create message")
	}

	c.recordUsage(fields, resp)
	return ParseRawAnalysis(resp.Text())
}

func (c *AnthropicClassifier) recordUsage(fields []zap.Field, resp *anthropic.MessageResponse) {
	model := resp.Model
	if model == "" {
		model = c.cfg.Model
	}
	usage := cost.Usage{
		InputTokens:         resp.Usage.InputTokens,
		OutputTokens:        resp.Usage.OutputTokens,
		CacheCreationTokens: resp.Usage.CacheCreationInputTokens,
		CacheReadTokens:     resp.Usage.CacheReadInputTokens,
	}

	var usd float64
	if c.costs != nil {
		usd = c.costs.Record(model, usage)
	}
	c.metrics.RecordLLMUsage(model, usage.InputTokens, usage.OutputTokens, usd)

	zap.L().Debug("classifier: usage", append(fields,
		zap.String("model", model),
		zap.Int64("input_tokens", usage.InputTokens),
		zap.Int64("output_tokens", usage.OutputTokens),
		zap.Int64("cache_read_tokens", usage.CacheReadTokens),
		zap.Float64("cost_usd", usd),
	)...)
}

// metadataFields turns request metadata into log fields, sorted by key.
func metadataFields(md map[string]string) []zap.Field {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+6)
	for _, k := range keys {
		fields = append(fields, zap.String(k, md[k]))
	}
	return fields
}
