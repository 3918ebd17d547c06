package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/collector"
	"github.com/Vini334/ReclamaAI/internal/config"
	"github.com/Vini334/ReclamaAI/internal/cost"
	"github.com/Vini334/ReclamaAI/internal/events"
	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/notify"
	"github.com/Vini334/ReclamaAI/internal/pipeline"
	"github.com/Vini334/ReclamaAI/internal/privacy"
	"github.com/Vini334/ReclamaAI/internal/registry"
	"github.com/Vini334/ReclamaAI/internal/resilience"
	"github.com/Vini334/ReclamaAI/internal/search"
	"github.com/Vini334/ReclamaAI/internal/store"
	"github.com/Vini334/ReclamaAI/internal/ticket"
	anthropicpkg "github.com/Vini334/ReclamaAI/pkg/anthropic"
)

// pipelineEnv holds the orchestrator and every collaborator the run, batch
// and serve commands need.
type pipelineEnv struct {
	Store        managedStore // nil when store.driver is none
	Orchestrator *pipeline.Orchestrator
	Collector    *collector.Collector
	Tickets      *ticket.Simulator
	Outbox       *notify.Simulator
	Costs        *cost.Calculator
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry

	kafka *events.KafkaPublisher
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.kafka != nil {
		if err := pe.kafka.Close(); err != nil {
			zap.L().Warn("close kafka publisher", zap.Error(err))
		}
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config, opens the store and builds the
// orchestrator. With dryRun the model is replaced by a scripted client whose
// empty replies send every complaint down the fallback analysis path.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, dryRun bool) (*pipelineEnv, error) {
	mode := config.ModePipeline
	if dryRun {
		mode = config.ModeOffline
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	var client anthropicpkg.Client
	if dryRun {
		zap.L().Warn("dry run: classification uses a scripted model client")
		client = anthropicpkg.NewScriptedClient()
	} else {
		client = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env, err := buildPipelineEnv(ctx, cfg, st, client)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}
	return env, nil
}

// buildPipelineEnv wires the pipeline over an already opened store, which
// may be nil.
func buildPipelineEnv(ctx context.Context, c *config.Config, st managedStore, client anthropicpkg.Client) (*pipelineEnv, error) {
	teams, err := registry.LoadTeams(c.Data.TeamsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load teams")
	}
	lexicon, err := registry.LoadLexicon(c.Data.KeywordsFile)
	if err != nil {
		return nil, eris.Wrap(err, "load keywords")
	}
	zap.L().Info("registries loaded",
		zap.Int("teams", len(teams)),
		zap.Int("critical_keywords", len(lexicon.CriticalKeywords)),
		zap.Int("high_keywords", len(lexicon.HighKeywords)),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.InitMetrics(reg)

	costs := cost.NewCalculator(cost.Merge(pricingOverrides(c.Pricing)))
	breaker := resilience.NewCircuitBreaker(resilience.NewCircuitBreakerConfig(
		"anthropic", c.Anthropic.BreakerThreshold, c.Anthropic.BreakerResetSecs,
	))
	classifier := pipeline.NewAnthropicClassifier(client, pipeline.ClassifierConfig{
		Model:             c.Anthropic.Model,
		MaxTokens:         c.Anthropic.MaxTokens,
		Temperature:       c.Anthropic.Temperature,
		RequestsPerSecond: c.Anthropic.RequestsPerSecond,
		Retry:             resilience.NewRetryConfig(c.Anthropic.RetryAttempts, c.Anthropic.InitialBackoffMs),
		Breaker:           breaker,
	}, costs, m)

	routeOpts := []pipeline.RouteOption{
		pipeline.WithFallbackMarkers(c.Routing.FallbackMarkers),
		pipeline.WithRouteMetrics(m),
	}
	if c.Routing.UseSearch {
		routeOpts = append(routeOpts, pipeline.WithSearch(initSearch(ctx, st, teams)))
	}

	tickets := ticket.NewSimulator(ticket.Config{
		ProjectKey:   c.Jira.ProjectKey,
		BaseURL:      c.Jira.BaseURL,
		StartCounter: c.Jira.StartCounter,
	})
	outbox := notify.NewSimulator(notify.Config{
		CompanyName: c.Email.CompanyName,
		From:        c.Email.From,
	})

	env := &pipelineEnv{
		Store:     st,
		Collector: collector.New(c.Data.MockPath),
		Tickets:   tickets,
		Outbox:    outbox,
		Costs:     costs,
		Metrics:   m,
		Registry:  reg,
	}

	deps := pipeline.Deps{
		Anonymize:   pipeline.NewAnonymizeStage(privacy.NewRedactor(), m),
		Analyze:     pipeline.NewAnalyzeStage(classifier, lexicon),
		Route:       pipeline.NewRouteStage(func() ([]model.Team, error) { return teams, nil }, routeOpts...),
		Communicate: pipeline.NewCommunicateStage(tickets, outbox),
		Loader:      env.Collector,
		Metrics:     m,
	}

	var sinks events.Fanout
	if st != nil {
		deps.Store = st
		if c.Pipeline.Persist {
			sinks = append(sinks, events.StoreSink{Store: st})
		}
	}
	if c.Kafka.Enabled() {
		env.kafka = events.NewKafkaPublisher(c.Kafka.Brokers, c.Kafka.AuditTopic)
		sinks = append(sinks, env.kafka)
		zap.L().Info("kafka audit stream enabled",
			zap.Strings("brokers", c.Kafka.Brokers),
			zap.String("topic", c.Kafka.AuditTopic),
		)
	}
	if len(sinks) > 0 {
		deps.Events = sinks
	}
	if !c.Pipeline.Persist {
		zap.L().Info("persistence disabled, workflow states are not saved")
		deps.Store = nil
	}

	orch, err := pipeline.New(deps)
	if err != nil {
		return nil, err
	}
	env.Orchestrator = orch
	return env, nil
}

// initSearch picks the team index: Postgres full text when the store is
// Postgres, an in-memory index otherwise.
func initSearch(ctx context.Context, st managedStore, teams []model.Team) search.TeamSearcher {
	if ps, ok := st.(*store.PostgresStore); ok {
		idx := search.NewPostgresIndex(ps.Pool())
		if err := idx.Migrate(ctx); err != nil {
			zap.L().Warn("team search index migration failed, using in-memory index", zap.Error(err))
		} else {
			zap.L().Info("team search using postgres full text index")
			return idx
		}
	}
	zap.L().Info("team search using in-memory index")
	return search.NewMemoryIndex(teams)
}

// pricingOverrides converts configured rates. Zero fields keep the default
// rate of a known model.
func pricingOverrides(p config.PricingConfig) cost.Rates {
	defaults := cost.DefaultRates()
	out := make(cost.Rates, len(p.Anthropic))
	for name, r := range p.Anthropic {
		rate := defaults[name]
		if r.Input != 0 {
			rate.Input = r.Input
		}
		if r.Output != 0 {
			rate.Output = r.Output
		}
		if r.CacheWriteMul != 0 {
			rate.CacheWriteMul = r.CacheWriteMul
		}
		if r.CacheReadMul != 0 {
			rate.CacheReadMul = r.CacheReadMul
		}
		out[name] = rate
	}
	return out
}
