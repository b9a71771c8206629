package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/stylora/concierge/agent/agents/orchestrator"
	personalizex "github.com/stylora/concierge/agent/agents/personalize"
	registryx "github.com/stylora/concierge/agent/agents/registry"
	catalogx "github.com/stylora/concierge/agent/catalog"
	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
	permissionx "github.com/stylora/concierge/agent/permission"
	profilex "github.com/stylora/concierge/agent/profile"
	rerankx "github.com/stylora/concierge/agent/rerank"
	configx "github.com/stylora/concierge/pkg/config"
	embeddingx "github.com/stylora/concierge/pkg/embedding"
	_ "github.com/stylora/concierge/pkg/logger/autoload"
	ratelimitx "github.com/stylora/concierge/pkg/ratelimit"
	trendx "github.com/stylora/concierge/pkg/trend"
	upstashx "github.com/stylora/concierge/pkg/upstash"
	vectorsearchx "github.com/stylora/concierge/pkg/vectorsearch"
)

func main() {
	profileCfg := configx.MustNew[profilex.PostgresConfig]("PROFILE_DB")
	profileStore, err := profilex.NewPostgresStore(*profileCfg)
	if err != nil {
		panic(err)
	}
	defer profileStore.Close()

	catalogCfg := configx.MustNew[catalogx.PostgresConfig]("CATALOG_DB")
	catalogStore, err := catalogx.NewPostgresStore(*catalogCfg)
	if err != nil {
		panic(err)
	}
	defer catalogStore.Close()

	// Secondary profile store and shared rate-limit counter are optional: when
	// Redis is not configured, fall back to the primary store alone and a
	// process-local counter.
	var secondary profilex.Store
	var counter ratelimitx.Counter
	rateCfg := configx.MustNew[ratelimitx.Config]("INFERENCE_RATELIMIT")
	if redisCfg, err := configx.New[upstashx.Config]("UPSTASH_REDIS"); err == nil {
		redisClient, err := upstashx.NewClient(*redisCfg)
		if err != nil {
			panic(err)
		}
		secondary, err = profilex.NewUpstashStore(redisClient)
		if err != nil {
			panic(err)
		}
		counter, err = ratelimitx.NewRedisCounter(redisClient, *rateCfg)
		if err != nil {
			panic(err)
		}
	} else {
		log.Info().Msg("redis not configured, using local profile cache and rate limits")
		counter = ratelimitx.NewLocalCounter(*rateCfg)
	}

	permissions, err := permissionx.NewManager(profileStore, secondary)
	if err != nil {
		panic(err)
	}

	// Embedding and vector search are optional capabilities, checked once here.
	var embedder rerankx.Embedder
	embedCfg := configx.MustNew[embeddingx.Config]("EMBEDDING")
	if embedCfg.Enabled() {
		client, err := embeddingx.NewClient(*embedCfg, counter)
		if err != nil {
			panic(err)
		}
		embedder = client
	} else {
		log.Info().Msg("embedding provider not configured, semantic search disabled")
	}

	var index rerankx.VectorIndex
	vectorCfg := configx.MustNew[vectorsearchx.Config]("VECTOR_SEARCH")
	if vectorCfg.Enabled() {
		client, err := vectorsearchx.NewClient(*vectorCfg)
		if err != nil {
			panic(err)
		}
		index = client
	} else {
		log.Info().Msg("vector index not configured, falling back to catalog scans")
	}

	var rankerOpts []rerankx.Option
	trendCfg := configx.MustNew[trendx.Config]("TREND")
	if trendCfg.Enabled() {
		client, err := trendx.NewClient(*trendCfg)
		if err != nil {
			panic(err)
		}
		rankerOpts = append(rankerOpts, rerankx.WithTrendSource(client))
	} else {
		log.Info().Msg("trend service not configured, skipping trend bonuses")
	}

	ranker, err := rerankx.New(permissions, catalogStore, embedder, index, rankerOpts...)
	if err != nil {
		panic(err)
	}

	agents := registryx.New()
	searchAgent, err := personalizex.New(ranker, rerankx.Options{})
	if err != nil {
		panic(err)
	}
	if err := agents.Register(contractx.AgentSearch, searchAgent); err != nil {
		panic(err)
	}

	guard := guardrailx.NewEngine(*configx.MustNew[guardrailx.Config]("GUARDRAIL"))

	orchestratorCfg := configx.MustNew[orchestratorx.Config]("ORCHESTRATOR")
	svc, err := orchestratorx.New(agents, guard, permissions, ranker, *orchestratorCfg)
	if err != nil {
		panic(err)
	}
	_ = svc

	fmt.Println("Concierge core wired: stores, guardrails, and orchestrator ready")
}
