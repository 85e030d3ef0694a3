package main

import (
	"log"

	"importscout/internal/ai"
	"importscout/internal/config"
	"importscout/internal/db"
	"importscout/internal/httpapi"
	"importscout/internal/logger"
	"importscout/internal/providers"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
	"importscout/internal/store/rabbitmq"
	"importscout/internal/store/redisstore"
	"importscout/internal/synth"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	gdb := db.Connect(cfg.DBDSN)
	store := research.NewStore(gdb)
	if err := store.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	reg := ai.NewRegistry()
	reg.Register("anthropic", func() (ai.Provider, error) {
		return ai.NewAnthropicProvider(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	})
	reg.Register("openrouter", func() (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, "", "importscout"), nil
	})
	reg.Register("ollama", func() (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	})

	provider, err := reg.Get(cfg.AIProvider)
	if err != nil {
		log.Fatalf("ai provider: %v", err)
	}
	client := ai.NewClient(provider, zlog)
	engine := synth.NewEngine(client, rds, zlog)

	serp := providers.NewSerpAPI(cfg.SerpAPIBaseURL, cfg.SerpAPIKey, cfg.SerpAPIPageSize, cfg.SerpAPITrendsDate, zlog)
	tavily := providers.NewTavily(cfg.TavilyAPIKey, zlog)
	ali := providers.NewAliExpress(cfg.AliExpressAppKey, cfg.AliExpressAppSecret, zlog)
	geo := providers.NewGeolocator(cfg.GeolocationBaseURL)
	exchange := providers.NewExchange(rds, zlog)

	svc := pipeline.NewService(store, engine, serp, ali, tavily, geo, exchange, zlog)
	svc.TrendsDateRange = cfg.SerpAPITrendsDate

	// The queue is optional: without a broker the synchronous endpoints
	// still serve, only /research/jobs degrades.
	var rabbit *rabbitmq.Publisher
	rabbit, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		zlog.Warn("rabbitmq unavailable, job endpoints disabled", "error", err.Error())
		rabbit = nil
	} else {
		defer rabbit.Close()
	}

	r := httpapi.NewRouter(svc, store, rabbit, zlog)

	zlog.Info("server starting", "addr", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
