package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"importscout/internal/ai"
	"importscout/internal/config"
	"importscout/internal/db"
	"importscout/internal/logger"
	"importscout/internal/providers"
	"importscout/internal/research"
	"importscout/internal/research/pipeline"
	"importscout/internal/store/redisstore"
	"importscout/internal/synth"
)

type stageJobMsg struct {
	JobID string `json:"job_id"`
}

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func buildRegistry(cfg config.Config) *ai.Registry {
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
	return reg
}

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

	reg := buildRegistry(cfg)
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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	// Same arguments as the publisher so either side can declare first.
	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	})
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m stageJobMsg
				if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, svc, store, m.JobID); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, m.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, m.JobID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, svc *pipeline.Service, store *research.Store, jobID string) error {
	_ = store.UpdateJobStatusRunning(ctx, jobID)

	job, err := store.GetJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := svc.RunStage(ctx, job); err != nil {
		_ = store.MarkJobFailed(ctx, jobID, err.Error())
		return err
	}

	if err := store.MarkJobSucceeded(ctx, jobID); err != nil {
		return err
	}

	if cost := time.Since(start); cost > 2*time.Second {
		log.Printf("job_timing job=%s stage=%s cost=%s", jobID, job.Stage, cost)
	}
	return nil
}
