package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"hms-server/internal/ai"
	"hms-server/internal/config"
	"hms-server/internal/events"
	"hms-server/internal/notify"
	"hms-server/internal/outbox"
	"hms-server/internal/queue"
	"hms-server/internal/repository"
	"hms-server/pkg/database"
	"hms-server/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(log)
	defer log.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Errorf("failed to connect to database: %v", err)
		return
	}
	defer pool.Close()

	publisher, err := queue.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue, log)
	if err != nil {
		log.Errorf("failed to connect to RabbitMQ: %v", err)
		return
	}
	defer publisher.Close()

	consumer, err := queue.NewConsumer(publisher, cfg.Worker.MaxAttempts, cfg.Worker.BackoffBase, log)
	if err != nil {
		log.Errorf("failed to create consumer: %v", err)
		return
	}
	defer consumer.Close()

	appts := repository.NewAppointmentRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	var notifier outbox.Notifier
	if cfg.AWS.Region != "" && cfg.AWS.EmailFrom != "" {
		awsNotifier, err := notify.NewAWSNotifier(ctx, notify.Config{
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKey,
			SecretKey: cfg.AWS.SecretKey,
			EmailFrom: cfg.AWS.EmailFrom,
		})
		if err != nil {
			log.Errorf("failed to create aws notifier: %v", err)
			return
		}
		notifier = awsNotifier
	} else {
		log.Warnf("aws not configured, using log notifier")
		notifier = notify.NewLogNotifier(log)
	}

	var summarizer outbox.Summarizer
	if cfg.AI.Endpoint != "" {
		summarizer, err = ai.NewHTTPSummarizer(cfg.AI.Endpoint, cfg.AI.APIKey)
		if err != nil {
			log.Errorf("failed to create summarizer: %v", err)
			return
		}
	}

	var fanout outbox.FanoutPublisher
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		fanout = events.NewPublisher(rdb)
	}

	dispatcher := outbox.NewDispatcher(appts, outboxRepo, auditRepo, notifier, summarizer, fanout, log)
	dispatcher.Register(consumer)

	relay := outbox.NewRelay(outboxRepo, publisher, cfg.Worker.PollInterval, cfg.Worker.BatchSize, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil {
			log.Errorf("consumer stopped: %v", err)
			stop()
		}
	}()

	log.Infof("worker started")
	<-ctx.Done()
	log.Infof("worker shutting down...")
	wg.Wait()
}
