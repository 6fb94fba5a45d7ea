package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/lumina-store/internal/config"
	kafkax "github.com/ariefcatur/lumina-store/internal/kafka"
	"github.com/ariefcatur/lumina-store/internal/logx"
	"github.com/ariefcatur/lumina-store/internal/notify"
	"github.com/ariefcatur/lumina-store/internal/outbox"
	"github.com/ariefcatur/lumina-store/internal/postgres"
	"github.com/ariefcatur/lumina-store/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logx.New(logx.Options{Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("notifier stopped", zap.Error(err))
	}
}

// run relays the outbox to Kafka on a schedule and delivers what it consumes.
func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	service := cfg.ServiceName + "-notifier"

	requested := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicNotificationRequested, 1, log)
	defer requested.Close()

	dead := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicNotificationDead, 256, log)
	dead.Start()

	relay := &outbox.Relay{
		Store:    &outbox.Store{DB: db},
		Pub:      requested,
		Batch:    cfg.OutboxBatch,
		Producer: service,
		Log:      log.Named("outbox"),
	}
	sched := cron.New()
	if _, err := relay.Schedule(ctx, sched, cfg.OutboxSchedule); err != nil {
		return err
	}

	worker := &notify.Worker{
		Dedup: &redisx.Deduper{RDB: rdb, Service: service},
		Mail: notify.NewDispatcher(
			notify.NewSMTPDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
			cfg.SMTPUser, cfg.MailFromName, cfg.MailMaxAttempts,
		),
		Dead: dead,
		Log:  log.Named("worker"),
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, notify.TopicNotificationRequested, cfg.NotifierWorkers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("outbox relay scheduled", zap.String("spec", cfg.OutboxSchedule), zap.Int("batch", cfg.OutboxBatch))
		sched.Start()
		<-gctx.Done()
		<-sched.Stop().Done()
		return nil
	})
	g.Go(func() error {
		log.Info("notification consumer started",
			zap.String("group", cfg.NotifierGroup), zap.Int("workers", cfg.NotifierWorkers))
		return cons.Start(gctx, worker.Handle)
	})

	err = g.Wait()
	log.Info("shutting down")
	dead.Close()
	dead.WaitClosed()
	return err
}
