package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"budget/internal/amqp"
	"budget/internal/cli"
	applog "budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentScheduler)
	logger.Info("Starting transfer-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	be := cli.InitBackend(context.Background(), logger, cfg)

	var publisher services.TransferPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, transfers will not be announced", "error", err)
		} else {
			amqpClient = client
			publisher = client
		}
	} else {
		logger.Info("AMQP disabled - transfer notifications are off")
	}

	transfers := services.NewTransferService(be.Store, publisher, cfg.WorkerConcurrency)
	loc := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)))),
	)
	_, err := c.AddFunc(cfg.TransferSchedule, func() {
		today := services.TodayIn(loc)
		summary, err := transfers.ProcessAll(ctx, today)
		if err != nil {
			logger.Error("Transfer batch failed", "error", err, "date", today.String())
			return
		}
		logger.Info("Transfer batch finished",
			"date", today.String(),
			"users", summary.Users,
			"transfers", summary.Transfers)
	})
	if err != nil {
		logger.Error("Invalid transfer schedule", "error", err, "schedule", cfg.TransferSchedule)
		os.Exit(1)
	}

	c.Start()
	logger.Info("Transfer schedule registered",
		"schedule", cfg.TransferSchedule,
		"timezone", loc.String(),
		"concurrency", cfg.WorkerConcurrency)

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func() {
		cancel()
		// waits for a running batch to return
		<-c.Stop().Done()
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})
	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Transfer-worker stopped")
}
