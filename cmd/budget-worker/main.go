package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fleetbudget/internal/cli"
	"fleetbudget/internal/log"
	"fleetbudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	b := cli.InitBackend(context.Background(), logger, cfg)

	if b.AMQP == nil && cfg.BudgetCheckInterval == 0 {
		logger.Error("Nothing to do: no AMQP broker and BUDGET_CHECK_INTERVAL is 0")
		b.Cleanup()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := b.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	w := worker.NewBudgetWorker(b.Budget)
	w.SetLogger(logger)

	// Catch up on anything published while the worker was down.
	if err := w.CheckCurrentMonth(ctx); err != nil {
		logger.Error("Startup budget check failed", log.FieldError, err)
	}

	if b.AMQP != nil {
		go func() {
			if err := b.AMQP.ConsumeInvoiceCreated(ctx, w.HandleInvoiceCreated); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
				os.Exit(1)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no broker configured")
	}

	go w.RunPeriodic(ctx, cfg.BudgetCheckInterval)

	logger.Info("Budget worker started",
		"amqp_enabled", b.AMQP != nil,
		"check_interval", cfg.BudgetCheckInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Budget worker stopped gracefully")
}
