package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/bootstrap"
	"github.com/plumclaims/opd-adjudicator/internal/config"
	"github.com/plumclaims/opd-adjudicator/internal/observability/logging"
	"github.com/plumclaims/opd-adjudicator/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Install("worker", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeClaimSubmitted(ctx, func(handlerCtx context.Context, claimID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartClaim()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, claimID)
		workerMetrics.FinishClaim("worker", time.Since(start), processErr)

		if processErr == nil {
			if claim, err := app.Repo.GetByClaimID(processCtx, claimID); err == nil {
				workerMetrics.ObserveQueueLag("worker", start.Sub(claim.SubmittedAt))
				workerMetrics.RecordDecision("worker", string(claim.Status), claim.ApprovedAmount)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
