package bootstrap

import (
	"context"
	"fmt"

	"github.com/plumclaims/opd-adjudicator/internal/config"
	"github.com/plumclaims/opd-adjudicator/internal/core/adjudication"
	"github.com/plumclaims/opd-adjudicator/internal/core/policy"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
	"github.com/plumclaims/opd-adjudicator/internal/core/usecase"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/doctext"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/fieldextract"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/llm/ollama"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/queue/nats"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/repository/postgres"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/resilience"
	"github.com/plumclaims/opd-adjudicator/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Policy *policy.Configuration

	Queue     ports.MessageQueue
	Repo      ports.ClaimRepository
	SubmitUC  ports.ClaimSubmitter
	ProcessUC ports.ClaimProcessor
	ReadUC    ports.ClaimReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy terms: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewClaimRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := ollama.New(cfg.OllamaURL, cfg.OllamaModel).WithExecutor(executor)
	fields := fieldextract.WithFallback(
		ollama.NewFieldExtractor(llmClient),
		fieldextract.NewPatternExtractor(),
	)
	texts := doctext.New(storage)
	engine := adjudication.New(pol)

	submitUC := usecase.NewSubmitClaimUseCase(repo, storage, queue)
	processUC := usecase.NewProcessClaimUseCase(repo, texts, fields, engine, pol)
	readUC := usecase.NewReadClaimsUseCase(repo)

	return &App{
		Config: cfg,
		Policy: pol,

		Queue: queue,
		Repo:  repo,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		ReadUC:    readUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
