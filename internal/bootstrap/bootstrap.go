package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mklnsk/feedback-insight/internal/config"
	"github.com/mklnsk/feedback-insight/internal/core/domain"
	"github.com/mklnsk/feedback-insight/internal/core/ports"
	"github.com/mklnsk/feedback-insight/internal/core/usecase"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/anonymize"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/index/lexical"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/index/semantic"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/index/watch"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/llm/ollama"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/queue/nats"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/repository/postgres"
	"github.com/mklnsk/feedback-insight/internal/infrastructure/resilience"
)

const (
	LexicalSnapshotFile  = "lexical.snap"
	SemanticSnapshotFile = "semantic.snap"
)

// App wires the shared dependency graph. The api process serves queries from
// read-side index instances refreshed by the snapshot watcher; the worker
// owns the write side and is the only process that rebuilds.
type App struct {
	Config config.Config

	Queue    *nats.Queue
	Repo     ports.DocumentRepository
	Lexical  *lexical.Index
	Semantic *semantic.Index

	IngestUC  ports.FeedbackIngestor
	QueryUC   ports.AnswerService
	RebuildUC ports.IndexRebuilder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewFeedbackRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init rebuild queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	lexicalIndex := lexical.New(lexical.NewNormalizer(), filepath.Join(cfg.IndexDir, LexicalSnapshotFile))
	semanticIndex := semantic.New(filepath.Join(cfg.IndexDir, SemanticSnapshotFile))

	anonymizer := anonymize.New()
	ingestUC := usecase.NewIngestUseCase(anonymizer, repo, queue)
	queryUC := usecase.NewQueryUseCase(embedder, lexicalIndex, semanticIndex, repo, generator, usecase.QueryConfig{
		TopK:            cfg.RAGTopK,
		CandidateFactor: cfg.RAGCandidateFactor,
		RRFK:            cfg.RAGFusionRRFK,
		MinFusedScore:   cfg.RAGMinScore,
		RerankEnabled:   cfg.RAGRerankEnabled,
		Constraints: domain.GenerationConstraints{
			MaxOutputTokens: cfg.GenMaxTokens,
			Temperature:     cfg.GenTemperature,
		},
	})
	rebuildUC := usecase.NewRebuildUseCase(repo, embedder, lexicalIndex, semanticIndex)

	return &App{
		Config: cfg,

		Queue:    queue,
		Repo:     repo,
		Lexical:  lexicalIndex,
		Semantic: semanticIndex,

		IngestUC:  ingestUC,
		QueryUC:   queryUC,
		RebuildUC: rebuildUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// SnapshotWatcher builds the directory watcher the api process runs to pick
// up snapshots published by the worker. Initial loads happen here too; a
// missing snapshot on first boot is fine, the index stays unavailable until
// the first rebuild lands.
func (a *App) SnapshotWatcher() (*watch.Watcher, error) {
	watcher, err := watch.New(a.Config.IndexDir)
	if err != nil {
		return nil, err
	}
	watcher.OnSnapshot(LexicalSnapshotFile, a.Lexical.Load)
	watcher.OnSnapshot(SemanticSnapshotFile, a.Semantic.Load)

	if err := a.Lexical.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load lexical snapshot: %w", err)
	}
	if err := a.Semantic.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load semantic snapshot: %w", err)
	}
	return watcher, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
