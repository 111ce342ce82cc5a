package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/rescuedash/shelter-dashboard/internal/config"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/indexer"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/database"
	pkglog "github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
)

func main() {
	configPath := "./config"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	pkglog.Init(cfg.LoggerConfig("shelter-indexer"))
	defer pkglog.Close()
	logger := pkglog.L()

	// Initialize Elasticsearch client
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
	}

	res, err := esClient.Info()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to elasticsearch")
	}
	res.Body.Close()
	logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")

	searchIndex := repository.NewESSearchRepository(esClient, cfg.Elasticsearch.Index, cfg.Indexer.Workers)

	ctx, cancel := context.WithCancel(pkglog.WithLogger(context.Background(), logger))
	defer cancel()

	if err := searchIndex.EnsureIndex(ctx); err != nil {
		logger.Fatal().Err(err).Str("index", cfg.Elasticsearch.Index).Msg("failed to ensure search index")
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, &domain.RecordModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	recordRepo := repository.NewGormRecordRepository(db)

	// Initialize event bus
	events, err := pubsub.NewPubSub(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to connect to event bus")
	}

	var subscriber pubsub.Subscriber
	if events != nil {
		defer events.Close()
		subscriber = events
	}

	ix := indexer.NewIndexer(searchIndex, recordRepo, subscriber, cfg.Indexer.BatchSize)

	if cfg.Indexer.Backfill {
		start := time.Now()
		n, err := ix.Backfill(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("backfill failed")
		}
		logger.Info().Int(pkglog.FieldCount, n).Dur("took", time.Since(start)).Msg("search index backfilled")
	}

	if subscriber == nil {
		logger.Info().Msg("no event bus configured, exiting after backfill")
		return
	}

	// Start consuming in background
	runDone := make(chan error, 1)
	go func() {
		runDone <- ix.Run(ctx)
	}()

	// Wait for interrupt signal or the consumer to exit
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("received shutdown signal")
	case err := <-runDone:
		if err != nil {
			logger.Error().Err(err).Msg("indexer exited with error")
		}
		return
	}

	cancel()

	select {
	case <-runDone:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("indexer shutdown timed out")
	}

	logger.Info().Msg("indexer stopped")
}
