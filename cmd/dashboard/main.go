package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"

	"github.com/rescuedash/shelter-dashboard/internal/cache"
	"github.com/rescuedash/shelter-dashboard/internal/config"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/handler"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/internal/service"
	"github.com/rescuedash/shelter-dashboard/internal/validator"
	"github.com/rescuedash/shelter-dashboard/pkg/database"
	pkglog "github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
	"github.com/rescuedash/shelter-dashboard/pkg/storage"
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

	// Initialize structured logger
	pkglog.Init(cfg.LoggerConfig("shelter-dashboard"))
	defer pkglog.Close()
	logger := pkglog.L()

	if cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("failed to reload config")
			return
		}
		pkglog.SetLevel(next.Log.Level)
		logger.Info().Str("level", next.Log.Level).Msg("log level reloaded")
	}) {
		logger.Info().Msg("watching config file for log level changes")
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
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	recordRepo := repository.NewGormRecordRepository(db)

	// Select the search provider
	var provider repository.SearchRepository = recordRepo
	if cfg.Search.Driver == config.SearchDriverElasticsearch {
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

		esRepo := repository.NewESSearchRepository(esClient, cfg.Elasticsearch.Index, cfg.Indexer.Workers)
		if err := esRepo.EnsureIndex(context.Background()); err != nil {
			logger.Fatal().Err(err).Str("index", cfg.Elasticsearch.Index).Msg("failed to ensure search index")
		}
		provider = esRepo
	}
	logger.Info().Str("driver", cfg.Search.Driver).Msg("search provider selected")

	// Initialize the search result cache
	searchCache, err := cache.NewLRUSearchCache(cfg.Search.CacheCapacity)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create search cache")
	}

	// Initialize event bus
	events, err := pubsub.NewPubSub(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Events.Driver).Msg("failed to connect to event bus")
	}
	var publisher pubsub.Publisher
	if events != nil {
		defer events.Close()
		publisher = events
		logger.Info().Str("driver", cfg.Events.Driver).Msg("event bus connected")
	}

	// Initialize export archive
	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to create export storage")
	}

	recordValidator, err := validator.NewRecordValidator()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to compile record schema")
	}

	// Initialize services
	searchService := service.NewSearchService(provider, searchCache, cfg.Search.Limit)
	recordService := service.NewRecordService(recordRepo, recordValidator, publisher)
	dashboardService := service.NewDashboardService(recordRepo, searchService)
	exportService := service.NewExportService(recordRepo, provider, store, cfg.Export.URLExpiry)

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(searchService, recordService, dashboardService, exportService)

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Local archive files are served under their URL prefix
	if cfg.Storage.Driver == "" || cfg.Storage.Driver == "local" {
		if prefix := cfg.Storage.Local.URLPrefix; prefix != "" {
			r.Static(prefix, cfg.Storage.Local.BasePath)
		}
	}

	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", addr).Int("cache_capacity", searchCache.Capacity()).Msg("shelter-dashboard starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
