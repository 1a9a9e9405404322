package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prepmap/api/internal/app"
	"prepmap/api/internal/audit"
	"prepmap/api/internal/catalog"
	"prepmap/api/internal/config"
	"prepmap/api/internal/export"
	"prepmap/api/internal/search"
	"prepmap/api/internal/store"
	"prepmap/api/internal/vcache"
	"prepmap/api/internal/visibility"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.HistoryDir, 0o755); err != nil {
		log.Fatalf("failed to create history dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	contentCatalog := catalog.NewService(dataStore, catalog.NewHistory(cfg.HistoryDir))

	var verdictCache visibility.VerdictCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := vcache.NewRedisCache(cfg.RedisURL, cfg.VisCacheTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisCache.Close()
		verdictCache = redisCache
		log.Printf("Using Redis for visibility verdict caching")
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	auditTrail := audit.NewRecorder(dataStore)
	resolver := visibility.NewResolver(dataStore, verdictCache)
	filter := visibility.NewFilter(dataStore, contentCatalog, resolver)
	visibilityService := visibility.NewService(dataStore, contentCatalog, auditTrail, verdictCache)
	exporter := export.NewService(filter)

	service := app.New(cfg, dataStore, contentCatalog, visibilityService, resolver, filter, auditTrail, searchService, exporter)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("PrepMap API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
