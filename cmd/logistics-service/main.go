package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nurpe/logistics-billing/internal/auth"
	"github.com/nurpe/logistics-billing/internal/cache"
	"github.com/nurpe/logistics-billing/internal/config"
	"github.com/nurpe/logistics-billing/internal/db"
	"github.com/nurpe/logistics-billing/internal/excel"
	httphandler "github.com/nurpe/logistics-billing/internal/http"
	"github.com/nurpe/logistics-billing/internal/http/middleware"
	"github.com/nurpe/logistics-billing/internal/logger"
	"github.com/nurpe/logistics-billing/internal/pdf"
	"github.com/nurpe/logistics-billing/internal/repository"
	"github.com/nurpe/logistics-billing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	store := repository.NewStore(database)

	var statsCache service.StatsCache
	if cfg.Cache.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewStatsCache(ctx, cfg.Cache.RedisURL, cfg.Cache.StatsTTL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("statistics cache disabled")
		} else {
			defer redisCache.Close()
			statsCache = redisCache
		}
	}

	services := httphandler.Services{
		Invoices:    service.NewInvoiceService(store, statsCache, log),
		Payments:    service.NewPaymentService(store, statsCache, log),
		Expeditions: service.NewExpeditionService(store, statsCache, log),
		Tours:       service.NewTourService(store, log),
		Fleet:       service.NewFleetService(store, log),
		Reference:   service.NewReferenceService(store, log),
		Reports:     service.NewReportService(store, statsCache, excel.NewGenerator(), pdf.NewGenerator(), cfg, log),
	}

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(services, store, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.HTTP, cfg.Environment, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting logistics service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
