package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/stockbro/stockbro/internal/assistant"
	"github.com/stockbro/stockbro/internal/config"
	"github.com/stockbro/stockbro/internal/market"
	"github.com/stockbro/stockbro/internal/news"
	"github.com/stockbro/stockbro/internal/observ"
	"github.com/stockbro/stockbro/internal/ratelimit"
	"github.com/stockbro/stockbro/internal/router"
	"github.com/stockbro/stockbro/internal/server"
	"github.com/stockbro/stockbro/internal/store"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to defaults when the file is simply absent.
		if !os.IsNotExist(err) {
			panic(err)
		}
		cfg, _ = config.Load("")
	}

	log := observ.NewLogger(observ.LogConfig{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	observ.SetGlobalLogger(log)
	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting StockBro")

	st, err := store.Open(cfg.Store.Path, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open database")
	}
	defer st.Close()

	limits := ratelimit.NewRegistry()
	if cfg.Market.DailyLimit > 0 || cfg.Market.HourlyLimit > 0 {
		limits.Configure("groww", cfg.Market.DailyLimit, cfg.Market.HourlyLimit)
	}
	if cfg.News.DailyLimit > 0 || cfg.News.HourlyLimit > 0 {
		limits.Configure("newsdata", cfg.News.DailyLimit, cfg.News.HourlyLimit)
	}

	marketClient := market.NewClient(market.Config{
		BaseURL:         cfg.Market.BaseURL,
		SearchURL:       cfg.Market.SearchURL,
		TimeoutSeconds:  cfg.Market.TimeoutSeconds,
		MaxRetries:      cfg.Market.MaxRetries,
		BackoffBaseMs:   cfg.Market.BackoffBaseMs,
		PriceCacheSize:  cfg.Market.PriceCacheSize,
		PriceTTLSeconds: cfg.Market.PriceTTLSeconds,
		StaleWindowSecs: cfg.Market.StaleWindowSecs,
		HistoryTTLSecs:  cfg.Market.HistoryTTLSecs,
		SearchTTLSecs:   cfg.Market.SearchTTLSecs,
		HistoryWorkers:  cfg.Market.HistoryWorkers,
	}, limits.Get("groww"), candleSource(cfg.Market), log)

	newsClient := news.NewClient(news.Config{
		BaseURL:        cfg.News.BaseURL,
		APIKey:         cfg.News.APIKey,
		Language:       cfg.News.Language,
		Country:        cfg.News.Country,
		TimeoutSeconds: cfg.News.TimeoutSeconds,
		CacheTTLSecs:   cfg.News.CacheTTLSecs,
		MaxRetries:     cfg.News.MaxRetries,
		BackoffBaseMs:  cfg.News.BackoffBaseMs,
		MinIntervalMs:  cfg.News.MinIntervalMs,
	}, limits.Get("newsdata"), log)
	if !newsClient.Enabled() {
		log.Warn().Msg("NEWSDATA_API_KEY not set, news answers will be empty")
	}

	asst := assistant.New(router.NewRouter(), marketClient, newsClient, log)

	sched := cron.New()
	registerJobs(sched, cfg.Jobs, marketClient, limits, log)
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Addr:    cfg.Server.Addr,
		DevMode: cfg.Server.DevMode,
	}, server.Deps{
		Assistant: asst,
		Market:    marketClient,
		News:      newsClient,
		Store:     st,
		Limits:    limits,
		Log:       log,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}

// candleSource picks the chart provider: the authenticated Groww feed when a
// key is present, public Yahoo chart data otherwise.
func candleSource(cfg config.Market) market.CandleSource {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.APIKey != "" {
		return market.NewGrowwCandleSource(cfg.CandleURL, cfg.APIKey, timeout)
	}
	return market.NewYahooCandleSource("", timeout)
}
