package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stockbro/stockbro/internal/config"
	"github.com/stockbro/stockbro/internal/market"
	"github.com/stockbro/stockbro/internal/ratelimit"
)

// registerJobs schedules the background maintenance work: a trending warmup
// that keeps the large-cap quotes hot in cache, and an hourly report of how
// much upstream budget is left.
func registerJobs(sched *cron.Cron, jobs config.Jobs, mc *market.Client, limits *ratelimit.Registry, log zerolog.Logger) {
	jobLog := log.With().Str("component", "jobs").Logger()

	if _, err := sched.AddFunc(jobs.TrendingWarmup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stocks := mc.TrendingStocks(ctx)
		jobLog.Debug().Int("warmed", len(stocks)).Msg("trending cache warmup")
	}); err != nil {
		jobLog.Error().Err(err).Str("spec", jobs.TrendingWarmup).Msg("failed to schedule trending warmup")
	}

	if _, err := sched.AddFunc(jobs.BudgetReport, func() {
		for name, st := range limits.StatusAll() {
			jobLog.Info().
				Str("service", name).
				Int("daily_remaining", st.DailyRemaining).
				Int("hourly_remaining", st.HourlyRemaining).
				Msg("upstream budget")
		}
	}); err != nil {
		jobLog.Error().Err(err).Str("spec", jobs.BudgetReport).Msg("failed to schedule budget report")
	}
}
