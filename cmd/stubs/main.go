// Command stubs runs the offline upstream simulator. Point the main server's
// market and news base URLs at it for development without API keys or
// network access.
package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/stockbro/stockbro/internal/observ"
	"github.com/stockbro/stockbro/internal/stubs"
)

func main() {
	addr := flag.String("addr", ":9091", "listen address")
	latency := flag.Duration("latency", 50*time.Millisecond, "simulated upstream latency")
	failEvery := flag.Int("fail-every", 0, "make every Nth quote request fail (0 disables)")
	flag.Parse()

	log := observ.NewLogger(observ.LogConfig{Level: "info", Pretty: true})

	srv := stubs.New(stubs.Options{
		Latency:   *latency,
		FailEvery: *failEvery,
	}, log)

	log.Info().Str("addr", *addr).Msg("Starting upstream simulator")
	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Simulator failed")
	}
}
