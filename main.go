package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/mefai-dev/mefai-dev/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analysisCfg := service.AnalysisConfig{
		Markets:          cfg.Markets,
		ExchangeBaseURL:  cfg.ExchangeBaseURL,
		RedisEndpoint:    cfg.RedisEndpoint,
		DatabaseEndpoint: cfg.DatabaseEndpoint,
		DatabaseUser:     cfg.DatabaseUser,
		DatabasePass:     cfg.DatabasePass,
		ListenAddr:       cfg.ListenAddr,
		DefaultUser:      cfg.DefaultUser,
		CandleLimit:      cfg.CandleLimit,
		ATRPeriod:        cfg.ATRPeriod,
		SwingWindow:      cfg.SwingWindow,
		CacheTTL:         time.Duration(cfg.CacheTTLSeconds) * time.Second,
		RefreshInterval:  time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		Cancel:           cancel,
	}
	analysis, err := service.NewAnalysis(ctx, &analysisCfg)
	if err != nil {
		log.Printf("creating analysis service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	analysis.Run(ctx)
}
