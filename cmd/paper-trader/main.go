package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ducnguyen96/crypto-paper-trader/internal/bot"
	"github.com/ducnguyen96/crypto-paper-trader/internal/config"
	"github.com/ducnguyen96/crypto-paper-trader/internal/exchange"
	"github.com/ducnguyen96/crypto-paper-trader/internal/ledger"
	"github.com/ducnguyen96/crypto-paper-trader/internal/logger"
	"github.com/ducnguyen96/crypto-paper-trader/internal/monitoring"
	"github.com/ducnguyen96/crypto-paper-trader/internal/notifications"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting paper trader in %s mode", cfg.Environment)

	healthChecker := monitoring.NewHealthChecker()
	stream := exchange.NewTickerStream(cfg.Exchange.StreamURL, cfg.Exchange.ReconnectDelay)
	rest := exchange.NewRestClient(cfg.Exchange.APIURL)
	book := ledger.New(cfg.InitialBalance, cfg.MarginRate)

	trader := bot.New(cfg, stream, rest, book, healthChecker)
	trader.SetNotifier(notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID))

	journal, err := logger.NewLogger(cfg.LogDir, "paper")
	if err != nil {
		log.Printf("Session journal disabled: %v", err)
	} else {
		trader.SetJournal(journal)
		defer journal.Close()
	}

	go setupMonitoringServers(cfg, healthChecker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := trader.Start(ctx); err != nil {
		log.Fatalf("Failed to start paper trader: %v", err)
	}

	trader.PrintStartupInfo()

	// Periodic status output and connectivity refresh.
	go func() {
		ticker := time.NewTicker(cfg.StatusInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				healthChecker.SetConnected(stream.Status())
				trader.PrintStatus()
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	cancel()
	trader.Shutdown()
	log.Println("Paper trader stopped successfully")
}

func setupMonitoringServers(cfg *config.Config, healthChecker *monitoring.HealthChecker) {
	healthMux := http.NewServeMux()
	healthMux.Handle("/health", healthChecker)

	go func() {
		log.Printf("Starting health server on port %d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.HealthPort), healthMux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting Prometheus server on port %d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort), monitoring.NewMetricsHandler()); err != nil {
			log.Printf("Prometheus server error: %v", err)
		}
	}()
}
