package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sheikh-saqib/transactions-service/internal/config"
	"github.com/sheikh-saqib/transactions-service/internal/events"
	"github.com/sheikh-saqib/transactions-service/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/ledger"
	"github.com/sheikh-saqib/transactions-service/internal/risk"
	"github.com/sheikh-saqib/transactions-service/internal/seed"
	"github.com/sheikh-saqib/transactions-service/internal/storage/rediscache"
	"github.com/sheikh-saqib/transactions-service/internal/transport/httpapi"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the event relay and the reconciler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.SeedData {
		if err := seed.Run(ctx, st.rules, st.accounts); err != nil {
			return err
		}
	}

	var rules interfaces.RiskRuleStore = st.rules
	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		rules = rediscache.NewRiskRuleCache(st.rules, client, cfg.RuleCacheTTL)
		slog.Info("risk rules cached in redis", "addr", cfg.RedisAddr, "ttl", cfg.RuleCacheTTL)
	}

	remote := risk.NewRemote(cfg.RiskBaseURL, &http.Client{})
	riskClient := risk.NewClient(remote.Call, risk.NewLocalEvaluator(rules, cfg.DefaultDebitCeiling), cfg.Risk)

	bus := events.NewBus(cfg.EventBufferSize)
	l := ledger.NewLedger(st.accounts, st.transactions, riskClient, bus, st.reconciliation,
		ledger.WithSaveRetry(cfg.SaveMaxAttempts, 0))

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(l, bus, riskClient.BreakerState), cfg.MockRiskEnabled)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", cfg.Port, "version", Version, "risk_url", cfg.RiskBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return ignoreCanceled(ledger.NewReconciler(l, cfg.ReconcileInterval).Run(gctx))
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		relay := kafka.NewRelay(bus, publisher, cfg.KafkaTopic)
		g.Go(func() error { return ignoreCanceled(relay.Run(gctx)) })
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		return shutdown(bus, srv, shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// shutdown closes the bus first: that ends the open event streams, which
// Shutdown would otherwise wait on until timeout.
func shutdown(bus *events.Bus, srv *http.Server, timeout time.Duration) error {
	bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
