package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradehelper/internal/schedule"
	"tradehelper/internal/tick"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "tradehelper",
		Short:         "Spot trading engine for Binance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	rootCmd.AddCommand(
		tickCmd(&configPath),
		runCmd(&configPath),
		intentCmd(&configPath, "buy", "Mark a coin to be bought on the next tick", (*tick.Actions).Buy),
		intentCmd(&configPath, "sell", "Mark an open position to be sold on the next tick", (*tick.Actions).Sell),
		intentCmd(&configPath, "cancel", "Drop a pending buy or sell", (*tick.Actions).Cancel),
		statsCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp wires the engine, runs fn and releases everything afterwards.
func withApp(configPath string, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(configPath)
	if a != nil {
		defer a.Close()
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func tickCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				return a.tick(ctx)
			})
		},
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Tick on every interval boundary and serve metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				srv := metricsServer(a)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server failed", zap.Error(err))
					}
				}()

				a.log.Info("tradehelper started",
					zap.Duration("interval", a.cfg.Schedule.Interval),
					zap.String("metrics", a.cfg.Schedule.MetricsAddr),
					zap.Bool("dryRun", a.cfg.Trading.DryRun),
				)
				schedule.New(a.cfg.Schedule.Interval, a.tick, a.log.Named("schedule")).Start(ctx)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func metricsServer(a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if a.pg != nil && !a.pg.IsHealthy(r.Context()) {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              a.cfg.Schedule.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func intentCmd(configPath *string, use, short string, action func(*tick.Actions, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <coin>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				return a.process.Intent(ctx, func(ctx context.Context, actions *tick.Actions) error {
					return action(actions, ctx, strings.ToUpper(strings.TrimSpace(args[0])))
				})
			})
		},
	}
}

func statsCmd(configPath *string) *cobra.Command {
	var (
		coin string
		days int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print realized profit and, with the postgres store, recent closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				stats, err := tick.NewStatistics(a.store, nil).Get(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(stats); err != nil {
					return err
				}
				if a.pg == nil {
					return nil
				}

				since := time.Now().AddDate(0, 0, -days)
				trades, err := a.pg.ListTrades(ctx, strings.ToUpper(coin), since)
				if err != nil {
					return fmt.Errorf("failed to list trades: %w", err)
				}
				return enc.Encode(trades)
			})
		},
	}
	cmd.Flags().StringVar(&coin, "coin", "", "only trades of this coin")
	cmd.Flags().IntVar(&days, "days", 30, "trades closed in the last N days")
	return cmd
}
