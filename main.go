package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aouyang1/ratedisplay/api"
	"github.com/aouyang1/ratedisplay/api/client"
	"github.com/aouyang1/ratedisplay/config"
	"github.com/aouyang1/ratedisplay/rotation"
	"github.com/aouyang1/ratedisplay/store"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ratedisplay",
	Short: "Jewellery rate display server and TV rotation",
	Long: `Serves the management api and the TV page, and drives the rotation between
the rates screen and customer media. With --remote only the TV page runs, polling
another server for its content.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteURL, _ := cmd.Flags().GetString("remote")
		run(remoteURL)
		return nil
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List the supported environment variables",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.Usage())
	},
}

func init() {
	rootCmd.Flags().String("remote", "", "run display only, polling the management server at this url")
	rootCmd.AddCommand(envCmd)
}

func run(remoteURL string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := rotation.NewMetrics(prometheus.DefaultRegisterer)
	engine := rotation.NewEngine(metrics)

	var (
		source   rotation.Source
		database *store.Database
	)
	if remoteURL != "" {
		source = client.NewDisplayClient(remoteURL)
	} else {
		// Initialize database
		database, err = store.NewDatabase(filepath.Join(cfg.RootPath, "display.db"))
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()
		source = rotation.NewStoreSource(database)
	}

	runner, err := rotation.NewRunner(engine, source, cfg.PollInterval, cfg.TickInterval, metrics)
	if err != nil {
		log.Fatalf("Failed to initialize display runner: %v", err)
	}

	var webServer *api.WebServer
	if database != nil {
		webServer, err = api.NewWebServer(database, runner, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize web server: %v", err)
		}
	} else {
		slog.Info("running display only", "remote", remoteURL)
		webServer = api.NewDisplayServer(runner, cfg.ListenAddr)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	if err := webServer.Start(ctx); err != nil {
		slog.Error("web server failed", "error", err)
		stop()
	}
	wg.Wait()
	slog.Info("shutdown complete")
}
