package main

// @title           PlanA Co-Studio API
// @version         1.0
// @description     Proposal drafting with AI-assisted chapter generation, review and weighted scoring.

// @license.name  MIT

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/adapters/driving/http"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/config"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/worker"
)

var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:     "plana-core",
		Short:   "PlanA Co-Studio proposal drafting backend",
		Version: version,
	}
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file (default plana.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(migrateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket notifications",
	Run: func(cmd *cobra.Command, args []string) {
		run(modeServe)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process background generate-all tasks",
	Run: func(cmd *cobra.Command, args []string) {
		run(modeWorker)
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the API and the worker in one process",
	Run: func(cmd *cobra.Command, args []string) {
		run(modeAll)
	},
}

type runMode string

const (
	modeServe  runMode = "serve"
	modeWorker runMode = "worker"
	modeAll    runMode = "all"
)

func (m runMode) servesAPI() bool { return m == modeServe || m == modeAll }

func (m runMode) runsWorker() bool { return m == modeWorker || m == modeAll }

// loadConfig loads and validates the configuration or exits
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func run(mode runMode) {
	cfg := loadConfig()
	log.Printf("plana-core %s starting in %s mode", version, mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	a, err := buildApp(ctx, cfg, mode)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}
	defer a.Close()

	if mode == modeWorker && a.queueBackend == queueMemory {
		log.Fatalf("The worker needs a shared queue: configure redis.url or the postgres storage driver")
	}

	log.Printf("Runtime config: storage=%s, queue=%s, generator=%t, provider=%s",
		a.runtimeConfig.StorageDriver,
		a.runtimeConfig.QueueBackend,
		a.runtimeConfig.GeneratorAvailable(),
		a.runtimeConfig.Provider(),
	)

	var w *worker.Worker
	if mode.runsWorker() {
		w = startWorker(ctx, cfg, a)
	}

	if mode.servesAPI() {
		runAPI(ctx, cfg, a)
	} else {
		<-ctx.Done()
	}

	if w != nil {
		log.Println("Stopping worker...")
		w.Stop()
	}
}

func runAPI(ctx context.Context, cfg *config.Config, a *app) {
	serverCfg := http.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Version:     version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      slog.Default(),
	}

	server := http.NewServer(serverCfg, a.services, a.hub, a.checks)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// startWorker starts the task worker; it runs until ctx is cancelled
func startWorker(ctx context.Context, cfg *config.Config, a *app) *worker.Worker {
	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.queue,
		Generation:     a.services.Generation,
		Notifier:       a.notifier,
		Logger:         slog.Default(),
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
		TaskTimeout:    cfg.Worker.TaskTimeout,
	})
	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Printf("Worker started (concurrency=%d), handling generate_all tasks", cfg.Worker.Concurrency)
	return w
}
