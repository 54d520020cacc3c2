package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vocdoni/davinci-tally/db/metadb"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/service"
	"github.com/vocdoni/davinci-tally/storage"
)

// Services holds all the running services
type Services struct {
	Storage   *storage.Storage
	Cluster   *mpc.Cluster
	Sequencer *service.SequencerService
	API       *service.APIService
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting davinci-tally", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Initialize storage database
	log.Infow("initializing storage", "path", dbPath(cfg), "type", cfg.DB.Type)
	database, err := metadb.New(cfg.DB.Type, dbPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(database)
	if persistentDB(cfg) {
		log.Warnw("cluster key shares are not persisted, polls created by previous runs cannot be revealed",
			"type", cfg.DB.Type)
	}

	// Run the key generation of the cluster
	log.Infow("generating cluster key",
		"nodes", cfg.Cluster.Nodes,
		"threshold", cfg.Cluster.Threshold,
		"revealWindow", cfg.Cluster.RevealWindow)
	services.Cluster, err = mpc.NewCluster(mpc.ClusterConfig{
		Nodes:        cfg.Cluster.Nodes,
		Threshold:    cfg.Cluster.Threshold,
		RevealWindow: cfg.Cluster.RevealWindow,
		Curve:        cfg.Cluster.Curve,
	})
	if err != nil {
		services.Storage.Close()
		return nil, fmt.Errorf("failed to create cluster: %w", err)
	}
	log.Infow("cluster ready", "fingerprint", services.Cluster.Fingerprint().String())

	// Start sequencer service
	log.Infow("starting sequencer service", "period", cfg.DB.Period.String())
	services.Sequencer, err = service.NewSequencer(services.Storage, services.Cluster, cfg.DB.Period)
	if err != nil {
		shutdownServices(services)
		return nil, err
	}
	if err := services.Sequencer.Start(ctx); err != nil {
		services.Sequencer = nil
		shutdownServices(services)
		return nil, fmt.Errorf("failed to start sequencer service: %w", err)
	}

	// Start API service
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.Sequencer.Sequencer, cfg.API.Host, cfg.API.Port, cfg.API.DisableLogging)
	if err := services.API.Start(ctx); err != nil {
		services.API = nil
		shutdownServices(services)
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}

	log.Info("davinci-tally is running, ready to count ballots!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	// Stop services in reverse order of startup
	if services.API != nil {
		services.API.Stop()
	}
	if services.Sequencer != nil {
		services.Sequencer.Stop()
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}
