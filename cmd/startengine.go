package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"powconsensus/config"
	"powconsensus/engine"
	"powconsensus/health"
	"powconsensus/host"
	"powconsensus/hoststub"
	"powconsensus/logger"
	"powconsensus/telemetry"
)

var startEngineCmd = &cobra.Command{
	Use:   "startengine",
	Short: "Run the proof-of-work consensus engine",
	Long:  `Start the engine driver, mining against updates delivered by a validator host.`,
	RunE:  runStartEngine,
}

func init() {
	rootCmd.AddCommand(startEngineCmd)

	startEngineCmd.Flags().String("host", "", "validator host address to dial")
	startEngineCmd.Flags().Bool("dry-run", false, "run against an in-process host stub instead of dialing a validator")
}

func runStartEngine(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	logger.SetLevel(logger.LogLevel(cfg.GetLogLevel()))
	logger.Infof("starting %s consensus engine v%s", engine.Name, engine.Version)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	hostAddr, _ := cmd.Flags().GetString("host")
	if hostAddr == "" {
		hostAddr = cfg.HostAddr
	}

	if !dryRun {
		return fmt.Errorf("dialing a validator host (%s) is not implemented; run with --dry-run", hostAddr)
	}

	store, err := telemetry.Open(cfg.DataDir + "/" + cfg.TelemetryPath)
	if err != nil {
		return fmt.Errorf("failed to open telemetry store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	stub := hoststub.New(host.PeerID{0x01})
	e := engine.New()
	e.UpdateRecvTimeout = cfg.UpdateRecvTimeout()
	e.Telemetry = store

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("engine driver running against dry-run host stub")
		e.Start(stub.Updates(), stub, stub.Genesis())
	}()

	var healthServer *http.Server
	if cfg.HealthPort > 0 {
		checker := health.NewChecker(store)
		mux := http.NewServeMux()
		mux.HandleFunc("/health", checker.HealthHandler)
		mux.HandleFunc("/ready", checker.ReadinessHandler)
		healthServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.HealthPort), Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Infof("starting health check server on port %d", cfg.HealthPort)
			if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("health server error: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal, stopping engine...")
	case <-ctx.Done():
	}

	stub.Shutdown()
	if healthServer != nil {
		healthServer.Close()
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("engine stopped gracefully")
	case <-time.After(10 * time.Second):
		logger.Warning("timeout waiting for engine to stop")
	}

	return nil
}
