package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hotel-reservation-engine/internal/bootstrap"
	"hotel-reservation-engine/internal/config"
	"hotel-reservation-engine/internal/jobs"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/scheduler"
	"hotel-reservation-engine/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'complete-finished-stays', 'all')")
	flag.Parse()

	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting reservation cronjob runner...", "log_level", cfg.Log.Level)
	if envErr != nil {
		logger.Debug("No .env file loaded", "error", envErr)
	}

	// Initialize Storage. The server owns migrations.
	store, err := bootstrap.OpenStore(context.Background(), cfg, false)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	// Initialize Services
	maintenance := service.NewMaintenanceService(store.Repositories, store.Tx, bootstrap.Notifier(cfg), cfg.PaymentHold())

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(maintenance, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "complete-finished-stays":
		jobRunner.CompleteFinishedStays()
	case "expire-unpaid-bookings":
		jobRunner.ExpireUnpaidBookings()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - complete-finished-stays\n")
		fmt.Printf("  - expire-unpaid-bookings\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
