package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "hotel-reservation-engine/internal/api/grpc"
	httpapi "hotel-reservation-engine/internal/api/http"
	"hotel-reservation-engine/internal/bootstrap"
	"hotel-reservation-engine/internal/cache"
	"hotel-reservation-engine/internal/config"
	"hotel-reservation-engine/internal/gateway"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/security"
	"hotel-reservation-engine/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Environment overrides may come from a local .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting reservation engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	if envErr != nil {
		logger.Debug("No .env file loaded", "error", envErr)
	}
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress(), "storage", cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Storage
	store, err := bootstrap.OpenStore(ctx, cfg, true)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenExpiry(), cfg.RefreshTokenExpiry())

	// Initialize collaborators
	notifier := bootstrap.Notifier(cfg)
	paymentGateway, err := gateway.New(gateway.Config{Type: cfg.Payment.Gateway})
	if err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}
	logger.Info("Payment gateway configured", "type", cfg.Payment.Gateway, "currency", cfg.Payment.Currency)

	redisClient := cache.NewRedisClient(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if redisClient != nil {
		defer redisClient.Close()
	}
	deliveryGuard := cache.NewDeliveryGuard(redisClient, cfg.DeliveryTTL())

	// Initialize Services
	availabilitySvc := service.NewAvailabilityService(store.Rooms, store.Bookings)
	reservationSvc := service.NewReservationService(store.Repositories, store.Tx, notifier)
	paymentSvc := service.NewPaymentService(store.Repositories, store.Tx, paymentGateway, notifier, cfg.Payment.Currency)

	// Set up HTTP server
	router := httpapi.NewRouter(
		httpapi.NewReservationHandler(availabilitySvc, reservationSvc, paymentSvc, cfg.Payment.CheckoutURL),
		httpapi.NewWebhookHandler(paymentSvc, deliveryGuard, cfg.Payment.WebhookSecret),
		tokenManager,
	)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up gRPC health server
	healthMonitor := grpcapi.NewHealthMonitor(pingFunc(store.Ping), 10*time.Second)
	grpcServer := healthMonitor.NewServer()
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go healthMonitor.Run(ctx)

	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
