// Package bootstrap wires storage and notifiers from configuration for the
// binaries under cmd/.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"hotel-reservation-engine/internal/config"
	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/queue"
	"hotel-reservation-engine/internal/repository"
	"hotel-reservation-engine/internal/repository/memory"
	"hotel-reservation-engine/internal/repository/postgres"
	"hotel-reservation-engine/internal/service"

	_ "github.com/lib/pq"
)

// Store is a booking store together with its unit of work.
type Store struct {
	repository.Repositories
	Tx    repository.Transactor
	Ping  func(ctx context.Context) error
	Close func() error
}

// demoRooms seeds the in-memory store so a local run has inventory.
var demoRooms = []domain.Room{
	{RoomNumber: "101", RoomTypeID: 1, IsAvailable: true, PricePerNightCents: 9900, MaxOccupancy: 1},
	{RoomNumber: "102", RoomTypeID: 2, IsAvailable: true, PricePerNightCents: 14900, MaxOccupancy: 2},
	{RoomNumber: "201", RoomTypeID: 2, IsAvailable: true, PricePerNightCents: 14900, MaxOccupancy: 2},
	{RoomNumber: "301", RoomTypeID: 3, IsAvailable: true, PricePerNightCents: 29900, MaxOccupancy: 4},
	{RoomNumber: "302", RoomTypeID: 3, IsAvailable: false, PricePerNightCents: 29900, MaxOccupancy: 4},
}

// OpenStore connects to the configured storage. For postgres the embedded
// schema is applied when migrate is true.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (*Store, error) {
	switch cfg.Storage.Type {
	case "memory":
		logger.Warn("Using in-memory storage, bookings are lost on restart")
		mem := memory.NewStore()
		for _, room := range demoRooms {
			mem.AddRoom(room)
		}
		return &Store{
			Repositories: mem.Repositories,
			Tx:           mem,
			Ping:         mem.Ping,
			Close:        func() error { return nil },
		}, nil
	case "postgres":
		logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		pg := postgres.NewStore(db)
		return &Store{
			Repositories: pg.Repositories,
			Tx:           pg,
			Ping:         pg.Ping,
			Close:        db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Storage.Type)
	}
}

// Notifier builds the fan-out of every configured notification channel.
// Channels without credentials are skipped.
func Notifier(cfg *config.Config) service.Notifier {
	var notifiers []service.Notifier
	if cfg.Notification.SendGridAPIKey != "" {
		logger.Info("Email notifications enabled", "frontDesk", cfg.Notification.FrontDeskEmail)
		notifiers = append(notifiers, service.NewEmailNotifier(
			cfg.Notification.SendGridAPIKey,
			cfg.Notification.FromEmail,
			cfg.Notification.FromName,
			cfg.Notification.FrontDeskEmail,
		))
	}
	if cfg.RabbitMQ.URL != "" {
		logger.Info("Booking events will be published", "queue", cfg.RabbitMQ.Queue)
		notifiers = append(notifiers, queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue))
	}
	return service.NewMultiNotifier(notifiers...)
}
