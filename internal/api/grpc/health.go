package grpc

import (
	"context"
	"time"

	"hotel-reservation-engine/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry that follows storage reachability.
const ServiceName = "hotel.reservations.v1.ReservationEngine"

const pingTimeout = 2 * time.Second

// Pinger reports whether the booking store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthMonitor publishes storage reachability through grpc.health.v1.
type HealthMonitor struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	serving  bool
}

func NewHealthMonitor(pinger Pinger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthMonitor{health: h, pinger: pinger, interval: interval}
}

// NewServer returns a gRPC server exposing the health service and reflection.
func (m *HealthMonitor) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, m.health)
	// Register reflection service for grpcurl
	reflection.Register(s)
	return s
}

// Check pings storage once and updates the published status.
func (m *HealthMonitor) Check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := m.pinger.Ping(pctx)
	cancel()
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	serving := status == healthpb.HealthCheckResponse_SERVING
	if serving != m.serving {
		if serving {
			logger.Info("Storage reachable, reporting SERVING")
		} else {
			logger.Warn("Storage unreachable, reporting NOT_SERVING", "error", err)
		}
		m.serving = serving
	}
	m.health.SetServingStatus(ServiceName, status)
	m.health.SetServingStatus("", status)
}

// Run checks storage every interval until ctx is done, then marks the
// server as shutting down.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.health.Shutdown()
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
