package gateway

import "fmt"

// Config holds payment gateway configuration
type Config struct {
	Type string // only "mock" is built in
}

// New builds the gateway named by cfg.Type
func New(cfg Config) (PaymentGateway, error) {
	switch cfg.Type {
	case "", "mock":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("payment gateway %q not yet implemented", cfg.Type)
	}
}
