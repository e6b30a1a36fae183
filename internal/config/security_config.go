// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
	SecurityAdmin                       // Access token with the admin role required
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Catalog queries - Public
	"RoomAvailability": SecurityPublic,
	"RoomQuote":        SecurityPublic,

	// Payment gateway callback - signed, no bearer token
	"PaymentWebhook": SecurityPublic,

	// Reservations - Access Protected
	"CreateReservation":     SecurityAccess,
	"ListReservations":      SecurityAccess,
	"GetReservation":        SecurityAccess,
	"GetReservationHistory": SecurityAccess,
	"CancelReservation":     SecurityAccess,
	"InitiatePayment":       SecurityAccess,

	// Admin
	"RefundReservation":      SecurityAdmin,
	"AdminCancelReservation": SecurityAdmin,
	"RoomOverlaps":           SecurityAdmin,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
