package http

import (
	"net/http"

	"hotel-reservation-engine/internal/security"

	"github.com/gorilla/mux"
)

// NewRouter registers every endpoint. Route names key the security levels
// in config.EndpointSecurityConfig.
func NewRouter(reservations *ReservationHandler, webhooks *WebhookHandler, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, LoggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/webhooks/payments", webhooks.HandlePayment).Methods(http.MethodPost).Name("PaymentWebhook")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tm))

	api.HandleFunc("/rooms/{id:[0-9]+}/availability", reservations.RoomAvailability).Methods(http.MethodGet).Name("RoomAvailability")
	api.HandleFunc("/rooms/{id:[0-9]+}/quote", reservations.RoomQuote).Methods(http.MethodGet).Name("RoomQuote")

	api.HandleFunc("/reservations", reservations.Create).Methods(http.MethodPost).Name("CreateReservation")
	api.HandleFunc("/reservations", reservations.List).Methods(http.MethodGet).Name("ListReservations")
	api.HandleFunc("/reservations/{id:[0-9]+}", reservations.Get).Methods(http.MethodGet).Name("GetReservation")
	api.HandleFunc("/reservations/{id:[0-9]+}", reservations.Cancel).Methods(http.MethodDelete).Name("CancelReservation")
	api.HandleFunc("/reservations/{id:[0-9]+}/history", reservations.History).Methods(http.MethodGet).Name("GetReservationHistory")
	api.HandleFunc("/reservations/{id:[0-9]+}/payments", reservations.InitiatePayment).Methods(http.MethodPost).Name("InitiatePayment")

	api.HandleFunc("/admin/reservations/{id:[0-9]+}/refund", reservations.Refund).Methods(http.MethodPost).Name("RefundReservation")
	api.HandleFunc("/admin/reservations/{id:[0-9]+}/cancel", reservations.AdminCancel).Methods(http.MethodPost).Name("AdminCancelReservation")
	api.HandleFunc("/admin/rooms/{id:[0-9]+}/overlaps", reservations.RoomOverlaps).Methods(http.MethodGet).Name("RoomOverlaps")

	return router
}
