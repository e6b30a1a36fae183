package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/service"
	"hotel-reservation-engine/internal/utils"

	"github.com/gorilla/mux"
)

// ReservationHandler exposes the reservation engine to customers and admins.
type ReservationHandler struct {
	availability service.AvailabilityService
	reservations service.ReservationService
	payments     service.PaymentService
	checkoutURL  string
}

func NewReservationHandler(availability service.AvailabilityService, reservations service.ReservationService, payments service.PaymentService, checkoutURL string) *ReservationHandler {
	return &ReservationHandler{
		availability: availability,
		reservations: reservations,
		payments:     payments,
		checkoutURL:  checkoutURL,
	}
}

type createReservationRequest struct {
	RoomID          int32   `json:"room_id"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out"`
	NumberOfGuests  int32   `json:"number_of_guests"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

type listReservationsResponse struct {
	Reservations []domain.Booking `json:"reservations"`
	TotalCount   int32            `json:"total_count"`
	Page         int32            `json:"page"`
}

type initiatePaymentResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type adminCancelRequest struct {
	Reason string `json:"reason"`
}

type availabilityResponse struct {
	RoomID    int32  `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

type quoteResponse struct {
	RoomID           int32  `json:"room_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	TotalAmountCents int64  `json:"total_amount_cents"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.InvalidArgument("malformed request body: %v", err))
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		writeError(w, r, err)
		return
	}

	booking, err := h.reservations.CreateReservation(r.Context(), service.CreateReservationRequest{
		UserID:          claims.UserID,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumberOfGuests:  req.NumberOfGuests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	page := queryInt32(r, "page", 1)
	pageSize := queryInt32(r, "page_size", 0)

	bookings, total, err := h.reservations.ListReservations(r.Context(), claims.UserID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, listReservationsResponse{Reservations: bookings, TotalCount: total, Page: page})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	booking, err := h.reservations.GetReservation(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *ReservationHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.reservations.GetReservationHistory(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cancelled, err := h.reservations.CancelReservation(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (h *ReservationHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.payments.InitiatePayment(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := initiatePaymentResponse{SessionID: ref}
	if h.checkoutURL != "" {
		resp.CheckoutURL = h.checkoutURL + "/" + ref
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ReservationHandler) Refund(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	refunded, err := h.payments.RefundAndCancel(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"refunded": refunded})
}

func (h *ReservationHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adminCancelRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, domain.InvalidArgument("malformed request body: %v", err))
			return
		}
	}
	cancelled, err := h.reservations.AdminCancelReservation(r.Context(), id, claims.UserID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (h *ReservationHandler) RoomOverlaps(w http.ResponseWriter, r *http.Request) {
	roomID, checkIn, checkOut, err := roomStayQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var exclude *int32
	if raw := r.URL.Query().Get("exclude_booking_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeError(w, r, domain.InvalidArgument("invalid exclude_booking_id %q", raw))
			return
		}
		v := int32(id)
		exclude = &v
	}
	bookings, err := h.availability.GetOverlappingBookings(r.Context(), roomID, checkIn, checkOut, exclude)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *ReservationHandler) RoomAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, checkIn, checkOut, err := roomStayQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.availability.IsRoomAvailable(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		RoomID:    roomID,
		CheckIn:   utils.FormatDate(checkIn),
		CheckOut:  utils.FormatDate(checkOut),
		Available: ok,
	})
}

func (h *ReservationHandler) RoomQuote(w http.ResponseWriter, r *http.Request) {
	roomID, checkIn, checkOut, err := roomStayQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.reservations.CalculateTotalAmount(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		RoomID:           roomID,
		CheckIn:          utils.FormatDate(checkIn),
		CheckOut:         utils.FormatDate(checkOut),
		TotalAmountCents: total,
	})
}

func pathID(r *http.Request) (int32, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.InvalidArgument("invalid id %q", raw)
	}
	return int32(id), nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := utils.ParseDate(checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, domain.InvalidArgument("check_in: %v", err)
	}
	out, err := utils.ParseDate(checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, domain.InvalidArgument("check_out: %v", err)
	}
	return in, out, nil
}

func roomStayQuery(r *http.Request) (int32, time.Time, time.Time, error) {
	roomID, err := pathID(r)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	q := r.URL.Query()
	in, out, err := parseStay(q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	return roomID, in, out, nil
}

func queryInt32(r *http.Request, key string, fallback int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return fallback
	}
	return int32(v)
}
