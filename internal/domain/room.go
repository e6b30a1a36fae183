package domain

// Room is read-only from the reservation engine's perspective. Price and
// occupancy come from the room type in the catalog.
type Room struct {
	ID                 int32  `json:"id"`
	RoomNumber         string `json:"room_number"`
	RoomTypeID         int32  `json:"room_type_id"`
	IsAvailable        bool   `json:"is_available"`
	PricePerNightCents int64  `json:"price_per_night_cents"`
	MaxOccupancy       int32  `json:"max_occupancy"`
	Version            int32  `json:"version"`
}

// PriceFor returns the total for a stay of the given number of nights.
func (r *Room) PriceFor(nights int) int64 {
	return int64(nights) * r.PricePerNightCents
}
