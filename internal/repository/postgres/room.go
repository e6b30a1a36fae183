package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hotel-reservation-engine/internal/domain"
	"hotel-reservation-engine/internal/logger"
	"hotel-reservation-engine/internal/repository"
)

type roomRepository struct {
	db DBTX
}

func NewRoomRepository(db DBTX) repository.RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) GetByID(ctx context.Context, id int32) (*domain.Room, error) {
	query := `SELECT r.id, r.room_number, r.room_type_id, r.is_available, rt.price_per_night_cents, rt.max_occupancy, r.version
	          FROM rooms r JOIN room_types rt ON rt.id = r.room_type_id WHERE r.id = $1`
	logger.DatabaseCall("select room", query, "roomID", id)

	room := &domain.Room{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.RoomNumber, &room.RoomTypeID, &room.IsAvailable,
		&room.PricePerNightCents, &room.MaxOccupancy, &room.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		logger.DatabaseResult("select room", 0, err, "roomID", id)
		return nil, err
	}
	return room, nil
}
