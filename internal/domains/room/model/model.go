package model

import (
	"time"

	"hostel/shared/model"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	OccupantsTableName = "room_occupants"

	FieldID          = "id"
	FieldRoomNumber  = "room_number"
	FieldFloor       = "floor"
	FieldType        = "type"
	FieldCapacity    = "capacity"
	FieldPrice       = "price"
	FieldStatus      = "status"
	FieldMaintenance = "maintenance"
	FieldImage       = "image"

	FieldUserID = "user_id"
	FieldRoomID = "room_id"
)

const (
	TypeSingle = "Single"
	TypeDouble = "Double"
	TypeTriple = "Triple"
)

const (
	StatusAvailable   = "Available"
	StatusOccupied    = "Occupied"
	StatusMaintenance = "Maintenance"
)

type Room struct {
	ID          string  `db:"id"`
	RoomNumber  string  `db:"room_number"`
	Floor       int     `db:"floor"`
	Type        string  `db:"type"`
	Capacity    int     `db:"capacity"`
	Price       float64 `db:"price"`
	Status      string  `db:"status"`
	Maintenance bool    `db:"maintenance"`
	Image       string  `db:"image"`
	model.Metadata
}

// Occupant is one row of a room's occupant set. The store carries a unique
// index on user_id, so a user can occupy at most one room at a time.
type Occupant struct {
	RoomID     string    `db:"room_id"`
	UserID     string    `db:"user_id"`
	OccupiedAt time.Time `db:"occupied_at"`
}

// ComputeStatus derives the status projection from occupancy and the
// maintenance flag. Maintenance overrides occupancy; the stored status column
// is only ever written with this derivation.
func ComputeStatus(occupants int, maintenance bool) string {
	switch {
	case maintenance:
		return StatusMaintenance
	case occupants > 0:
		return StatusOccupied
	default:
		return StatusAvailable
	}
}
