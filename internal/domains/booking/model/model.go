package model

import (
	"database/sql"
	"encoding/json"

	"hostel/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID     = "id"
	FieldRoomID = "room_id"
	FieldUserID = "user_id"
	FieldStatus = "status"

	FieldDecidedAt = "decided_at"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Booking struct {
	ID     string `db:"id"`
	RoomID string `db:"room_id"`
	UserID string `db:"user_id"`
	Status string `db:"status"`

	// Details is the occupant-supplied attribute bag (name, age, course,
	// preferences). It is opaque to the allocation logic.
	Details json.RawMessage `db:"details"`

	DecidedAt sql.NullTime `db:"decided_at"`
	model.Metadata
}

// Decided reports whether the booking has left the pending state. Approved
// and rejected are terminal.
func (b *Booking) Decided() bool {
	return b.Status != StatusPending
}

// IsDecision reports whether status names a valid decision outcome.
func IsDecision(status string) bool {
	return status == StatusApproved || status == StatusRejected
}
