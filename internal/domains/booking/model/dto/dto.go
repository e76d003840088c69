package dto

import (
	"encoding/json"

	"github.com/google/uuid"

	"hostel/internal/domains/booking/model"
	"hostel/shared"
	"hostel/shared/constant"
	gDto "hostel/shared/dto"
	gModel "hostel/shared/model"
	"hostel/shared/timezone"
)

type SubmitBookingRequest struct {
	RoomID string `json:"room_id" validate:"required"`

	// Details is stored verbatim alongside the booking; the engine never
	// interprets it.
	Details json.RawMessage `json:"details" validate:"omitempty"`
}

func (s *SubmitBookingRequest) ToModel(user string) model.Booking {
	return model.Booking{
		ID:      uuid.NewString(),
		RoomID:  s.RoomID,
		UserID:  user,
		Status:  model.StatusPending,
		Details: s.Details,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type DecideBookingRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

type BookingResponse struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	UserID    string          `json:"user_id"`
	Status    string          `json:"status"`
	Details   json.RawMessage `json:"details,omitempty"`
	DecidedAt string          `json:"decided_at,omitempty"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.UserID = model.UserID
	r.Status = model.Status
	r.Details = model.Details

	if model.DecidedAt.Valid {
		r.DecidedAt = timezone.Format(model.DecidedAt.Time, constant.DateFormat)
	}

	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
