package dto_test

import (
	"database/sql"
	"encoding/json"
	"testing"

	"hostel/internal/domains/booking/model"
	"hostel/internal/domains/booking/model/dto"
	gModel "hostel/shared/model"
	"hostel/shared/timezone"

	"github.com/stretchr/testify/assert"
)

func TestSubmitBookingRequest_ToModel(t *testing.T) {
	req := dto.SubmitBookingRequest{
		RoomID:  "room-1",
		Details: json.RawMessage(`{"note":"ground floor please"}`),
	}

	userID := "test-user-id"
	booking := req.ToModel(userID)

	assert.NotEmpty(t, booking.ID, "expected ID to be generated")
	assert.Equal(t, req.RoomID, booking.RoomID)
	assert.Equal(t, userID, booking.UserID)
	assert.Equal(t, model.StatusPending, booking.Status)
	assert.Equal(t, req.Details, booking.Details)
	assert.False(t, booking.DecidedAt.Valid, "a new booking carries no decision")
	assert.Equal(t, userID, booking.CreatedBy)
	assert.False(t, booking.CreatedAt.IsZero(), "expected CreatedAt to be set")
}

func TestBookingResponse_FromModel(t *testing.T) {
	now := timezone.Now()

	t.Run("pending booking has no decided_at", func(t *testing.T) {
		bookingModel := model.Booking{
			ID:     "test-id",
			RoomID: "room-1",
			UserID: "user-1",
			Status: model.StatusPending,
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  "user-1",
				ModifiedBy: "user-1",
			},
		}

		var response dto.BookingResponse
		response.FromModel(bookingModel)

		assert.Equal(t, bookingModel.ID, response.ID)
		assert.Equal(t, bookingModel.RoomID, response.RoomID)
		assert.Equal(t, bookingModel.UserID, response.UserID)
		assert.Equal(t, model.StatusPending, response.Status)
		assert.Empty(t, response.DecidedAt)
	})

	t.Run("decided booking carries the decision time", func(t *testing.T) {
		bookingModel := model.Booking{
			ID:        "test-id",
			RoomID:    "room-1",
			UserID:    "user-1",
			Status:    model.StatusApproved,
			DecidedAt: sql.NullTime{Time: now, Valid: true},
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  "user-1",
				ModifiedBy: "admin-1",
			},
		}

		var response dto.BookingResponse
		response.FromModel(bookingModel)

		assert.Equal(t, model.StatusApproved, response.Status)
		assert.NotEmpty(t, response.DecidedAt)
	})
}

func TestGetBookingsResponse_FromModels(t *testing.T) {
	now := timezone.Now()
	bookings := []model.Booking{
		{
			ID:     "test-id-1",
			RoomID: "room-1",
			UserID: "user-1",
			Status: model.StatusPending,
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  "user-1",
				ModifiedBy: "user-1",
			},
		},
		{
			ID:        "test-id-2",
			RoomID:    "room-2",
			UserID:    "user-2",
			Status:    model.StatusRejected,
			DecidedAt: sql.NullTime{Time: now, Valid: true},
			Metadata: gModel.Metadata{
				CreatedAt:  now,
				ModifiedAt: now,
				CreatedBy:  "user-2",
				ModifiedBy: "admin-1",
			},
		},
	}

	totalData := 15
	limit := 10

	var response dto.GetBookingsResponse
	response.FromModels(bookings, totalData, limit)

	assert.Len(t, response.Bookings, 2)
	assert.Equal(t, totalData, response.TotalData)
	assert.Equal(t, 2, response.TotalPage)
	assert.Equal(t, "test-id-1", response.Bookings[0].ID)
	assert.Empty(t, response.Bookings[0].DecidedAt)
	assert.NotEmpty(t, response.Bookings[1].DecidedAt)
}
