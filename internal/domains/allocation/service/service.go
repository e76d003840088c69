package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"hostel/config"
	"hostel/infras/otel"
	bookingModel "hostel/internal/domains/booking/model"
	bookingDto "hostel/internal/domains/booking/model/dto"
	bookingRepo "hostel/internal/domains/booking/repository"
	notificationModel "hostel/internal/domains/notification/model"
	notificationDto "hostel/internal/domains/notification/model/dto"
	notificationService "hostel/internal/domains/notification/service"
	roomModel "hostel/internal/domains/room/model"
	roomRepo "hostel/internal/domains/room/repository"
	"hostel/shared"
	"hostel/shared/cache"
	"hostel/shared/constant"
	"hostel/shared/failure"
	"hostel/shared/keylock"
	"hostel/shared/timezone"
)

const (
	cachePrefixRoom    = "room"
	cachePrefixBooking = "booking"
)

// Sentinel failures for the allocation state machine. Per-call instances may
// carry details; errors.Is matches them against these.
var (
	ErrBookingNotFound = &failure.Failure{Code: http.StatusNotFound, Message: "booking not found"}
	ErrRoomNotFound    = &failure.Failure{Code: http.StatusNotFound, Message: "room not found"}
	ErrAlreadyDecided  = &failure.Failure{Code: http.StatusConflict, Message: "booking already decided"}
	ErrRoomFull        = &failure.Failure{Code: http.StatusConflict, Message: "room is at capacity"}
	ErrAlreadyHoused   = &failure.Failure{Code: http.StatusConflict, Message: "user already occupies a room"}
	ErrNotAnOccupant   = &failure.Failure{Code: http.StatusNotFound, Message: "user does not occupy this room"}
	ErrInvalidOutcome  = &failure.Failure{Code: http.StatusBadRequest, Message: "decision outcome must be approved or rejected"}
)

// Allocation serializes every occupancy mutation for a room behind that
// room's lock, re-reads authoritative state inside the lock, transitions the
// booking and the room together in one transaction, and notifies after
// commit. Submissions are handled by the booking service; they never contend
// here.
type Allocation interface {
	Decide(ctx context.Context, bookingID, outcome string) (bookingDto.BookingResponse, error)
	Vacate(ctx context.Context, roomID, userID string) error
}

type serviceImpl struct {
	bookings bookingRepo.Booking
	rooms    roomRepo.Room
	notifier notificationService.Notification
	locks    *keylock.KeyedMutex
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(bookings bookingRepo.Booking, rooms roomRepo.Room, notifier notificationService.Notification, locks *keylock.KeyedMutex, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Allocation {
	return &serviceImpl{
		bookings: bookings,
		rooms:    rooms,
		notifier: notifier,
		locks:    locks,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
	}
}

func (s *serviceImpl) Decide(ctx context.Context, bookingID, outcome string) (res bookingDto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Decide")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !bookingModel.IsDecision(outcome) {
		return res, ErrInvalidOutcome
	}

	// Fail fast before contending for the lock. The checks repeat inside the
	// lock on authoritative state.
	booking, err := s.bookings.GetAuthoritative(ctx, bookingID)
	if err != nil {
		return res, fmt.Errorf("failed to load booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, ErrBookingNotFound
	}

	if booking.Decided() {
		return res, ErrAlreadyDecided
	}

	release, err := s.locks.Acquire(ctx, booking.RoomID)
	if err != nil {
		return res, fmt.Errorf("failed to acquire room lock: %w", err)
	}
	defer release()

	// The critical section runs to completion even if the caller goes away;
	// a partially applied transition is never acceptable.
	ctx = context.WithoutCancel(ctx)

	booking, err = s.bookings.GetAuthoritative(ctx, bookingID)
	if err != nil {
		return res, fmt.Errorf("failed to reload booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, ErrBookingNotFound
	}

	if booking.Decided() {
		return res, ErrAlreadyDecided
	}

	room, err := s.rooms.GetAuthoritative(ctx, booking.RoomID)
	if err != nil {
		return res, fmt.Errorf("failed to reload room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, ErrRoomNotFound
	}

	admin, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := timezone.Now()

	if outcome == bookingModel.StatusApproved {
		err = s.approve(ctx, &booking, room, admin, now)
	} else {
		err = s.reject(ctx, &booking, admin, now)
	}

	if err != nil {
		return res, err
	}

	booking.Status = outcome
	booking.DecidedAt = sql.NullTime{Time: now, Valid: true}

	scope.AddEvent(fmt.Sprintf("booking %s %s for room %s", booking.ID, outcome, room.RoomNumber))

	go s.afterDecision(ctx, booking, room, outcome)

	res.FromModel(booking)

	return res, nil
}

// approve admits the requester into the room and flips the booking, both in
// one write-side transaction. Holding the room lock means the occupant set
// read here cannot change underneath us.
func (s *serviceImpl) approve(ctx context.Context, booking *bookingModel.Booking, room roomModel.Room, admin string, now time.Time) error {
	occupants, err := s.rooms.ListOccupants(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to list occupants: %w", err)
	}

	if !CanAdmit(len(occupants), room.Capacity) {
		// The booking stays pending; capacity may free up and the decision
		// can be retried.
		return &failure.Failure{
			Code:    ErrRoomFull.Code,
			Message: ErrRoomFull.Message,
			Details: map[string]any{
				"room_id":  room.ID,
				"occupied": len(occupants),
				"capacity": room.Capacity,
			},
		}
	}

	if HasOccupant(occupants, booking.UserID) {
		return ErrAlreadyHoused
	}

	return s.rooms.Transact(ctx, func(tx *sqlx.Tx) error {
		occupant := roomModel.Occupant{
			RoomID:     room.ID,
			UserID:     booking.UserID,
			OccupiedAt: now,
		}

		if err := s.rooms.AddOccupantTx(ctx, tx, occupant); err != nil {
			// The unique index on user_id is the cross-room uniqueness
			// backstop; a violation means the user won occupancy elsewhere
			// since our defensive check.
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
				return ErrAlreadyHoused
			}

			return err
		}

		status := roomModel.ComputeStatus(len(occupants)+1, room.Maintenance)

		roomFields := map[string]any{
			roomModel.FieldStatus:    status,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: admin,
		}

		if err := s.rooms.UpdateTx(ctx, tx, roomFields, shared.FilterByID(room.ID, roomModel.FieldID, roomModel.TableName)); err != nil {
			return err
		}

		bookingFields := map[string]any{
			bookingModel.FieldStatus:    bookingModel.StatusApproved,
			bookingModel.FieldDecidedAt: now,
			constant.FieldModifiedAt:    now,
			constant.FieldModifiedBy:    admin,
		}

		return s.bookings.UpdateTx(ctx, tx, bookingFields, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName))
	})
}

// reject leaves the room untouched.
func (s *serviceImpl) reject(ctx context.Context, booking *bookingModel.Booking, admin string, now time.Time) error {
	bookingFields := map[string]any{
		bookingModel.FieldStatus:    bookingModel.StatusRejected,
		bookingModel.FieldDecidedAt: now,
		constant.FieldModifiedAt:    now,
		constant.FieldModifiedBy:    admin,
	}

	if err := s.bookings.Update(ctx, bookingFields, shared.FilterByID(booking.ID, bookingModel.FieldID, bookingModel.TableName)); err != nil {
		return fmt.Errorf("failed to reject booking: %w", err)
	}

	return nil
}

func (s *serviceImpl) Vacate(ctx context.Context, roomID, userID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Vacate")
	defer scope.End()
	defer scope.TraceIfError(err)

	release, err := s.locks.Acquire(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to acquire room lock: %w", err)
	}
	defer release()

	ctx = context.WithoutCancel(ctx)

	room, err := s.rooms.GetAuthoritative(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	if room.ID == constant.Empty {
		return ErrRoomNotFound
	}

	occupants, err := s.rooms.ListOccupants(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to list occupants: %w", err)
	}

	if !HasOccupant(occupants, userID) {
		return ErrNotAnOccupant
	}

	admin, _ := ctx.Value(constant.ContextKeyUserID).(string)
	now := timezone.Now()

	err = s.rooms.Transact(ctx, func(tx *sqlx.Tx) error {
		affected, err := s.rooms.RemoveOccupantTx(ctx, tx, room.ID, userID)
		if err != nil {
			return err
		}

		if affected == 0 {
			return ErrNotAnOccupant
		}

		status := roomModel.ComputeStatus(len(occupants)-1, room.Maintenance)

		roomFields := map[string]any{
			roomModel.FieldStatus:    status,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: admin,
		}

		return s.rooms.UpdateTx(ctx, tx, roomFields, shared.FilterByID(room.ID, roomModel.FieldID, roomModel.TableName))
	})
	if err != nil {
		return err
	}

	scope.AddEvent(fmt.Sprintf("user %s vacated room %s", userID, room.RoomNumber))

	go func() {
		c := context.WithoutCancel(ctx)

		event := notificationDto.Event{
			RecipientUserID: userID,
			Title:           "Room Checkout",
			Message:         fmt.Sprintf("You have been checked out of room %s.", room.RoomNumber),
			Category:        notificationModel.CategoryInfo,
		}

		if err := s.notifier.Publish(c, event); err != nil {
			log.Error().Err(err).Str("room", room.ID).Msg("failed to publish vacate notification")
		}

		shared.InvalidateCaches(c, s.cache, cachePrefixRoom)
	}()

	return nil
}

// afterDecision emits the decision notification and drops stale cache
// entries. It runs outside the lock on a detached context; failures here
// never unwind the committed transition.
func (s *serviceImpl) afterDecision(ctx context.Context, booking bookingModel.Booking, room roomModel.Room, outcome string) {
	c := context.WithoutCancel(ctx)

	category := notificationModel.CategorySuccess
	message := fmt.Sprintf("Your booking for room %s has been approved.", room.RoomNumber)

	if outcome == bookingModel.StatusRejected {
		category = notificationModel.CategoryError
		message = fmt.Sprintf("Your booking for room %s has been rejected.", room.RoomNumber)
	}

	event := notificationDto.Event{
		RecipientUserID: booking.UserID,
		Title:           "Booking Decision",
		Message:         message,
		Category:        category,
	}

	if err := s.notifier.Publish(c, event); err != nil {
		log.Error().Err(err).Str("booking", booking.ID).Msg("failed to publish decision notification")
	}

	shared.InvalidateCaches(c, s.cache, cachePrefixBooking)

	if outcome == bookingModel.StatusApproved {
		shared.InvalidateCaches(c, s.cache, cachePrefixRoom)
	}
}
