package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/config"
	"hostel/infras/otel/mocks"
	"hostel/internal/domains/allocation/service"
	bookingModel "hostel/internal/domains/booking/model"
	notificationDto "hostel/internal/domains/notification/model/dto"
	roomModel "hostel/internal/domains/room/model"
	"hostel/shared/constant"
	gDto "hostel/shared/dto"
	"hostel/shared/keylock"
	gModel "hostel/shared/model"
	"hostel/shared/timezone"
)

// memStore is a process-local stand-in for the Postgres schema, including the
// unique index on room_occupants.user_id. Every method takes the store mutex,
// so individual statements are atomic the way they are in the real store.
type memStore struct {
	mu        sync.Mutex
	rooms     map[string]roomModel.Room
	bookings  map[string]bookingModel.Booking
	occupants map[string]string // user -> room, the unique index
	byRoom    map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		rooms:     make(map[string]roomModel.Room),
		bookings:  make(map[string]bookingModel.Booking),
		occupants: make(map[string]string),
		byRoom:    make(map[string][]string),
	}
}

func (s *memStore) addRoom(room roomModel.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
}

func (s *memStore) addBooking(booking bookingModel.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[booking.ID] = booking
}

func (s *memStore) booking(id string) bookingModel.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) room(id string) roomModel.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[id]
}

func (s *memStore) occupantCount(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byRoom[roomID])
}

func filterID(filter gDto.FilterGroup) string {
	f := filter.Filters[0].(gDto.Filter)
	return f.Value.(string)
}

type fakeRoomRepo struct {
	store *memStore
}

func (r *fakeRoomRepo) Insert(ctx context.Context, m roomModel.Room) error {
	r.store.addRoom(m)
	return nil
}

func (r *fakeRoomRepo) Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (roomModel.Room, error) {
	return r.store.room(filterID(filter)), nil
}

func (r *fakeRoomRepo) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]roomModel.Room, error) {
	return nil, nil
}

func (r *fakeRoomRepo) Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error) {
	return r.store.room(filterID(filter)).ID != "", nil
}

func (r *fakeRoomRepo) Count(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.rooms), nil
}

func (r *fakeRoomRepo) Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error {
	return r.UpdateTx(ctx, nil, req, filter)
}

func (r *fakeRoomRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	room := r.store.rooms[filterID(filter)]
	if status, ok := req[roomModel.FieldStatus].(string); ok {
		room.Status = status
	}
	if maintenance, ok := req[roomModel.FieldMaintenance].(bool); ok {
		room.Maintenance = maintenance
	}
	r.store.rooms[room.ID] = room

	return nil
}

func (r *fakeRoomRepo) Delete(ctx context.Context, filter gDto.FilterGroup) error {
	return nil
}

func (r *fakeRoomRepo) GetAuthoritative(ctx context.Context, id string) (roomModel.Room, error) {
	return r.store.room(id), nil
}

func (r *fakeRoomRepo) CountOccupants(ctx context.Context, roomID string) (int, error) {
	return r.store.occupantCount(roomID), nil
}

func (r *fakeRoomRepo) ListOccupants(ctx context.Context, roomID string) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users := make([]string, len(r.store.byRoom[roomID]))
	copy(users, r.store.byRoom[roomID])

	return users, nil
}

func (r *fakeRoomRepo) OccupantsByRooms(ctx context.Context, roomIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(roomIDs))
	for _, id := range roomIDs {
		users, _ := r.ListOccupants(ctx, id)
		out[id] = users
	}
	return out, nil
}

func (r *fakeRoomRepo) AddOccupantTx(ctx context.Context, tx *sqlx.Tx, occupant roomModel.Occupant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, taken := r.store.occupants[occupant.UserID]; taken {
		return &pq.Error{Code: pq.ErrorCode(constant.PqErrorCodeUniqueViolation)}
	}

	r.store.occupants[occupant.UserID] = occupant.RoomID
	r.store.byRoom[occupant.RoomID] = append(r.store.byRoom[occupant.RoomID], occupant.UserID)

	return nil
}

func (r *fakeRoomRepo) RemoveOccupantTx(ctx context.Context, tx *sqlx.Tx, roomID, userID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.occupants[userID] != roomID {
		return 0, nil
	}

	delete(r.store.occupants, userID)

	users := r.store.byRoom[roomID]
	for i, u := range users {
		if u == userID {
			r.store.byRoom[roomID] = append(users[:i], users[i+1:]...)
			break
		}
	}

	return 1, nil
}

func (r *fakeRoomRepo) Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type fakeBookingRepo struct {
	store *memStore
}

func (r *fakeBookingRepo) Insert(ctx context.Context, m bookingModel.Booking) error {
	r.store.addBooking(m)
	return nil
}

func (r *fakeBookingRepo) Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (bookingModel.Booking, error) {
	return r.store.booking(filterID(filter)), nil
}

func (r *fakeBookingRepo) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]bookingModel.Booking, error) {
	return nil, nil
}

func (r *fakeBookingRepo) Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error) {
	return r.store.booking(filterID(filter)).ID != "", nil
}

func (r *fakeBookingRepo) Count(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.bookings), nil
}

func (r *fakeBookingRepo) Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error {
	return r.UpdateTx(ctx, nil, req, filter)
}

func (r *fakeBookingRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	booking := r.store.bookings[filterID(filter)]
	if status, ok := req[bookingModel.FieldStatus].(string); ok {
		booking.Status = status
	}
	if decidedAt, ok := req[bookingModel.FieldDecidedAt].(time.Time); ok {
		booking.DecidedAt = sql.NullTime{Time: decidedAt, Valid: true}
	}
	r.store.bookings[booking.ID] = booking

	return nil
}

func (r *fakeBookingRepo) Delete(ctx context.Context, filter gDto.FilterGroup) error {
	return nil
}

func (r *fakeBookingRepo) GetAuthoritative(ctx context.Context, id string) (bookingModel.Booking, error) {
	return r.store.booking(id), nil
}

type noopNotifier struct{}

func (n *noopNotifier) Publish(ctx context.Context, event notificationDto.Event) error {
	return nil
}

func (n *noopNotifier) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (notificationDto.GetNotificationsResponse, error) {
	return notificationDto.GetNotificationsResponse{}, nil
}

func (n *noopNotifier) MarkRead(ctx context.Context, id string) error {
	return nil
}

type noopCache struct{}

func (c *noopCache) Save(ctx context.Context, key string, value any, duration int) error { return nil }
func (c *noopCache) Get(ctx context.Context, key string, value any) error {
	return errors.New("miss")
}
func (c *noopCache) Delete(ctx context.Context, key string) error { return nil }
func (c *noopCache) Clear(ctx context.Context, prefix string) error {
	return nil
}

func newEngine(store *memStore) service.Allocation {
	return service.New(
		&fakeBookingRepo{store: store},
		&fakeRoomRepo{store: store},
		&noopNotifier{},
		keylock.New(),
		&config.Config{},
		&noopCache{},
		mocks.NewOtel(),
	)
}

func seedRoom(store *memStore, id string, capacity int) {
	store.addRoom(roomModel.Room{
		ID:         id,
		RoomNumber: id,
		Type:       roomModel.TypeDouble,
		Capacity:   capacity,
		Status:     roomModel.StatusAvailable,
	})
}

func seedBooking(store *memStore, id, roomID, userID string) {
	store.addBooking(bookingModel.Booking{
		ID:     id,
		RoomID: roomID,
		UserID: userID,
		Status: bookingModel.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  userID,
			ModifiedBy: userID,
		},
	})
}

func TestDecide_CapacityRace(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-1", 2)

	bookingIDs := []string{"b-1", "b-2", "b-3", "b-4", "b-5"}
	for i, id := range bookingIDs {
		seedBooking(store, id, "room-1", "user-"+string(rune('a'+i)))
	}

	engine := newEngine(store)

	var wg sync.WaitGroup
	results := make([]error, len(bookingIDs))

	for i, id := range bookingIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = engine.Decide(context.Background(), id, bookingModel.StatusApproved)
		}(i, id)
	}

	wg.Wait()

	approved := 0
	for i, err := range results {
		if err == nil {
			approved++
			assert.Equal(t, bookingModel.StatusApproved, store.booking(bookingIDs[i]).Status)
		} else {
			assert.ErrorIs(t, err, service.ErrRoomFull)
			assert.Equal(t, bookingModel.StatusPending, store.booking(bookingIDs[i]).Status)
		}
	}

	assert.Equal(t, 2, approved)
	assert.Equal(t, 2, store.occupantCount("room-1"))
	assert.Equal(t, roomModel.StatusOccupied, store.room("room-1").Status)
}

func TestDecide_DuplicateDecisionRace(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-1", 4)
	seedBooking(store, "b-1", "room-1", "user-1")

	engine := newEngine(store)

	const attempts = 4

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = engine.Decide(context.Background(), "b-1", bookingModel.StatusApproved)
		}(i)
	}

	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrAlreadyDecided)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.occupantCount("room-1"))
}

func TestDecide_SameUserTwoRoomsRace(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-a", 2)
	seedRoom(store, "room-b", 2)
	seedBooking(store, "b-a", "room-a", "user-1")
	seedBooking(store, "b-b", "room-b", "user-1")

	engine := newEngine(store)

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i, id := range []string{"b-a", "b-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = engine.Decide(context.Background(), id, bookingModel.StatusApproved)
		}(i, id)
	}

	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrAlreadyHoused)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.occupantCount("room-a")+store.occupantCount("room-b"))
}

func TestVacateThenApprove(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-1", 1)
	seedBooking(store, "b-1", "room-1", "user-1")
	seedBooking(store, "b-2", "room-1", "user-2")

	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Decide(ctx, "b-1", bookingModel.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, roomModel.StatusOccupied, store.room("room-1").Status)

	_, err = engine.Decide(ctx, "b-2", bookingModel.StatusApproved)
	assert.ErrorIs(t, err, service.ErrRoomFull)

	err = engine.Vacate(ctx, "room-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, roomModel.StatusAvailable, store.room("room-1").Status)
	assert.Equal(t, 0, store.occupantCount("room-1"))

	// The booking that lost out on capacity is still pending and can now
	// be approved.
	_, err = engine.Decide(ctx, "b-2", bookingModel.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 1, store.occupantCount("room-1"))
	assert.Equal(t, roomModel.StatusOccupied, store.room("room-1").Status)
}

func TestDecide_RejectLeavesRoomUntouched(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-1", 2)
	seedBooking(store, "b-1", "room-1", "user-1")

	engine := newEngine(store)

	res, err := engine.Decide(context.Background(), "b-1", bookingModel.StatusRejected)
	require.NoError(t, err)

	assert.Equal(t, bookingModel.StatusRejected, res.Status)
	assert.Equal(t, bookingModel.StatusRejected, store.booking("b-1").Status)
	assert.True(t, store.booking("b-1").DecidedAt.Valid)
	assert.Equal(t, 0, store.occupantCount("room-1"))
	assert.Equal(t, roomModel.StatusAvailable, store.room("room-1").Status)
}

func TestVacate_LastOutcomeWinsUnderContention(t *testing.T) {
	store := newMemStore()
	seedRoom(store, "room-1", 3)

	users := []string{"user-1", "user-2", "user-3"}
	for _, u := range users {
		seedBooking(store, "b-"+u, "room-1", u)
	}

	engine := newEngine(store)
	ctx := context.Background()

	for _, u := range users {
		_, err := engine.Decide(ctx, "b-"+u, bookingModel.StatusApproved)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			assert.NoError(t, engine.Vacate(ctx, "room-1", u))
		}(u)
	}

	wg.Wait()

	assert.Equal(t, 0, store.occupantCount("room-1"))
	assert.Equal(t, roomModel.StatusAvailable, store.room("room-1").Status)
}
