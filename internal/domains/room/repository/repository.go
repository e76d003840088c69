package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"hostel/infras/otel"
	"hostel/infras/postgres"
	"hostel/internal/domains/room/model"
	"hostel/shared/constant"
	gDto "hostel/shared/dto"
	"hostel/shared/logger"
	gRepo "hostel/shared/repository"
)

type Room interface {
	Insert(ctx context.Context, model model.Room) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error

	// GetAuthoritative reads a room from the write connection, bypassing any
	// replica lag. Allocation decisions must only ever act on this view.
	GetAuthoritative(ctx context.Context, id string) (model.Room, error)
	CountOccupants(ctx context.Context, roomID string) (int, error)
	ListOccupants(ctx context.Context, roomID string) ([]string, error)
	OccupantsByRooms(ctx context.Context, roomIDs []string) (map[string][]string, error)
	AddOccupantTx(ctx context.Context, tx *sqlx.Tx, occupant model.Occupant) error
	RemoveOccupantTx(ctx context.Context, tx *sqlx.Tx, roomID, userID string) (int64, error)

	// Transact runs fn inside a single write-side transaction, committing on
	// nil and rolling back otherwise.
	Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (repo *repositoryImpl) GetAuthoritative(ctx context.Context, id string) (model.Room, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.GetAuthoritative")
	defer scope.End()

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", model.TableName, model.FieldID)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var room model.Room

	err := repo.db.Write.GetContext(ctx, &room, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return room, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return room, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (repo *repositoryImpl) CountOccupants(ctx context.Context, roomID string) (int, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.CountOccupants")
	defer scope.End()

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", model.OccupantsTableName, model.FieldRoomID)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var count int

	// Occupancy feeds the capacity invariant, so it is always counted on the
	// write connection.
	if err := repo.db.Write.GetContext(ctx, &count, query, roomID); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to count occupants: %w", err)
	}

	return count, nil
}

func (repo *repositoryImpl) ListOccupants(ctx context.Context, roomID string) ([]string, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.ListOccupants")
	defer scope.End()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY occupied_at", model.FieldUserID, model.OccupantsTableName, model.FieldRoomID)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var userIDs []string

	// Feeds the capacity check, so it reads the write connection like
	// CountOccupants does. Display paths use OccupantsByRooms instead.
	if err := repo.db.Write.SelectContext(ctx, &userIDs, query, roomID); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list occupants: %w", err)
	}

	return userIDs, nil
}

func (repo *repositoryImpl) OccupantsByRooms(ctx context.Context, roomIDs []string) (map[string][]string, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.OccupantsByRooms")
	defer scope.End()

	occupants := make(map[string][]string, len(roomIDs))
	if len(roomIDs) == 0 {
		return occupants, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (?) ORDER BY occupied_at", model.FieldRoomID, model.FieldUserID, model.OccupantsTableName, model.FieldRoomID),
		roomIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build occupants query: %w", err)
	}

	query = repo.db.Read.Rebind(query)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var rows []model.Occupant

	if err := repo.db.Read.SelectContext(ctx, &rows, query, args...); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list occupants: %w", err)
	}

	for _, row := range rows {
		occupants[row.RoomID] = append(occupants[row.RoomID], row.UserID)
	}

	return occupants, nil
}

func (repo *repositoryImpl) AddOccupantTx(ctx context.Context, tx *sqlx.Tx, occupant model.Occupant) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.AddOccupantTx")
	defer scope.End()

	query := fmt.Sprintf("INSERT INTO %s (room_id, user_id, occupied_at) VALUES (:room_id, :user_id, :occupied_at)", model.OccupantsTableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err := tx.NamedExecContext(ctx, query, occupant); err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to add occupant: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) RemoveOccupantTx(ctx context.Context, tx *sqlx.Tx, roomID, userID string) (int64, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.RemoveOccupantTx")
	defer scope.End()

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2", model.OccupantsTableName, model.FieldRoomID, model.FieldUserID)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := tx.ExecContext(ctx, query, roomID, userID)
	if err != nil {
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to remove occupant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}

func (repo *repositoryImpl) Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.Transact")
	defer scope.End()

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorWithStack(rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
