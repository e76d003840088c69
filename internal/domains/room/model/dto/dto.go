package dto

import (
	"mime/multipart"

	"github.com/google/uuid"

	"hostel/internal/domains/room/model"
	"hostel/shared"
	gDto "hostel/shared/dto"
	gModel "hostel/shared/model"
	"hostel/shared/timezone"
)

type CreateRoomRequest struct {
	RoomNumber string                `json:"room_number" validate:"required,max=20"`
	Floor      int                   `json:"floor"       validate:"min=0"`
	Type       string                `json:"type"        validate:"required,oneof=Single Double Triple"`
	Capacity   int                   `json:"capacity"    validate:"required,min=1"`
	Price      float64               `json:"price"       validate:"omitempty,min=0"`
	Image      *multipart.FileHeader `json:"image"       validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=1"`
	ImageFile  multipart.File        `json:"-"`
}

func (c *CreateRoomRequest) ToModel(user string, imageURL string) model.Room {
	return model.Room{
		ID:         uuid.NewString(),
		RoomNumber: c.RoomNumber,
		Floor:      c.Floor,
		Type:       c.Type,
		Capacity:   c.Capacity,
		Price:      c.Price,
		Status:     model.StatusAvailable,
		Image:      imageURL,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type SetMaintenanceRequest struct {
	Maintenance *bool `json:"maintenance" validate:"required"`
}

type VacateRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type RoomResponse struct {
	ID          string   `json:"id"`
	RoomNumber  string   `json:"room_number"`
	Floor       int      `json:"floor"`
	Type        string   `json:"type"`
	Capacity    int      `json:"capacity"`
	Price       float64  `json:"price"`
	Status      string   `json:"status"`
	Maintenance bool     `json:"maintenance"`
	Image       string   `json:"image"`
	Occupants   []string `json:"occupants"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room, occupants []string) {
	r.ID = model.ID
	r.RoomNumber = model.RoomNumber
	r.Floor = model.Floor
	r.Type = model.Type
	r.Capacity = model.Capacity
	r.Price = model.Price
	r.Status = model.Status
	r.Maintenance = model.Maintenance
	r.Image = model.Image
	r.Occupants = occupants

	if r.Occupants == nil {
		r.Occupants = []string{}
	}

	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, occupants map[string][]string, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod, occupants[mod.ID])
	}
}
