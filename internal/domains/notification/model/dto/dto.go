package dto

import (
	"github.com/google/uuid"

	"hostel/internal/domains/notification/model"
	"hostel/shared"
	gDto "hostel/shared/dto"
	gModel "hostel/shared/model"
	"hostel/shared/timezone"
)

// Event is the value object emitted after each committed state change.
// Delivery is best-effort and never feeds back into the triggering operation.
type Event struct {
	RecipientUserID string `json:"recipient_user_id" validate:"required"`
	Title           string `json:"title"             validate:"required,max=200"`
	Message         string `json:"message"           validate:"required"`
	Category        string `json:"category"          validate:"required,oneof=info success warning error"`
}

func (e *Event) ToModel() model.Notification {
	return model.Notification{
		ID:       uuid.NewString(),
		UserID:   e.RecipientUserID,
		Title:    e.Title,
		Message:  e.Message,
		Category: e.Category,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  e.RecipientUserID,
			ModifiedBy: e.RecipientUserID,
		},
	}
}

type NotificationResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Read     bool   `json:"read"`
	gDto.Metadata
}

func (r *NotificationResponse) FromModel(model model.Notification) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.Title = model.Title
	r.Message = model.Message
	r.Category = model.Category
	r.Read = model.Read
	r.Metadata.FromModel(model.Metadata)
}

type GetNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	TotalPage     int                    `json:"total_page"`
	TotalData     int                    `json:"total_data"`
}

func (r *GetNotificationsResponse) FromModels(models []model.Notification, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Notifications = make([]NotificationResponse, len(models))
	for i, mod := range models {
		r.Notifications[i].FromModel(mod)
	}
}
