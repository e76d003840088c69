package model

import "hostel/shared/model"

const (
	TableName  = "notifications"
	EntityName = "notification"

	FieldID       = "id"
	FieldUserID   = "user_id"
	FieldTitle    = "title"
	FieldMessage  = "message"
	FieldCategory = "category"
	FieldRead     = "read"
)

const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"
)

type Notification struct {
	ID       string `db:"id"`
	UserID   string `db:"user_id"`
	Title    string `db:"title"`
	Message  string `db:"message"`
	Category string `db:"category"`
	Read     bool   `db:"read"`
	model.Metadata
}
