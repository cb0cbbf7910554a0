package notifications

import (
	"time"

	"storefix.io/maintenance/internal/data"
)

type Notification struct {
	Id           string    `json:"notificationId"`
	BranchCode   string    `json:"branchCode"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	Read         bool      `json:"read"`
	IsForManager bool      `json:"isForManager"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewNotification(dto data.NotificationDTO) Notification {
	return Notification{
		Id:           dto.SK,
		BranchCode:   dto.BranchCode,
		Title:        dto.Title,
		Message:      dto.Message,
		Type:         string(dto.Type),
		Read:         dto.Read,
		IsForManager: dto.IsForManager,
		Timestamp:    dto.Timestamp,
	}
}
