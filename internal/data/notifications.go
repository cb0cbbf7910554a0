package data

import "time"

type NotificationType string

const (
	NotificationNewRequest   NotificationType = "new_request"
	NotificationStatusUpdate NotificationType = "status_update"
	NotificationSystem       NotificationType = "system"
)

type NotificationDTO struct {
	PK           string           `dynamodbav:"PK"`
	SK           string           `dynamodbav:"SK"`
	FirstIndex   string           `dynamodbav:"GS1-PK"`
	BranchCode   string           `dynamodbav:"branchCode"`
	Title        string           `dynamodbav:"title"`
	Message      string           `dynamodbav:"message"`
	Type         NotificationType `dynamodbav:"type"`
	Read         bool             `dynamodbav:"read"`
	IsForManager bool             `dynamodbav:"isForManager"`
	Timestamp    time.Time        `dynamodbav:"timestamp,unixtime"`
	UpdateTime   time.Time        `dynamodbav:"updateTime,unixtime"`
}

type NotificationInputDTO struct {
	Title        *string           `dynamodbav:"title"`
	Message      *string           `dynamodbav:"message"`
	Type         *NotificationType `dynamodbav:"type"`
	Read         *bool             `dynamodbav:"read"`
	IsForManager *bool             `dynamodbav:"isForManager"`
}

type NotificationRepository interface {
	Repository[NotificationDTO, NotificationInputDTO]

	ListAll(params QueryParams) (QueryResults[NotificationDTO], error)

	// ListCreatedBefore pages over notifications created strictly
	// before the cutoff, read or not.
	ListCreatedBefore(cutoff time.Time, params QueryParams) (QueryResults[NotificationDTO], error)
}
