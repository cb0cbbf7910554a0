package events

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"storefix.io/maintenance/internal/data"
)

func _getRecordImage(record events.DynamoDBEventRecord) map[string]events.DynamoDBAttributeValue {
	if record.Change.NewImage != nil {
		return record.Change.NewImage
	}
	return record.Change.OldImage
}

func _isRequestRecord(record events.DynamoDBEventRecord) bool {
	image := _getRecordImage(record)
	if image == nil {
		return false
	}
	entity, ok := image["GS1-PK"]
	return ok && entity.String() == "Request"
}

// NewRequestHandler files a manager-directed notification whenever a
// branch creates a request.
type NewRequestHandler struct {
	Notifications data.NotificationRepository
}

func DefaultNewRequestHandler(notifications data.NotificationRepository) *NewRequestHandler {
	return &NewRequestHandler{
		Notifications: notifications,
	}
}

func (h *NewRequestHandler) Filter(record events.DynamoDBEventRecord) bool {
	return record.EventName == "INSERT" && _isRequestRecord(record)
}

func (h *NewRequestHandler) Apply(record events.DynamoDBEventRecord) error {
	image := record.Change.NewImage
	branchCode := image["branchCode"].String()
	notificationType := data.NotificationNewRequest
	_, err := h.Notifications.Create(branchCode, data.NotificationInputDTO{
		Title:        aws.String("New maintenance request"),
		Message:      aws.String(fmt.Sprintf("%s filed: %s", branchCode, image["title"].String())),
		Type:         &notificationType,
		IsForManager: aws.Bool(true),
	})
	return err
}

// StatusChangeHandler tells the submitting branch when a manager moves
// their request through the pipeline.
type StatusChangeHandler struct {
	Notifications data.NotificationRepository
}

func DefaultStatusChangeHandler(notifications data.NotificationRepository) *StatusChangeHandler {
	return &StatusChangeHandler{
		Notifications: notifications,
	}
}

func (h *StatusChangeHandler) Filter(record events.DynamoDBEventRecord) bool {
	if record.EventName != "MODIFY" || !_isRequestRecord(record) {
		return false
	}
	oldStatus, ok := record.Change.OldImage["status"]
	if !ok {
		return false
	}
	newStatus, ok := record.Change.NewImage["status"]
	return ok && oldStatus.String() != newStatus.String()
}

func (h *StatusChangeHandler) Apply(record events.DynamoDBEventRecord) error {
	image := record.Change.NewImage
	branchCode := image["branchCode"].String()
	notificationType := data.NotificationStatusUpdate
	_, err := h.Notifications.Create(branchCode, data.NotificationInputDTO{
		Title:        aws.String("Request status updated"),
		Message:      aws.String(fmt.Sprintf("%s is now %s", image["title"].String(), image["status"].String())),
		Type:         &notificationType,
		IsForManager: aws.Bool(false),
	})
	return err
}
