package notifications

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/dynamodb/services"
	"storefix.io/maintenance/internal/dynamodb/token"
)

const EntityName = "Notification"

type NotificationDynamoDBService struct {
	services.RepositoryDynamoDBService[data.NotificationDTO, data.NotificationInputDTO]
}

func NewNotificationService(tableName string, indexName string, client dynamodb.Client, marshaler token.TokenMarshaler) data.NotificationRepository {
	return &NotificationDynamoDBService{
		RepositoryDynamoDBService: services.RepositoryDynamoDBService[data.NotificationDTO, data.NotificationInputDTO]{
			DynamoDB:       client,
			TableName:      tableName,
			IndexName:      indexName,
			TokenMarshaler: marshaler,
			Name:           EntityName,
			Shim: func(pk, sk string) data.NotificationDTO {
				return data.NotificationDTO{PK: pk, SK: sk}
			},
			GetSK: func(dto data.NotificationDTO) string {
				return dto.SK
			},
			OnCreate: func(input data.NotificationInputDTO, now time.Time, pk, sk string) data.NotificationDTO {
				dto := data.NotificationDTO{
					PK:         pk,
					SK:         sk,
					FirstIndex: EntityName,
					BranchCode: _branchOf(pk),
					Title:      *input.Title,
					Message:    *input.Message,
					Type:       *input.Type,
					Read:       false,
					Timestamp:  now,
					UpdateTime: now,
				}
				if input.IsForManager != nil {
					dto.IsForManager = *input.IsForManager
				}
				return dto
			},
			OnUpdate: func(input data.NotificationInputDTO, update *expression.UpdateBuilder) {
				// The only mutation a notification sees is the read flag
				// flipping to true.
				if input.Read != nil {
					*update = update.Set(expression.Name("read"), expression.Value(input.Read))
				}
			},
		},
	}
}

func _branchOf(pk string) string {
	for i := len(pk) - 1; i >= 0; i-- {
		if pk[i] == ':' {
			return pk[:i]
		}
	}
	return pk
}

func (ns *NotificationDynamoDBService) ListAll(params data.QueryParams) (data.QueryResults[data.NotificationDTO], error) {
	return ns.ListByIndex(services.IndexQuery{}, params)
}

func (ns *NotificationDynamoDBService) ListCreatedBefore(cutoff time.Time, params data.QueryParams) (data.QueryResults[data.NotificationDTO], error) {
	return ns.ListByIndex(services.IndexQuery{Before: &cutoff}, params)
}
