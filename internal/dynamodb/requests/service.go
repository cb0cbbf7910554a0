package requests

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/dynamodb/services"
	"storefix.io/maintenance/internal/dynamodb/token"
)

const EntityName = "Request"

type RequestDynamoDBService struct {
	services.RepositoryDynamoDBService[data.MaintenanceRequestDTO, data.MaintenanceRequestInputDTO]
}

func NewRequestService(tableName string, indexName string, client dynamodb.Client, marshaler token.TokenMarshaler) data.RequestRepository {
	return &RequestDynamoDBService{
		RepositoryDynamoDBService: services.RepositoryDynamoDBService[data.MaintenanceRequestDTO, data.MaintenanceRequestInputDTO]{
			DynamoDB:       client,
			TableName:      tableName,
			IndexName:      indexName,
			TokenMarshaler: marshaler,
			Name:           EntityName,
			Shim: func(pk, sk string) data.MaintenanceRequestDTO {
				return data.MaintenanceRequestDTO{PK: pk, SK: sk}
			},
			GetSK: func(dto data.MaintenanceRequestDTO) string {
				return dto.SK
			},
			OnCreate: func(input data.MaintenanceRequestInputDTO, now time.Time, pk, sk string) data.MaintenanceRequestDTO {
				dto := data.MaintenanceRequestDTO{
					PK:          pk,
					SK:          sk,
					FirstIndex:  EntityName,
					BranchCode:  _branchOf(pk),
					Title:       *input.Title,
					Description: *input.Description,
					Category:    input.Category,
					Status:      data.StatusUnderReview,
					ImageUrl:    input.ImageUrl,
					Timestamp:   now,
					UpdateTime:  now,
				}
				if input.SubmittedBy != nil {
					dto.SubmittedBy = *input.SubmittedBy
				}
				return dto
			},
			OnUpdate: func(input data.MaintenanceRequestInputDTO, update *expression.UpdateBuilder) {
				// branchCode, imageUrl and timestamp are write-once.
				if input.Status != nil {
					*update = update.Set(expression.Name("status"), expression.Value(input.Status))
				}
				if input.Rating != nil {
					*update = update.Set(expression.Name("rating"), expression.Value(input.Rating))
				}
				if input.Feedback != nil {
					*update = update.Set(expression.Name("feedback"), expression.Value(input.Feedback))
				}
				if input.ResolutionNote != nil {
					*update = update.Set(expression.Name("resolutionNote"), expression.Value(input.ResolutionNote))
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

func (rs *RequestDynamoDBService) ListAll(params data.QueryParams) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	return rs.ListByIndex(services.IndexQuery{}, params)
}

func (rs *RequestDynamoDBService) ListCompletedBefore(cutoff time.Time, params data.QueryParams) (data.QueryResults[data.MaintenanceRequestDTO], error) {
	completed := expression.Name("status").Equal(expression.Value(data.StatusCompleted))
	return rs.ListByIndex(services.IndexQuery{
		Before: &cutoff,
		Filter: &completed,
	}, params)
}
