package data

import "time"

type MaintenanceRequestDTO struct {
	PK             string        `dynamodbav:"PK"`
	SK             string        `dynamodbav:"SK"`
	FirstIndex     string        `dynamodbav:"GS1-PK"`
	BranchCode     string        `dynamodbav:"branchCode"`
	SubmittedBy    string        `dynamodbav:"submittedBy"`
	Title          string        `dynamodbav:"title"`
	Description    string        `dynamodbav:"description"`
	Category       *string       `dynamodbav:"category"`
	Status         RequestStatus `dynamodbav:"status"`
	ImageUrl       *string       `dynamodbav:"imageUrl"`
	Rating         *int          `dynamodbav:"rating"`
	Feedback       *string       `dynamodbav:"feedback"`
	ResolutionNote *string       `dynamodbav:"resolutionNote"`
	Timestamp      time.Time     `dynamodbav:"timestamp,unixtime"`
	UpdateTime     time.Time     `dynamodbav:"updateTime,unixtime"`
}

type MaintenanceRequestInputDTO struct {
	SubmittedBy    *string        `dynamodbav:"submittedBy"`
	Title          *string        `dynamodbav:"title"`
	Description    *string        `dynamodbav:"description"`
	Category       *string        `dynamodbav:"category"`
	Status         *RequestStatus `dynamodbav:"status"`
	ImageUrl       *string        `dynamodbav:"imageUrl"`
	Rating         *int           `dynamodbav:"rating"`
	Feedback       *string        `dynamodbav:"feedback"`
	ResolutionNote *string        `dynamodbav:"resolutionNote"`
}

type RequestRepository interface {
	Repository[MaintenanceRequestDTO, MaintenanceRequestInputDTO]

	// ListAll pages over every branch's requests, newest partitions
	// served by the first global index.
	ListAll(params QueryParams) (QueryResults[MaintenanceRequestDTO], error)

	// ListCompletedBefore pages over requests with status COMPLETED
	// created strictly before the cutoff.
	ListCompletedBefore(cutoff time.Time, params QueryParams) (QueryResults[MaintenanceRequestDTO], error)
}
