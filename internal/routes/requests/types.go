package requests

import (
	"time"

	"storefix.io/maintenance/internal/data"
)

type MaintenanceRequestInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	ImageUrl    *string `json:"imageUrl"`
}

func (r *MaintenanceRequestInput) ToData(submitter string) data.MaintenanceRequestInputDTO {
	return data.MaintenanceRequestInputDTO{
		SubmittedBy: &submitter,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		ImageUrl:    r.ImageUrl,
	}
}

type StatusInput struct {
	Status         *string `json:"status"`
	ResolutionNote *string `json:"resolutionNote"`
}

type FeedbackInput struct {
	Rating   *int    `json:"rating"`
	Feedback *string `json:"feedback"`
}

type MaintenanceRequest struct {
	Id             string    `json:"requestId"`
	BranchCode     string    `json:"branchCode"`
	SubmittedBy    string    `json:"submittedBy"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       *string   `json:"category"`
	Status         string    `json:"status"`
	ImageUrl       *string   `json:"imageUrl"`
	Rating         *int      `json:"rating"`
	Feedback       *string   `json:"feedback"`
	ResolutionNote *string   `json:"resolutionNote"`
	Timestamp      time.Time `json:"timestamp"`
	UpdateTime     time.Time `json:"updateTime"`
}

func NewMaintenanceRequest(dto data.MaintenanceRequestDTO) MaintenanceRequest {
	return MaintenanceRequest{
		Id:             dto.SK,
		BranchCode:     dto.BranchCode,
		SubmittedBy:    dto.SubmittedBy,
		Title:          dto.Title,
		Description:    dto.Description,
		Category:       dto.Category,
		Status:         string(dto.Status),
		ImageUrl:       dto.ImageUrl,
		Rating:         dto.Rating,
		Feedback:       dto.Feedback,
		ResolutionNote: dto.ResolutionNote,
		Timestamp:      dto.Timestamp,
		UpdateTime:     dto.UpdateTime,
	}
}
