package requests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/exceptions"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/util"
)

type RequestService struct {
	data data.RequestRepository
}

func NewRoute(data data.RequestRepository) routes.Service {
	return &RequestService{
		data: data,
	}
}

func (rs *RequestService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"POST:/requests":                     util.AuthorizedRoute(rs.CreateRequest),
		"GET:/requests":                      util.AuthorizedRoute(rs.ListRequests),
		"GET:/requests/all":                  util.ManagerRoute(rs.ListAllRequests),
		"GET:/requests/:requestId":           util.AuthorizedRoute(rs.GetRequest),
		"POST:/requests/:requestId/status":   util.ManagerRoute(rs.UpdateStatus),
		"POST:/requests/:requestId/cancel":   util.AuthorizedRoute(rs.CancelRequest),
		"POST:/requests/:requestId/feedback": util.AuthorizedRoute(rs.SubmitFeedback),
	}
}

// Managers locate documents across branches; everyone else is pinned
// to their own branch partition.
func _branchScope(event events.APIGatewayV2HTTPRequest, ctx context.Context) string {
	if util.IsManager(ctx) {
		if branch, ok := event.QueryStringParameters["branch"]; ok {
			return branch
		}
	}
	return util.BranchCode(ctx)
}

func (rs *RequestService) CreateRequest(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := MaintenanceRequestInput{}
	if err := json.Unmarshal([]byte(event.Body), &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(err.Error())
	}
	if input.Title == nil || input.Description == nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("Both title and description are required.")
	}
	created, err := rs.data.Create(util.BranchCode(ctx), input.ToData(util.Username(ctx)))
	return util.SerializeResponseOK(NewMaintenanceRequest, created, err)
}

func (rs *RequestService) ListRequests(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.ParseQueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	items, err := rs.data.List(util.BranchCode(ctx), params)
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(NewMaintenanceRequest), items, err)
}

func (rs *RequestService) ListAllRequests(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.ParseQueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	items, err := rs.data.ListAll(params)
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(NewMaintenanceRequest), items, err)
}

func (rs *RequestService) GetRequest(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	item, err := rs.data.Get(_branchScope(event, ctx), util.RequestParam(ctx, "requestId"))
	return util.SerializeResponseOK(NewMaintenanceRequest, item, err)
}

func (rs *RequestService) UpdateStatus(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := StatusInput{}
	if err := json.Unmarshal([]byte(event.Body), &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(err.Error())
	}
	if input.Status == nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("A target status is required.")
	}
	next := data.RequestStatus(*input.Status)
	if !next.Valid() {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(fmt.Sprintf("Unknown status: %s", *input.Status))
	}
	branchCode := _branchScope(event, ctx)
	requestId := util.RequestParam(ctx, "requestId")
	current, err := rs.data.Get(branchCode, requestId)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if !current.Status.CanTransition(next) {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(fmt.Sprintf("Cannot move a %s request to %s", current.Status, next))
	}
	item, err := rs.data.Update(branchCode, requestId, data.MaintenanceRequestInputDTO{
		Status:         &next,
		ResolutionNote: input.ResolutionNote,
	})
	return util.SerializeResponseOK(NewMaintenanceRequest, item, err)
}

func (rs *RequestService) CancelRequest(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	branchCode := util.BranchCode(ctx)
	requestId := util.RequestParam(ctx, "requestId")
	current, err := rs.data.Get(branchCode, requestId)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if !current.Status.CanCancel() {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(fmt.Sprintf("A %s request can no longer be cancelled", current.Status))
	}
	cancelled := data.StatusCancelled
	item, err := rs.data.Update(branchCode, requestId, data.MaintenanceRequestInputDTO{
		Status: &cancelled,
	})
	return util.SerializeResponseOK(NewMaintenanceRequest, item, err)
}

func (rs *RequestService) SubmitFeedback(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := FeedbackInput{}
	if err := json.Unmarshal([]byte(event.Body), &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(err.Error())
	}
	if input.Rating == nil || *input.Rating < 1 || *input.Rating > 5 {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("A rating between 1 and 5 is required.")
	}
	branchCode := util.BranchCode(ctx)
	requestId := util.RequestParam(ctx, "requestId")
	current, err := rs.data.Get(branchCode, requestId)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if current.Status != data.StatusCompleted {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("Feedback is only accepted on completed requests.")
	}
	if current.Rating != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.Conflict("feedback", requestId)
	}
	item, err := rs.data.Update(branchCode, requestId, data.MaintenanceRequestInputDTO{
		Rating:   input.Rating,
		Feedback: input.Feedback,
	})
	return util.SerializeResponseOK(NewMaintenanceRequest, item, err)
}
