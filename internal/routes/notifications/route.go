package notifications

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/util"
)

type NotificationService struct {
	data data.NotificationRepository
}

func NewRoute(data data.NotificationRepository) routes.Service {
	return &NotificationService{
		data: data,
	}
}

func (ns *NotificationService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/notifications":                       util.AuthorizedRoute(ns.ListNotifications),
		"POST:/notifications/:notificationId/read": util.AuthorizedRoute(ns.MarkRead),
	}
}

// The manager bell aggregates manager-directed notifications across
// every branch; a branch feed carries only its own, minus the
// manager-directed ones.
func (ns *NotificationService) ListNotifications(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.ParseQueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	var items data.QueryResults[data.NotificationDTO]
	if util.IsManager(ctx) {
		items, err = ns.data.ListAll(params)
	} else {
		items, err = ns.data.List(util.BranchCode(ctx), params)
		if err == nil {
			branchItems := make([]data.NotificationDTO, 0, len(items.Items))
			for _, dto := range items.Items {
				if !dto.IsForManager {
					branchItems = append(branchItems, dto)
				}
			}
			items.Items = branchItems
		}
	}
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(NewNotification), items, err)
}

func (ns *NotificationService) MarkRead(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	branchCode := util.BranchCode(ctx)
	if util.IsManager(ctx) {
		if branch, ok := event.QueryStringParameters["branch"]; ok {
			branchCode = branch
		}
	}
	read := true
	item, err := ns.data.Update(branchCode, util.RequestParam(ctx, "notificationId"), data.NotificationInputDTO{
		Read: &read,
	})
	return util.SerializeResponseOK(NewNotification, item, err)
}
