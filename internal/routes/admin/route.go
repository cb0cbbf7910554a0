package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"storefix.io/maintenance/internal/exceptions"
	"storefix.io/maintenance/internal/retention"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/util"
)

// DefaultCleanupFallbackDays fills in daysOld when a "requests" cleanup
// body omits it. It is NOT the engine's own default (30): the boundary
// has always fallen back to 7 here, and whether that override was ever
// intentional is unresolved, so both constants stay, named apart, until
// someone settles it. TestCleanupDefaultsDiverge pins the behavior.
const DefaultCleanupFallbackDays = 7

type AdminService struct {
	engine *retention.Engine
}

func NewRoute(engine *retention.Engine) routes.Service {
	return &AdminService{
		engine: engine,
	}
}

func (as *AdminService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/admin/storage":  util.ManagerRoute(as.GetStorageStatistics),
		"POST:/admin/cleanup": util.ManagerRoute(as.RunCleanup),
	}
}

func (as *AdminService) GetStorageStatistics(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	stats, err := as.engine.GetStorageStatistics()
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InternalServer(fmt.Sprintf("Failed to aggregate storage statistics: %s", err))
	}
	return util.SerializeResponseOK(util.IdentityThunk[retention.StorageStatistics], stats, nil)
}

func (as *AdminService) RunCleanup(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := CleanupInput{}
	if err := json.Unmarshal([]byte(event.Body), &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(err.Error())
	}
	if input.Type == nil {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("A cleanup type is required.")
	}
	switch *input.Type {
	case CleanupTypeRequests:
		daysOld := DefaultCleanupFallbackDays
		if input.DaysOld != nil {
			daysOld = *input.DaysOld
		}
		if daysOld <= 0 {
			return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("daysOld must be a positive number of days.")
		}
		result := as.engine.SweepCompletedRequests(daysOld)
		return util.SerializeResponseOK(util.IdentityThunk[retention.RequestSweepResult], result, nil)
	case CleanupTypeFull:
		// daysOld is deliberately ignored for full sweeps; the engine
		// runs both collections at its own defaults.
		result := as.engine.RunFullSweep()
		return util.SerializeResponseOK(util.IdentityThunk[retention.FullSweepResult], result, nil)
	default:
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput(fmt.Sprintf("Unknown cleanup type: %s", *input.Type))
	}
}
