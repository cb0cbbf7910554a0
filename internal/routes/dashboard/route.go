package dashboard

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/util"
)

type Summary struct {
	TotalRequests int            `json:"totalRequests"`
	ByStatus      map[string]int `json:"byStatus"`
	ByBranch      map[string]int `json:"byBranch"`
	OpenRequests  int            `json:"openRequests"`
}

type DashboardService struct {
	data data.RequestRepository
}

func NewRoute(data data.RequestRepository) routes.Service {
	return &DashboardService{
		data: data,
	}
}

func (ds *DashboardService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/dashboard": util.ManagerRoute(ds.GetSummary),
	}
}

// GetSummary pages the whole request collection and rolls counts up by
// status and by branch for the triage dashboard.
func (ds *DashboardService) GetSummary(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	summary := Summary{
		ByStatus: make(map[string]int),
		ByBranch: make(map[string]int),
	}
	params := data.QueryParams{Limit: 100}
	for {
		page, err := ds.data.ListAll(params)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		for _, dto := range page.Items {
			summary.TotalRequests++
			summary.ByStatus[string(dto.Status)]++
			summary.ByBranch[dto.BranchCode]++
			if !dto.Status.Terminal() {
				summary.OpenRequests++
			}
		}
		if page.NextToken == "" {
			break
		}
		params.NextToken = page.NextToken
	}
	return util.SerializeResponseOK(util.IdentityThunk[Summary], summary, nil)
}
