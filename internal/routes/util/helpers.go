package util

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"storefix.io/maintenance/internal/data"
	"storefix.io/maintenance/internal/exceptions"
	"storefix.io/maintenance/internal/routes"
)

// Identity claims resolved by the authorizer. The authorizer Lambda
// publishes them on the request context; branch users carry their
// branch code, managers additionally carry the manager flag.
func _identity(event events.APIGatewayV2HTTPRequest) (map[string]interface{}, bool) {
	if event.RequestContext.Authorizer == nil {
		return nil, false
	}
	identity, ok := event.RequestContext.Authorizer.Lambda["identity"].(map[string]interface{})
	return identity, ok
}

func AuthorizedRoute(route routes.Route) routes.Route {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
		identity, ok := _identity(event)
		if !ok {
			return events.APIGatewayV2HTTPResponse{}, exceptions.InternalServer("Unexpected internal error")
		}
		username, _ := identity["username"].(string)
		branchCode, _ := identity["branch"].(string)
		manager, _ := identity["manager"].(bool)
		if username == "" || branchCode == "" {
			return events.APIGatewayV2HTTPResponse{}, exceptions.InternalServer("Unexpected internal error")
		}
		ctx = context.WithValue(ctx, "Username", username)
		ctx = context.WithValue(ctx, "BranchCode", branchCode)
		ctx = context.WithValue(ctx, "IsManager", manager)
		return route(event, ctx)
	}
}

// ManagerRoute guards triage and admin surfaces; branch users get 403.
func ManagerRoute(route routes.Route) routes.Route {
	return AuthorizedRoute(func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
		if !IsManager(ctx) {
			return events.APIGatewayV2HTTPResponse{}, exceptions.Forbidden("Manager role required")
		}
		return route(event, ctx)
	})
}

func Username(ctx context.Context) string {
	username, _ := ctx.Value("Username").(string)
	return username
}

func BranchCode(ctx context.Context) string {
	branchCode, _ := ctx.Value("BranchCode").(string)
	return branchCode
}

func IsManager(ctx context.Context) bool {
	manager, _ := ctx.Value("IsManager").(bool)
	return manager
}

func RequestParam(ctx context.Context, name string) string {
	if params, ok := ctx.Value("Params").(map[string]string); ok {
		return params[name]
	}
	return ""
}

// ParseQueryParams pulls the shared limit/nextToken pagination controls
// off the query string.
func ParseQueryParams(event events.APIGatewayV2HTTPRequest) (data.QueryParams, error) {
	var params data.QueryParams
	if sLimit, ok := event.QueryStringParameters["limit"]; ok {
		limit, err := strconv.Atoi(sLimit)
		if err != nil {
			return params, exceptions.InvalidInput("Limit parameter was not a number type.")
		}
		params.Limit = limit
	}
	if token, ok := event.QueryStringParameters["nextToken"]; ok {
		params.NextToken = token
	}
	return params, nil
}

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func SerializeResponseNoContent(err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 204,
	}, nil
}

func IdentityThunk[T interface{}](thing T) T {
	return thing
}

func MapOnList[D interface{}, R interface{}](items *[]D, thunk func(D) R) *[]R {
	newItems := make([]R, 0)
	if items != nil {
		for _, item := range *items {
			newItems = append(newItems, thunk(item))
		}
	}
	return &newItems
}

func ConvertQueryResults[D interface{}, R interface{}](items data.QueryResults[D], thunk func(D) R) data.QueryResults[R] {
	if items.Items != nil {
		newItems := make([]R, len(items.Items))
		for i, rd := range items.Items {
			newItems[i] = thunk(rd)
		}
		return data.QueryResults[R]{
			Items:     newItems,
			NextToken: items.NextToken,
		}
	}
	return data.QueryResults[R]{
		Items: make([]R, 0),
	}
}

func ConvertQueryResultsPartial[D interface{}, R interface{}](thunk func(D) R) func(data.QueryResults[D]) data.QueryResults[R] {
	return func(d data.QueryResults[D]) data.QueryResults[R] {
		return ConvertQueryResults(d, thunk)
	}
}
