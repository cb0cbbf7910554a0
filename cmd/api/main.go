package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	notificationData "storefix.io/maintenance/internal/dynamodb/notifications"
	requestData "storefix.io/maintenance/internal/dynamodb/requests"
	"storefix.io/maintenance/internal/dynamodb/token"
	"storefix.io/maintenance/internal/images/hosted"
	"storefix.io/maintenance/internal/retention"
	"storefix.io/maintenance/internal/routes"
	"storefix.io/maintenance/internal/routes/admin"
	"storefix.io/maintenance/internal/routes/dashboard"
	"storefix.io/maintenance/internal/routes/notifications"
	"storefix.io/maintenance/internal/routes/requests"
)

type App struct {
	Router routes.Router
}

func NewApp() App {
	tableName := os.Getenv("TABLE_NAME")
	indexName := os.Getenv("INDEX_NAME_1")
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic("Failed to load AWS config.")
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to build the logger.")
	}
	client := dynamodb.NewFromConfig(cfg)
	marshaler := token.NewGCM()
	requestRepo := requestData.NewRequestService(tableName, indexName, *client, marshaler)
	notificationRepo := notificationData.NewNotificationService(tableName, indexName, *client, marshaler)
	engine := retention.NewEngine(requestRepo, notificationRepo, hosted.NewDefaultClient(), logger)
	router := routes.NewRouter(
		requests.NewRoute(requestRepo),
		notifications.NewRoute(notificationRepo),
		dashboard.NewRoute(requestRepo),
		admin.NewRoute(engine),
	)
	return App{
		Router: *router,
	}
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	app := NewApp()
	lambda.Start(app.HandleRequest)
}
