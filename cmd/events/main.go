package main

import (
	"context"
	"fmt"
	"os"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"storefix.io/maintenance/internal/dynamodb/notifications"
	"storefix.io/maintenance/internal/dynamodb/token"
	"storefix.io/maintenance/internal/events"
)

func HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	tableName := os.Getenv("TABLE_NAME")
	indexName := os.Getenv("INDEX_NAME_1")
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}

	client := dynamodb.NewFromConfig(cfg)
	marshaler := token.NewGCM()
	notificationData := notifications.NewNotificationService(tableName, indexName, *client, marshaler)

	handlers := []events.EventFilter{
		events.DefaultNewRequestHandler(notificationData),
		events.DefaultStatusChangeHandler(notificationData),
	}

	// TODO: make a router for this
	for _, record := range event.Records {
		for _, handler := range handlers {
			if handler.Filter(record) {
				err := handler.Apply(record)
				if err != nil {
					fmt.Printf("ERROR: failed to handle %s: %v", err.Error(), record)
					break
				}
			}
		}
	}

	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
