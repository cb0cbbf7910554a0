package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"storefix.io/maintenance/internal/retention"
)

type AlertSNSService struct {
	Sns      sns.Client
	TopicArn string
}

func (a *AlertSNSService) PublishSweepSummary(result retention.FullSweepResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Retention sweep removed %d documents", result.TotalDeleted)
	if !result.Requests.Success || !result.Notifications.Success {
		subject = "Retention sweep finished with failures"
	}
	_, err = a.Sns.Publish(context.TODO(), &sns.PublishInput{
		TopicArn: aws.String(a.TopicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	return err
}
