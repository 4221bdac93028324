package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/playback-gate/internal/domain"
)

// Publisher delivers domain events to the notification topic.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// API is the subset of the SNS client used by the publisher.
type API interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   API
	topicARN string
}

// NewPublisher returns a Publisher for topicARN. With an empty ARN events are
// only logged.
func NewPublisher(client API, topicARN string) Publisher {
	if topicARN == "" || client == nil {
		return noopPublisher{}
	}
	return &publisher{client: client, topicARN: topicARN}
}

// NewClient builds an SNS client from a shared AWS config, honoring the
// LocalStack endpoint when set.
func NewClient(awsCfg aws.Config, region, endpoint string) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if region != "" {
			o.Region = region
		}
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func (p *publisher) Publish(ctx context.Context, ev domain.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, ev domain.Event) error {
	slog.Debug("event publishing disabled", "type", ev.Type)
	return nil
}
