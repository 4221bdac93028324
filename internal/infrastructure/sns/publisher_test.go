package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/playback-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestPublisher_Publish(t *testing.T) {
	api := new(mockAPI)
	var got *sns.PublishInput
	api.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{}, nil)

	ev := domain.Event{
		Type:       domain.EventAdHandOff,
		OccurredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"reason": "skipped"},
	}
	require.NoError(t, NewPublisher(api, "arn:aws:sns:us-east-1:000000000000:events").Publish(context.Background(), ev))

	require.NotNil(t, got)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:events", aws.ToString(got.TopicArn))
	assert.Equal(t, domain.EventAdHandOff, aws.ToString(got.MessageAttributes["event_type"].StringValue))

	var decoded domain.Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(got.Message)), &decoded))
	assert.Equal(t, "skipped", decoded.Attributes["reason"])
}

func TestPublisher_PublishError(t *testing.T) {
	api := new(mockAPI)
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("topic does not exist"))

	err := NewPublisher(api, "arn").Publish(context.Background(), domain.Event{Type: domain.EventViewerVerified})
	assert.ErrorContains(t, err, "publish viewer.verified")
}

func TestPublisher_NoTopicIsNoop(t *testing.T) {
	api := new(mockAPI)
	p := NewPublisher(api, "")
	assert.NoError(t, p.Publish(context.Background(), domain.Event{Type: domain.EventViewerVerified}))
	api.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
