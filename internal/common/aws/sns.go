// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSDispatcher publishes follow-up intents to a topic the scheduler
// subscribes to.
type SNSDispatcher struct {
	client   SNSAPI
	topicARN string
}

func NewSNSDispatcher(client SNSAPI, topicARN string) *SNSDispatcher {
	return &SNSDispatcher{client: client, topicARN: topicARN}
}

func (d *SNSDispatcher) Dispatch(ctx context.Context, inv models.FollowUpInvocation) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal follow-up invocation: %w", err)
	}

	_, err = d.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(d.topicARN),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipientEmail": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(inv.RecipientEmail),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", d.topicARN, err)
	}
	return nil
}
