// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport delivers follow-up mail through SES.
type SESTransport struct {
	client SESAPI
	source string
}

func NewSESTransport(client SESAPI, fromEmail, fromName string) *SESTransport {
	source := fromEmail
	if fromName != "" {
		source = fmt.Sprintf("%q <%s>", fromName, fromEmail)
	}
	return &SESTransport{client: client, source: source}
}

// Send returns the SES message id. SDK errors are wrapped, not replaced, so
// callers can still inspect the API error code.
func (t *SESTransport) Send(ctx context.Context, msg models.EmailMessage) (string, error) {
	body := &types.Body{
		Html: &types.Content{Data: awssdk.String(msg.HTMLBody), Charset: awssdk.String("UTF-8")},
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: awssdk.String(msg.TextBody), Charset: awssdk.String("UTF-8")}
	}

	out, err := t.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(t.source),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(msg.Subject), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
