// internal/common/aws/lambda.go
package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI is the subset of the Lambda client used here.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaParser invokes the document parser function synchronously.
type LambdaParser struct {
	client   LambdaAPI
	function string
	bucket   string
}

func NewLambdaParser(client LambdaAPI, function, bucket string) *LambdaParser {
	return &LambdaParser{client: client, function: function, bucket: bucket}
}

type parseRequest struct {
	S3Bucket string `json:"s3Bucket"`
	S3Key    string `json:"s3Key"`
	FileType string `json:"fileType"`
}

type parseEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
	Error      string          `json:"error"`
}

type parseBody struct {
	models.ParsedDocumentFields
	Error string `json:"error"`
}

// Parse runs the parser against a stored document. A function error, a
// non-200 status or an error field anywhere in the response is a failure.
func (p *LambdaParser) Parse(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
	payload, err := json.Marshal(parseRequest{S3Bucket: p.bucket, S3Key: locator, FileType: contentType})
	if err != nil {
		return models.ParsedDocumentFields{}, fmt.Errorf("marshal parse request: %w", err)
	}

	out, err := p.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   awssdk.String(p.function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return models.ParsedDocumentFields{}, fmt.Errorf("invoke %s: %w", p.function, err)
	}
	if out.FunctionError != nil {
		return models.ParsedDocumentFields{}, fmt.Errorf("parser function %s failed (%s): %s",
			p.function, awssdk.ToString(out.FunctionError), string(out.Payload))
	}

	return DecodeParseResponse(out.Payload)
}

// DecodeParseResponse unwraps the {statusCode, body} envelope. body may be an
// object or a JSON-encoded string; a bare field object is also accepted.
func DecodeParseResponse(payload []byte) (models.ParsedDocumentFields, error) {
	var env parseEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return models.ParsedDocumentFields{}, fmt.Errorf("decode parser response: %w", err)
	}
	if env.Error != "" {
		return models.ParsedDocumentFields{}, fmt.Errorf("parser error: %s", env.Error)
	}

	body := []byte(env.Body)
	if len(bytes.TrimSpace(body)) == 0 {
		body = payload
	} else if body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return models.ParsedDocumentFields{}, fmt.Errorf("decode parser body: %w", err)
		}
		body = []byte(inner)
	}

	var parsed parseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.ParsedDocumentFields{}, fmt.Errorf("decode parser body: %w", err)
	}
	if parsed.Error != "" {
		return models.ParsedDocumentFields{}, fmt.Errorf("parser error (status %d): %s", env.StatusCode, parsed.Error)
	}
	if env.StatusCode != 0 && env.StatusCode != 200 {
		return models.ParsedDocumentFields{}, fmt.Errorf("parser returned status %d", env.StatusCode)
	}

	return parsed.ParsedDocumentFields.Normalized(), nil
}

// LambdaDispatcher hands follow-up intents to the scheduler function as an
// asynchronous Event invocation and does not wait for the outcome.
type LambdaDispatcher struct {
	client   LambdaAPI
	function string
}

func NewLambdaDispatcher(client LambdaAPI, function string) *LambdaDispatcher {
	return &LambdaDispatcher{client: client, function: function}
}

func (d *LambdaDispatcher) Dispatch(ctx context.Context, inv models.FollowUpInvocation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal follow-up invocation: %w", err)
	}

	out, err := d.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   awssdk.String(d.function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoke %s: %w", d.function, err)
	}
	// Event invocations are accepted with 202.
	if out.StatusCode != 0 && out.StatusCode != 202 {
		return fmt.Errorf("invoke %s: unexpected status %d", d.function, out.StatusCode)
	}
	return nil
}
