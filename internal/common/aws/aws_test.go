// internal/common/aws/aws_test.go
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"applysync/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockS3Service struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *MockS3Service) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.PutObjectFunc(ctx, params, optFns...)
}

type MockPresigner struct {
	PresignGetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

func (m *MockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return m.PresignGetObjectFunc(ctx, params, optFns...)
}

type MockLambdaService struct {
	InvokeFunc func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

func (m *MockLambdaService) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	return m.InvokeFunc(ctx, params, optFns...)
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// S3
// ==========================

func TestS3Store_ObjectKey(t *testing.T) {
	store := NewS3Store(nil, nil, "bucket", "cvs/")
	store.now = func() time.Time { return time.UnixMilli(1700000000123) }

	assert.Equal(t, "cvs/1700000000123-Jane_Doe_CV.pdf", store.ObjectKey("Jane  Doe\tCV.pdf"))
}

func TestS3Store_Store(t *testing.T) {
	var captured *s3.PutObjectInput
	mock := &MockS3Service{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			captured = params
			return &s3.PutObjectOutput{}, nil
		},
	}
	store := NewS3Store(mock, nil, "applications", "cvs/")
	store.now = func() time.Time { return time.UnixMilli(42) }

	key, err := store.Store(context.Background(), []byte("%PDF"), "application/pdf", models.ArtifactMetadata{
		OriginalName:  "my cv.pdf",
		ApplicantName: "Jane Doe",
	})

	require.NoError(t, err)
	assert.Equal(t, "cvs/42-my_cv.pdf", key)
	require.NotNil(t, captured)
	assert.Equal(t, "applications", awssdk.ToString(captured.Bucket))
	assert.Equal(t, "application/pdf", awssdk.ToString(captured.ContentType))
	assert.Equal(t, "Jane Doe", captured.Metadata["applicantName"])
	body, _ := io.ReadAll(captured.Body)
	assert.Equal(t, "%PDF", string(body))
}

func TestS3Store_StoreError(t *testing.T) {
	mock := &MockS3Service{
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}
	store := NewS3Store(mock, nil, "b", "cvs/")

	_, err := store.Store(context.Background(), nil, "application/pdf", models.ArtifactMetadata{OriginalName: "a.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3Store_SignedURL(t *testing.T) {
	var expires time.Duration
	presigner := &MockPresigner{
		PresignGetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			opts := &s3.PresignOptions{}
			for _, fn := range optFns {
				fn(opts)
			}
			expires = opts.Expires
			return &v4.PresignedHTTPRequest{URL: "https://signed/" + awssdk.ToString(params.Key)}, nil
		},
	}
	store := NewS3Store(nil, presigner, "b", "cvs/")

	url, err := store.SignedURL(context.Background(), "cvs/1-a.pdf", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://signed/cvs/1-a.pdf", url)
	assert.Equal(t, 604800*time.Second, expires)
}

// ==========================
// Lambda
// ==========================

func TestDecodeParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		education int
		personal  int
	}{
		{
			name:      "object body",
			payload:   `{"statusCode":200,"body":{"personal_info":{"name":"Jane"},"education":["BSc CS"],"qualifications":[],"projects":[]}}`,
			education: 1,
			personal:  1,
		},
		{
			name:      "string body",
			payload:   `{"statusCode":200,"body":"{\"education\":[\"BSc\",\"MSc\"]}"}`,
			education: 2,
		},
		{
			name:      "bare fields",
			payload:   `{"education":["BSc"],"projects":["p1"]}`,
			education: 1,
		},
		{
			name:    "error in body",
			payload: `{"statusCode":500,"body":{"error":"cannot read pdf"}}`,
			wantErr: true,
		},
		{
			name:    "top level error",
			payload: `{"error":"boom"}`,
			wantErr: true,
		},
		{
			name:    "non 200 status",
			payload: `{"statusCode":502,"body":{}}`,
			wantErr: true,
		},
		{
			name:    "malformed",
			payload: `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeParseResponse([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got.Education, tt.education)
			assert.Len(t, got.PersonalInfo, tt.personal)
			assert.NotNil(t, got.Qualifications)
			assert.NotNil(t, got.Projects)
		})
	}
}

func TestLambdaParser_Parse(t *testing.T) {
	var captured *lambda.InvokeInput
	mock := &MockLambdaService{
		InvokeFunc: func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			captured = params
			return &lambda.InvokeOutput{
				StatusCode: 200,
				Payload:    []byte(`{"statusCode":200,"body":{"education":["BSc CS"]}}`),
			}, nil
		},
	}
	parser := NewLambdaParser(mock, "cv-parser", "applications")

	got, err := parser.Parse(context.Background(), "cvs/1-a.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"BSc CS"}, got.Education)

	require.NotNil(t, captured)
	assert.Equal(t, types.InvocationTypeRequestResponse, captured.InvocationType)
	var req map[string]string
	require.NoError(t, json.Unmarshal(captured.Payload, &req))
	assert.Equal(t, map[string]string{"s3Bucket": "applications", "s3Key": "cvs/1-a.pdf", "fileType": "application/pdf"}, req)
}

func TestLambdaParser_FunctionError(t *testing.T) {
	mock := &MockLambdaService{
		InvokeFunc: func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			return &lambda.InvokeOutput{
				StatusCode:    200,
				FunctionError: awssdk.String("Unhandled"),
				Payload:       []byte(`{"errorMessage":"Task timed out"}`),
			}, nil
		},
	}
	parser := NewLambdaParser(mock, "cv-parser", "b")

	_, err := parser.Parse(context.Background(), "k", "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unhandled")
}

func TestLambdaDispatcher_Dispatch(t *testing.T) {
	var captured *lambda.InvokeInput
	mock := &MockLambdaService{
		InvokeFunc: func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			captured = params
			return &lambda.InvokeOutput{StatusCode: 202}, nil
		},
	}
	d := NewLambdaDispatcher(mock, "email-scheduler")

	err := d.Dispatch(context.Background(), models.FollowUpInvocation{RecipientEmail: "a@b.com", RecipientName: "A"})
	require.NoError(t, err)
	assert.Equal(t, types.InvocationTypeEvent, captured.InvocationType)
	assert.Equal(t, "email-scheduler", awssdk.ToString(captured.FunctionName))
	assert.JSONEq(t, `{"recipientEmail":"a@b.com","recipientName":"A"}`, string(captured.Payload))
}

func TestLambdaDispatcher_Error(t *testing.T) {
	mock := &MockLambdaService{
		InvokeFunc: func(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	err := NewLambdaDispatcher(mock, "fn").Dispatch(context.Background(), models.FollowUpInvocation{})
	assert.ErrorContains(t, err, "throttled")
}

// ==========================
// SNS / SES
// ==========================

func TestSNSDispatcher_Dispatch(t *testing.T) {
	var captured *sns.PublishInput
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{MessageId: awssdk.String("m-1")}, nil
		},
	}
	d := NewSNSDispatcher(mock, "arn:aws:sns:us-east-1:1:followup")

	err := d.Dispatch(context.Background(), models.FollowUpInvocation{RecipientEmail: "a@b.com", RecipientName: "A"})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:us-east-1:1:followup", awssdk.ToString(captured.TopicArn))
	assert.JSONEq(t, `{"recipientEmail":"a@b.com","recipientName":"A"}`, awssdk.ToString(captured.Message))
	assert.Equal(t, "a@b.com", awssdk.ToString(captured.MessageAttributes["recipientEmail"].StringValue))
}

func TestSESTransport_Send(t *testing.T) {
	var captured *ses.SendEmailInput
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: awssdk.String("ses-123")}, nil
		},
	}
	tr := NewSESTransport(mock, "noreply@example.com", "Recruiting")

	id, err := tr.Send(context.Background(), models.EmailMessage{To: "a@b.com", Subject: "Hi", HTMLBody: "<p>Hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "ses-123", id)
	assert.Equal(t, `"Recruiting" <noreply@example.com>`, awssdk.ToString(captured.Source))
	assert.Equal(t, []string{"a@b.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Hi", awssdk.ToString(captured.Message.Subject.Data))
	assert.Nil(t, captured.Message.Body.Text)
}

func TestSESTransport_WrapsError(t *testing.T) {
	sentinel := errors.New("signature expired")
	mock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, sentinel
		},
	}
	_, err := NewSESTransport(mock, "noreply@example.com", "").Send(context.Background(), models.EmailMessage{To: "a@b.com"})
	assert.ErrorIs(t, err, sentinel)
}
