// internal/workers/application/process-application/service_test.go
package processapplication

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"applysync/internal/common/config"
	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/webhook"
	"applysync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type MockArtifactStore struct {
	StoreFunc     func(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error)
	SignedURLFunc func(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

func (m *MockArtifactStore) Store(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error) {
	return m.StoreFunc(ctx, document, contentType, meta)
}

func (m *MockArtifactStore) SignedURL(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	return m.SignedURLFunc(ctx, locator, ttl)
}

type MockParser struct {
	ParseFunc func(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error)
	calls     int
}

func (m *MockParser) Parse(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
	m.calls++
	return m.ParseFunc(ctx, locator, contentType)
}

type MockRecordSink struct {
	AppendFunc func(ctx context.Context, rec models.ApplicationRecord) error
	records    []models.ApplicationRecord
}

func (m *MockRecordSink) Name() string { return "mock" }

func (m *MockRecordSink) Append(ctx context.Context, rec models.ApplicationRecord) error {
	m.records = append(m.records, rec)
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, rec)
	}
	return nil
}

type MockNotifier struct {
	NotifyFunc func(ctx context.Context, payload webhook.Payload) error
	payloads   []webhook.Payload
}

func (m *MockNotifier) Notify(ctx context.Context, payload webhook.Payload) error {
	m.payloads = append(m.payloads, payload)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, payload)
	}
	return nil
}

type MockDispatcher struct {
	DispatchFunc func(ctx context.Context, inv models.FollowUpInvocation) error
	invocations  []models.FollowUpInvocation
}

func (m *MockDispatcher) Dispatch(ctx context.Context, inv models.FollowUpInvocation) error {
	m.invocations = append(m.invocations, inv)
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, inv)
	}
	return nil
}

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	store    *MockArtifactStore
	parser   *MockParser
	records  *MockRecordSink
	notifier *MockNotifier
	followUp *MockDispatcher
	calls    *[]string
}

func newFixture() *fixture {
	calls := &[]string{}
	f := &fixture{calls: calls}
	f.store = &MockArtifactStore{
		StoreFunc: func(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error) {
			*calls = append(*calls, "store")
			return "cvs/1704099600000-jane_cv.pdf", nil
		},
		SignedURLFunc: func(ctx context.Context, locator string, ttl time.Duration) (string, error) {
			*calls = append(*calls, "sign")
			return "https://bucket.s3.amazonaws.com/" + locator + "?sig=1", nil
		},
	}
	f.parser = &MockParser{
		ParseFunc: func(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
			*calls = append(*calls, "parse")
			return models.ParsedDocumentFields{Education: []string{"BSc CS"}}, nil
		},
	}
	f.records = &MockRecordSink{AppendFunc: func(ctx context.Context, rec models.ApplicationRecord) error {
		*calls = append(*calls, "record")
		return nil
	}}
	f.notifier = &MockNotifier{NotifyFunc: func(ctx context.Context, payload webhook.Payload) error {
		*calls = append(*calls, "notify")
		return nil
	}}
	f.followUp = &MockDispatcher{DispatchFunc: func(ctx context.Context, inv models.FollowUpInvocation) error {
		*calls = append(*calls, "follow_up")
		return nil
	}}
	return f
}

func (f *fixture) service(t *testing.T) *Service {
	svc := NewService(ServiceDependencies{
		Store:    f.store,
		Parser:   f.parser,
		Records:  f.records,
		Notifier: f.notifier,
		FollowUp: f.followUp,
		Logger:   logger.NewTestLogger(t),
	}, DefaultConfig())
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func janeSubmission() models.Submission {
	return models.Submission{
		Name:        "Jane Doe",
		Email:       "jane@x.com",
		Phone:       "5551234567",
		FileName:    "jane cv.pdf",
		Document:    []byte("%PDF-1.4"),
		ContentType: ContentTypePDF,
	}
}

// ==========================
// Orchestration Tests
// ==========================

func TestService_Process_ParsedSubmission(t *testing.T) {
	f := newFixture()
	svc := f.service(t)

	result, err := svc.Process(context.Background(), janeSubmission())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.EducationCount)
	assert.Equal(t, 0, result.Summary.QualificationsCount)
	assert.Equal(t, 0, result.Summary.ProjectsCount)
	assert.Contains(t, result.DocumentURL, "cvs/1704099600000-jane_cv.pdf")
	assert.Equal(t, []string{"store", "sign", "parse", "record", "notify", "follow_up"}, *f.calls)

	require.Len(t, f.records.records, 1)
	rec := f.records.records[0]
	assert.Equal(t, "Jane Doe", rec.Name)
	assert.Equal(t, result.DocumentURL, rec.DocumentURL)
	assert.Equal(t, []string{"BSc CS"}, rec.Education)
	assert.Equal(t, []string{}, rec.Projects)

	require.Len(t, f.followUp.invocations, 1)
	assert.Equal(t, models.FollowUpInvocation{
		RecipientEmail:  "jane@x.com",
		RecipientName:   "Jane Doe",
		ApplicationDate: "2024-01-01T09:00:00Z",
	}, f.followUp.invocations[0])
}

func TestService_Process_ParseFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.parser.ParseFunc = func(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
		return models.ParsedDocumentFields{}, stderrors.New("lambda timed out")
	}
	svc := f.service(t)

	result, err := svc.Process(context.Background(), janeSubmission())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.EducationCount)
	assert.NotEmpty(t, result.DocumentURL)

	require.Len(t, f.records.records, 1)
	assert.NotNil(t, f.records.records[0].Education)
	assert.Empty(t, f.records.records[0].Education)

	require.Len(t, f.notifier.payloads, 1)
	assert.Equal(t, "Jane Doe", f.notifier.payloads[0].CVData.PersonalInfo["name"])
	assert.Len(t, f.followUp.invocations, 1)
}

func TestService_Process_ParseFailureIsRepeatable(t *testing.T) {
	f := newFixture()
	f.parser.ParseFunc = func(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
		return models.ParsedDocumentFields{Education: []string{"partial"}}, stderrors.New("malformed response")
	}
	svc := f.service(t)

	first, err := svc.Process(context.Background(), janeSubmission())
	require.NoError(t, err)
	second, err := svc.Process(context.Background(), janeSubmission())
	require.NoError(t, err)

	assert.Equal(t, models.ParsedDataSummary{}, first.Summary)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 2, f.parser.calls)
}

func TestService_Process_StoreFailureIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name: "store write fails",
			setup: func(f *fixture) {
				f.store.StoreFunc = func(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error) {
					return "", stderrors.New("access denied")
				}
			},
		},
		{
			name: "signing fails",
			setup: func(f *fixture) {
				f.store.SignedURLFunc = func(ctx context.Context, locator string, ttl time.Duration) (string, error) {
					return "", stderrors.New("no credentials")
				}
			},
		},
		{
			name: "store panics",
			setup: func(f *fixture) {
				f.store.StoreFunc = func(ctx context.Context, document []byte, contentType string, meta models.ArtifactMetadata) (string, error) {
					panic("nil client")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			svc := f.service(t)

			result, err := svc.Process(context.Background(), janeSubmission())

			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactStoreFailed))
			assert.Zero(t, f.parser.calls)
			assert.Empty(t, f.records.records)
			assert.Empty(t, f.notifier.payloads)
			assert.Empty(t, f.followUp.invocations)
		})
	}
}

func TestService_Process_BestEffortStepsAreIndependent(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
	}{
		{
			name: "record sink fails",
			setup: func(f *fixture) {
				f.records.AppendFunc = func(ctx context.Context, rec models.ApplicationRecord) error {
					return stderrors.New("sheet unreachable")
				}
			},
		},
		{
			name: "record sink panics and mutates its input",
			setup: func(f *fixture) {
				f.records.AppendFunc = func(ctx context.Context, rec models.ApplicationRecord) error {
					rec.Education[0] = "tampered"
					panic("boom")
				}
			},
		},
		{
			name: "notifier fails",
			setup: func(f *fixture) {
				f.notifier.NotifyFunc = func(ctx context.Context, payload webhook.Payload) error {
					return stderrors.New("webhook returned 502")
				}
			},
		},
		{
			name: "dispatch fails",
			setup: func(f *fixture) {
				f.followUp.DispatchFunc = func(ctx context.Context, inv models.FollowUpInvocation) error {
					return stderrors.New("queue full")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			svc := f.service(t)

			result, err := svc.Process(context.Background(), janeSubmission())

			require.NoError(t, err)
			assert.Equal(t, 1, result.Summary.EducationCount)
			assert.Len(t, f.records.records, 1)
			require.Len(t, f.notifier.payloads, 1)
			assert.Equal(t, []string{"BSc CS"}, f.notifier.payloads[0].CVData.Education)
			assert.Len(t, f.followUp.invocations, 1)
		})
	}
}

func TestService_Process_OptionalCollaborators(t *testing.T) {
	f := newFixture()
	svc := NewService(ServiceDependencies{
		Store:  f.store,
		Parser: f.parser,
	}, nil)

	result, err := svc.Process(context.Background(), janeSubmission())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.EducationCount)
}

func TestService_Process_ParsedPersonalInfoReachesNotification(t *testing.T) {
	f := newFixture()
	f.parser.ParseFunc = func(ctx context.Context, locator, contentType string) (models.ParsedDocumentFields, error) {
		return models.ParsedDocumentFields{
			PersonalInfo: map[string]string{"email": "jane.doe@work.com", "linkedin": "in/jane"},
		}, nil
	}
	svc := f.service(t)

	result, err := svc.Process(context.Background(), janeSubmission())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.PersonalInfoFields)
	require.Len(t, f.notifier.payloads, 1)
	info := f.notifier.payloads[0].CVData.PersonalInfo
	assert.Equal(t, "jane.doe@work.com", info["email"])
	assert.Equal(t, "Jane Doe", info["name"])
	assert.Equal(t, "in/jane", info["linkedin"])
	assert.Equal(t, "jane@x.com", f.followUp.invocations[0].RecipientEmail)
}

func TestMultiSink_Append(t *testing.T) {
	ok := &MockRecordSink{}
	failing := &MockRecordSink{AppendFunc: func(ctx context.Context, rec models.ApplicationRecord) error {
		return stderrors.New("down")
	}}
	sink := NewMultiSink(failing, ok)

	err := sink.Append(context.Background(), models.ApplicationRecord{Name: "Jane"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock: down")
	assert.Len(t, ok.records, 1)
	assert.Equal(t, "mock,mock", sink.Name())
}

// ==========================
// Validation Tests
// ==========================

func TestValidateSubmission(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(s *models.Submission)
		hasFile  bool
		expected []string
	}{
		{name: "valid", modify: func(s *models.Submission) {}, hasFile: true, expected: []string{}},
		{
			name:     "blank name",
			modify:   func(s *models.Submission) { s.Name = "   " },
			hasFile:  true,
			expected: []string{msgNameRequired},
		},
		{
			name:     "bad email and short phone",
			modify:   func(s *models.Submission) { s.Email = "jane@x"; s.Phone = "555-12" },
			hasFile:  true,
			expected: []string{msgEmailInvalid, msgPhoneInvalid},
		},
		{
			name:     "formatted phone is fine",
			modify:   func(s *models.Submission) { s.Phone = "+1 (555) 123-4567" },
			hasFile:  true,
			expected: []string{},
		},
		{
			name:     "missing file",
			modify:   func(s *models.Submission) {},
			hasFile:  false,
			expected: []string{msgFileRequired},
		},
		{
			name:     "wrong file type",
			modify:   func(s *models.Submission) { s.ContentType = "image/png" },
			hasFile:  true,
			expected: []string{msgFileType},
		},
		{
			name:     "docx accepted",
			modify:   func(s *models.Submission) { s.ContentType = ContentTypeDOCX },
			hasFile:  true,
			expected: []string{},
		},
		{
			name:     "too large",
			modify:   func(s *models.Submission) { s.Document = make([]byte, 10<<20+1) },
			hasFile:  true,
			expected: []string{"File size must not exceed 10 MB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := janeSubmission()
			tt.modify(&sub)
			assert.Equal(t, tt.expected, ValidateSubmission(sub, tt.hasFile, 10<<20))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SignedURLTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxUploadBytes = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_WriteTimeoutCoversStepBudget(t *testing.T) {
	assert.Equal(t, 120*time.Second, DefaultConfig().StepBudget())

	tests := []struct {
		name         string
		writeTimeout time.Duration
		wantErr      bool
	}{
		{name: "unbounded", writeTimeout: 0},
		{name: "headroom over the budget", writeTimeout: 150 * time.Second},
		{name: "equal to the budget", writeTimeout: 120 * time.Second, wantErr: true},
		{name: "previous sixty second default", writeTimeout: 60 * time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.WriteTimeout = tt.writeTimeout
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "step budget")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromAppConfig_DefaultsPassValidation(t *testing.T) {
	appCfg := &config.Config{}
	appCfg.Server.WriteTimeout = 150000
	appCfg.Webhook.Timeout = 10000
	appCfg.AWS.Lambda.ParseTimeout = 60000

	cfg := ConfigFromAppConfig(appCfg)

	assert.Equal(t, 150*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 100*time.Second, cfg.StepBudget())
	assert.NoError(t, cfg.Validate())
}
