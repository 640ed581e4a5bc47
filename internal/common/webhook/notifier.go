// Package webhook posts processed applications to an external endpoint.
package webhook

import (
	"context"
	"fmt"
	"time"

	apphttp "applysync/internal/common/http"
	"applysync/internal/common/logger"
	"applysync/internal/models"
)

const defaultCandidateEmail = "email@example.com"

// Payload is the body posted for every accepted application.
type Payload struct {
	CVData   CVData   `json:"cv_data"`
	Metadata Metadata `json:"metadata"`
}

type CVData struct {
	PersonalInfo   map[string]string `json:"personal_info"`
	Education      []string          `json:"education"`
	Qualifications []string          `json:"qualifications"`
	Projects       []string          `json:"projects"`
	CVPublicLink   string            `json:"cv_public_link"`
}

type Metadata struct {
	ApplicantName      string `json:"applicant_name"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	CVProcessed        bool   `json:"cv_processed"`
	ProcessedTimestamp string `json:"processed_timestamp"`
}

// BuildPayload nests the submission identity and the parsed lists. Parsed
// personal-info fields win over submitted ones when present.
func BuildPayload(sub models.Submission, documentURL string, parsed models.ParsedDocumentFields, processedAt time.Time) Payload {
	parsed = parsed.Normalized()

	personal := map[string]string{
		"name":  sub.Name,
		"email": sub.Email,
		"phone": sub.Phone,
	}
	for k, v := range parsed.PersonalInfo {
		if v != "" {
			personal[k] = v
		}
	}

	return Payload{
		CVData: CVData{
			PersonalInfo:   personal,
			Education:      parsed.Education,
			Qualifications: parsed.Qualifications,
			Projects:       parsed.Projects,
			CVPublicLink:   documentURL,
		},
		Metadata: Metadata{
			ApplicantName:      sub.Name,
			Email:              sub.Email,
			Status:             "prod",
			CVProcessed:        true,
			ProcessedTimestamp: processedAt.UTC().Format(time.RFC3339),
		},
	}
}

type Notifier struct {
	client         *apphttp.Client
	url            string
	candidateEmail string
	logger         logger.Logger
}

func NewNotifier(client *apphttp.Client, url, candidateEmail string, log logger.Logger) *Notifier {
	if candidateEmail == "" {
		candidateEmail = defaultCandidateEmail
	}
	return &Notifier{
		client:         client,
		url:            url,
		candidateEmail: candidateEmail,
		logger:         log.WithFields(map[string]interface{}{"sink": "webhook"}),
	}
}

// Notify posts the payload. A non-2xx answer surfaces as *http.StatusError.
func (n *Notifier) Notify(ctx context.Context, payload Payload) error {
	if n.url == "" {
		return fmt.Errorf("webhook url not configured")
	}

	_, err := n.client.PostJSON(ctx, n.url, map[string]string{
		"X-Candidate-Email": n.candidateEmail,
	}, payload)
	if err != nil {
		return fmt.Errorf("webhook notify: %w", err)
	}

	n.logger.Info("webhook notified", map[string]interface{}{"email": payload.Metadata.Email})
	return nil
}
