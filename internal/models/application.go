// internal/models/application.go
package models

import "time"

// Submission is one applicant's intake request. It only lives for the
// duration of a single orchestration run.
type Submission struct {
	Name        string
	Email       string
	Phone       string
	FileName    string
	Document    []byte
	ContentType string
}

// ArtifactMetadata is stored alongside an uploaded document.
type ArtifactMetadata struct {
	OriginalName  string
	ApplicantName string
}

// ParsedDocumentFields is the output contract of the document parser.
// Consumers never see a nil instance or nil slices; see EmptyParsedDocumentFields.
type ParsedDocumentFields struct {
	PersonalInfo   map[string]string `json:"personal_info"`
	Education      []string          `json:"education"`
	Qualifications []string          `json:"qualifications"`
	Projects       []string          `json:"projects"`
}

// EmptyParsedDocumentFields is substituted whenever parsing fails.
func EmptyParsedDocumentFields() ParsedDocumentFields {
	return ParsedDocumentFields{
		PersonalInfo:   map[string]string{},
		Education:      []string{},
		Qualifications: []string{},
		Projects:       []string{},
	}
}

// Normalized replaces nil collections with empty ones.
func (p ParsedDocumentFields) Normalized() ParsedDocumentFields {
	if p.PersonalInfo == nil {
		p.PersonalInfo = map[string]string{}
	}
	if p.Education == nil {
		p.Education = []string{}
	}
	if p.Qualifications == nil {
		p.Qualifications = []string{}
	}
	if p.Projects == nil {
		p.Projects = []string{}
	}
	return p
}

// ApplicationRecord is the append-only row handed to record sinks.
type ApplicationRecord struct {
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	DocumentURL    string    `json:"documentUrl"`
	Education      []string  `json:"education"`
	Qualifications []string  `json:"qualifications"`
	Projects       []string  `json:"projects"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// ParsedDataSummary reports how much the parser recovered.
type ParsedDataSummary struct {
	EducationCount      int `json:"education_count"`
	QualificationsCount int `json:"qualifications_count"`
	ProjectsCount       int `json:"projects_count"`
	PersonalInfoFields  int `json:"personal_info_fields"`
}

// SummarizeParsed counts the entries recovered in each category.
func SummarizeParsed(p ParsedDocumentFields) ParsedDataSummary {
	return ParsedDataSummary{
		EducationCount:      len(p.Education),
		QualificationsCount: len(p.Qualifications),
		ProjectsCount:       len(p.Projects),
		PersonalInfoFields:  len(p.PersonalInfo),
	}
}
