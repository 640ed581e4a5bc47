// Package sheets appends application records to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"applysync/internal/common/logger"
	"applysync/internal/models"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Header is the fixed column order of the application log.
var Header = []interface{}{
	"Name",
	"Email",
	"Phone",
	"CV URL",
	"Education",
	"Qualifications/Skills",
	"Projects/Experience",
	"Timestamp",
}

// ValuesAPI is the slice of spreadsheets.values the sink uses.
type ValuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) (*gsheets.ValueRange, error)
	Update(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error
	Append(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) (*gsheets.AppendValuesResponse, error)
}

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

type Sink struct {
	values        ValuesAPI
	spreadsheetID string
	sheetName     string
	logger        logger.Logger
	headerReady   atomic.Bool
}

func New(values ValuesAPI, spreadsheetID, sheetName string, log logger.Logger) *Sink {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &Sink{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        log.WithFields(map[string]interface{}{"sink": "sheets"}),
	}
}

// NewFromConfig authenticates with a service account. Without a spreadsheet id
// the returned sink is a no-op.
func NewFromConfig(ctx context.Context, cfg Config, log logger.Logger) (*Sink, error) {
	if cfg.SpreadsheetID == "" {
		return New(nil, "", cfg.SheetName, log), nil
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	default:
		return nil, fmt.Errorf("no Google Sheets credentials configured")
	}

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(&serviceValues{srv: srv}, cfg.SpreadsheetID, cfg.SheetName, log), nil
}

func (s *Sink) Name() string { return "sheets" }

// Append writes one row. A missing spreadsheet id means the sink is disabled
// and the call succeeds without doing anything.
func (s *Sink) Append(ctx context.Context, rec models.ApplicationRecord) error {
	if s.spreadsheetID == "" {
		s.logger.Info("spreadsheet logging skipped, no spreadsheet id", nil)
		return nil
	}

	s.ensureHeader(ctx)

	resp, err := s.values.Append(ctx, s.spreadsheetID, s.sheetName+"!A:H", &gsheets.ValueRange{
		Values: [][]interface{}{Row(rec)},
	})
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	fields := map[string]interface{}{"email": rec.Email}
	if resp != nil && resp.Updates != nil {
		fields["updatedCells"] = resp.Updates.UpdatedCells
	}
	s.logger.Info("application row appended", fields)
	return nil
}

// ensureHeader writes the header row into an empty sheet. Failures are only
// logged; the append itself decides success.
func (s *Sink) ensureHeader(ctx context.Context) {
	if s.headerReady.Load() {
		return
	}
	rng := s.sheetName + "!A1:H1"

	vr, err := s.values.Get(ctx, s.spreadsheetID, rng)
	if err != nil {
		s.logger.Warn("header check failed", map[string]interface{}{"error": err})
		return
	}
	if vr != nil && len(vr.Values) > 0 {
		s.headerReady.Store(true)
		return
	}

	if err := s.values.Update(ctx, s.spreadsheetID, rng, &gsheets.ValueRange{Values: [][]interface{}{Header}}); err != nil {
		s.logger.Warn("header write failed", map[string]interface{}{"error": err})
		return
	}
	s.headerReady.Store(true)
	s.logger.Info("header row added", nil)
}

// Row renders a record in Header order.
func Row(rec models.ApplicationRecord) []interface{} {
	submitted := rec.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	return []interface{}{
		rec.Name,
		rec.Email,
		rec.Phone,
		rec.DocumentURL,
		joinEntries(rec.Education),
		joinEntries(rec.Qualifications),
		joinEntries(rec.Projects),
		submitted.UTC().Format(time.RFC3339),
	}
}

func joinEntries(entries []string) string {
	kept := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			kept = append(kept, e)
		}
	}
	return strings.Join(kept, "\n\n")
}

type serviceValues struct {
	srv *gsheets.Service
}

func (v *serviceValues) Get(ctx context.Context, spreadsheetID, rng string) (*gsheets.ValueRange, error) {
	return v.srv.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
}

func (v *serviceValues) Update(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) error {
	_, err := v.srv.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (v *serviceValues) Append(ctx context.Context, spreadsheetID, rng string, vr *gsheets.ValueRange) (*gsheets.AppendValuesResponse, error) {
	return v.srv.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
}
