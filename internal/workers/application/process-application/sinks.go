// internal/workers/application/process-application/sinks.go
package processapplication

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"applysync/internal/models"
)

// MultiSink fans one record out to every configured sink. Every sink is
// attempted; the joined error names the ones that failed.
type MultiSink struct {
	sinks []RecordSink
}

func NewMultiSink(sinks ...RecordSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Name() string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

func (m *MultiSink) Append(ctx context.Context, rec models.ApplicationRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}
