package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/fastygo/crm-analytics/domain"
)

// line is one JSONL record: either a snapshot or the reason it is missing.
type line struct {
	CustomerID string                    `json:"customerId"`
	Snapshot   *domain.CustomerAnalytics `json:"snapshot,omitempty"`
	Error      string                    `json:"error,omitempty"`
	Code       domain.ErrorCode          `json:"code,omitempty"`
}

type exporter struct {
	enc     *json.Encoder
	bar     *progressbar.ProgressBar
	written int
	failed  int
}

func newExporter(out io.Writer, bar *progressbar.ProgressBar) *exporter {
	return &exporter{enc: json.NewEncoder(out), bar: bar}
}

// record writes one outcome. Only output failures are returned; a customer
// whose snapshot failed becomes an error line.
func (e *exporter) record(customerID string, snapshot *domain.CustomerAnalytics, err error) error {
	l := line{CustomerID: customerID, Snapshot: snapshot}
	if err != nil {
		e.failed++
		l.Snapshot = nil
		l.Error = err.Error()
		var dErr *domain.Error
		if errors.As(err, &dErr) {
			l.Code = dErr.Code
		}
	}
	if encErr := e.enc.Encode(l); encErr != nil {
		return encErr
	}
	e.written++
	if e.bar != nil {
		_ = e.bar.Add(1)
	}
	return nil
}
