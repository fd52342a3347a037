package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceExport pre-renders a saved invoice to PDF.
	TaskInvoiceExport = "invoice:export"
	// TaskExportSweep removes stored PDFs past their retention.
	TaskExportSweep = "invoice:export-sweep"
)

// InvoiceExportPayload identifies the invoice to render and its owner.
type InvoiceExportPayload struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	OwnerID   string    `json:"owner_id"`
}

// NewInvoiceExportTask constructs an export task. The task id makes repeated
// enqueues of the same invoice collapse into one.
func NewInvoiceExportTask(payload InvoiceExportPayload) (*asynq.Task, error) {
	if payload.InvoiceID == uuid.Nil || payload.OwnerID == "" {
		return nil, fmt.Errorf("jobs: invoice export payload incomplete")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceExport, data,
		asynq.TaskID("invoice-export:"+payload.InvoiceID.String()),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// ExportSweepPayload configures a sweep run.
type ExportSweepPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewExportSweepTask constructs a sweep task.
func NewExportSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(ExportSweepPayload{MaxAgeHours: int(maxAge.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportSweep, data), nil
}
