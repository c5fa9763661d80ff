package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type JobStatus string

const (
	JobInvestigateQuote JobStatus = "investigate_quote"
	JobQuoted           JobStatus = "quoted"
	JobPOReceived       JobStatus = "po_received"
	JobAwaitingParts    JobStatus = "awaiting_parts"
	JobPartsReceived    JobStatus = "parts_received"
	JobRequirePlanDate  JobStatus = "require_plan_date"
	JobPlanned          JobStatus = "planned"
	JobInProgress       JobStatus = "in_progress"
	JobInvoice          JobStatus = "invoice"
)

var jobStatuses = []JobStatus{
	JobInvestigateQuote,
	JobQuoted,
	JobPOReceived,
	JobAwaitingParts,
	JobPartsReceived,
	JobRequirePlanDate,
	JobPlanned,
	JobInProgress,
	JobInvoice,
}

// JobStatuses returns the workflow in order.
func JobStatuses() []JobStatus {
	out := make([]JobStatus, len(jobStatuses))
	copy(out, jobStatuses)
	return out
}

// ParseJobStatus matches s case-insensitively and falls back to
// investigate_quote.
func ParseJobStatus(s string) JobStatus {
	v := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range jobStatuses {
		if st == v {
			return st
		}
	}
	return JobInvestigateQuote
}

func IsJobStatus(s string) bool {
	for _, st := range jobStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

type JobAttachmentKind string

const (
	JobAttachmentRCS            JobAttachmentKind = "rcs"
	JobAttachmentCorrespondence JobAttachmentKind = "correspondence"
	JobAttachmentSupplierQuote  JobAttachmentKind = "supplier_quote"
	JobAttachmentOther          JobAttachmentKind = "other"
)

// ParseJobAttachmentKind falls back to other.
func ParseJobAttachmentKind(s string) JobAttachmentKind {
	switch k := JobAttachmentKind(strings.ToLower(strings.TrimSpace(s))); k {
	case JobAttachmentRCS, JobAttachmentCorrespondence, JobAttachmentSupplierQuote:
		return k
	}
	return JobAttachmentOther
}

type JobResource struct {
	Person string          `json:"person"`
	Role   string          `json:"role,omitempty"`
	Hours  decimal.Decimal `json:"hours"`
	Date   *time.Time      `json:"date,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

type JobResources []JobResource

func (r JobResources) Value() (driver.Value, error) { return jsonValue(r, len(r) == 0) }

func (r *JobResources) Scan(src any) error { return jsonScan(src, r) }

type JobAttachment struct {
	Attachment
	Kind JobAttachmentKind `json:"kind"`
}

type JobAttachments []JobAttachment

func (a JobAttachments) Value() (driver.Value, error) { return jsonValue(a, len(a) == 0) }

func (a *JobAttachments) Scan(src any) error { return jsonScan(src, a) }

type Job struct {
	ID           int64          `json:"id"`
	JobNumber    string         `json:"job_number"`
	PONumber     string         `json:"po_number,omitempty"`
	ClientID     int64          `json:"client_id"`
	LocationID   *int64         `json:"location_id,omitempty"`
	AssetID      *int64         `json:"asset_id,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	StartDate    *time.Time     `json:"start_date,omitempty"`
	QuoteDueDate *time.Time     `json:"quote_due_date,omitempty"`
	Status       JobStatus      `json:"status"`
	Resources    JobResources   `json:"resources"`
	Attachments  JobAttachments `json:"attachments"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type CreateJobRequest struct {
	JobNumber    string     `json:"job_number" validate:"required,max=64"`
	PONumber     string     `json:"po_number"`
	ClientID     int64      `json:"client_id" validate:"required"`
	LocationID   *int64     `json:"location_id,omitempty"`
	AssetID      *int64     `json:"asset_id,omitempty"`
	Title        string     `json:"title" validate:"required,max=255"`
	Description  string     `json:"description"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	QuoteDueDate *time.Time `json:"quote_due_date,omitempty"`
	Status       string     `json:"status"`
}

type AddJobResourceRequest struct {
	Person string          `json:"person" validate:"required"`
	Role   string          `json:"role"`
	Hours  decimal.Decimal `json:"hours"`
	Date   *time.Time      `json:"date,omitempty"`
	Notes  string          `json:"notes"`
}
