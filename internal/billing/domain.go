package billing

import (
	"math"
	"time"
)

// ============================================================================
// DOCUMENT
// ============================================================================

type DocumentType string

const (
	TypeQuote     DocumentType = "QUOTE"
	TypeInvoice   DocumentType = "INVOICE"
	TypeAmendment DocumentType = "AMENDMENT"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusBilled    Status = "BILLED"
	StatusPaid      Status = "PAID"
	StatusPostponed Status = "POSTPONED"
)

// WorkStage is a job-tracking overlay, independent of billing status. It only
// becomes meaningful once a document has been accepted.
type WorkStage string

const (
	WorkStagePlanned    WorkStage = "PLANNED"
	WorkStageInProgress WorkStage = "IN_PROGRESS"
	WorkStageCompleted  WorkStage = "COMPLETED"
)

type LineType string

const (
	LineTypeService  LineType = "SERVICE"
	LineTypeMaterial LineType = "MATERIAL"
)

// VATRate is the single VAT rate applied when a document is VAT-liable.
const VATRate = 0.20

// Document is a quote that can become an invoice, or an amendment issued
// against a quote. It is the unit the state machine and the reporting engine
// operate on.
type Document struct {
	ID             int64        `json:"id"`
	OwnerID        int64        `json:"owner_id"`
	ClientID       int64        `json:"client_id"`
	ParentID       *int64       `json:"parent_id,omitempty"`
	Title          string       `json:"title"`
	Type           DocumentType `json:"type"`
	Status         Status       `json:"status"`
	WorkStage      *WorkStage   `json:"work_stage,omitempty"`
	VAT            bool         `json:"vat"`
	Items          []LineItem   `json:"items,omitempty"`
	Totals         Totals       `json:"totals"`
	Date           time.Time    `json:"date"`
	ValidUntil     *time.Time   `json:"valid_until,omitempty"`
	SignedAt       *time.Time   `json:"signed_at,omitempty"`
	LastFollowupAt *time.Time   `json:"last_followup_at,omitempty"`
	SignatureRef   *string      `json:"signature_ref,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// LineItem is a single ordered line on a document. Negative unit prices
// represent a previously paid deposit subtracted from a final invoice.
type LineItem struct {
	ID          int64    `json:"id"`
	DocumentID  int64    `json:"document_id"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	BuyingPrice float64  `json:"buying_price"`
	LineType    LineType `json:"line_type"`
	LineOrder   int      `json:"line_order"`
}

// Totals are derived from the items, never independently mutable.
type Totals struct {
	TotalExclTax float64 `json:"total_excl_tax"`
	TotalTax     float64 `json:"total_tax"`
	TotalInclTax float64 `json:"total_incl_tax"`
}

// ComputeTotals derives document totals from its line items. Tax applies only
// when the document is VAT-liable.
func ComputeTotals(items []LineItem, vat bool) Totals {
	var excl float64
	for _, item := range items {
		excl += item.Quantity * item.UnitPrice
	}
	excl = roundCents(excl)
	var tax float64
	if vat {
		tax = roundCents(excl * VATRate)
	}
	return Totals{
		TotalExclTax: excl,
		TotalTax:     tax,
		TotalInclTax: roundCents(excl + tax),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusRejected
}

// IsActivity reports whether the document counts toward quote-volume and
// conversion metrics: quotes of any status, and direct invoices with no parent.
func (d Document) IsActivity() bool {
	if d.Type == TypeQuote {
		return true
	}
	return d.Type == TypeInvoice && d.ParentID == nil
}

// IsSigned reports whether the document counts as signed for conversion
// metrics: direct invoices, documents that reached accepted/billed/paid, or
// documents carrying a signature timestamp.
func (d Document) IsSigned() bool {
	if d.Type == TypeInvoice && d.ParentID == nil {
		return true
	}
	switch d.Status {
	case StatusAccepted, StatusBilled, StatusPaid:
		return true
	}
	return d.SignedAt != nil
}
