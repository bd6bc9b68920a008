package billing

import "time"

type CreateDocumentRequest struct {
	OwnerID    int64                   `json:"owner_id" validate:"required,gt=0"`
	ClientID   int64                   `json:"client_id" validate:"required,gt=0"`
	ParentID   *int64                  `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	Title      string                  `json:"title" validate:"required,max=200"`
	Type       DocumentType            `json:"type" validate:"required,oneof=QUOTE INVOICE AMENDMENT"`
	VAT        bool                    `json:"vat"`
	Date       time.Time               `json:"date" validate:"required"`
	ValidUntil *time.Time              `json:"valid_until,omitempty"`
	Items      []CreateLineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateLineItemRequest struct {
	Description string   `json:"description" validate:"required,max=500"`
	Quantity    float64  `json:"quantity" validate:"required"`
	UnitPrice   float64  `json:"unit_price"`
	BuyingPrice float64  `json:"buying_price" validate:"gte=0"`
	LineType    LineType `json:"line_type" validate:"required,oneof=SERVICE MATERIAL"`
	LineOrder   int      `json:"line_order" validate:"gte=0"`
}

// UpdateDraftRequest edits fields on a document that is still a draft. Lines,
// when present, replace the existing set and totals are recomputed.
type UpdateDraftRequest struct {
	ClientID   *int64                   `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	Title      *string                  `json:"title,omitempty" validate:"omitempty,max=200"`
	VAT        *bool                    `json:"vat,omitempty"`
	Date       *time.Time               `json:"date,omitempty"`
	ValidUntil *time.Time               `json:"valid_until,omitempty"`
	Items      *[]CreateLineItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type SignRequest struct {
	SignatureRef string `json:"signature_ref,omitempty" validate:"omitempty,max=100"`
}

type WorkStageRequest struct {
	Stage WorkStage `json:"stage" validate:"required,oneof=PLANNED IN_PROGRESS COMPLETED"`
}

type ListDocumentsRequest struct {
	OwnerID int64   `json:"owner_id" validate:"required,gt=0"`
	Status  *Status `json:"status,omitempty" validate:"omitempty,oneof=DRAFT SENT ACCEPTED REJECTED BILLED PAID POSTPONED"`
}
