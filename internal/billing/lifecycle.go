package billing

import (
	"fmt"
	"time"
)

// TransitionOp names a lifecycle operation.
type TransitionOp string

const (
	OpMarkSent         TransitionOp = "mark_sent"
	OpRecordFollowUp   TransitionOp = "record_follow_up"
	OpSign             TransitionOp = "sign"
	OpConvertToInvoice TransitionOp = "convert_to_invoice"
	OpMarkPaid         TransitionOp = "mark_paid"
	OpReject           TransitionOp = "reject"
	OpPostpone         TransitionOp = "postpone"
)

// TransitionArgs carries the operation-specific inputs.
type TransitionArgs struct {
	Now          time.Time
	SignatureRef string
}

// The lifecycle functions below are pure: each takes a document by value and
// returns the updated copy, or an InvalidTransitionError when the current
// status does not permit the operation. Persistence and concurrency control
// live in the service layer.

// MarkSent moves a draft to sent. No other field changes.
func MarkSent(doc Document) (Document, error) {
	if doc.Status != StatusDraft {
		return doc, invalidTransition(OpMarkSent, doc.Status)
	}
	doc.Status = StatusSent
	return doc, nil
}

// RecordFollowUp stamps the last follow-up time on a sent document. The status
// does not change and repeated calls on the same instant are idempotent.
func RecordFollowUp(doc Document, now time.Time) (Document, error) {
	if doc.Status != StatusSent {
		return doc, invalidTransition(OpRecordFollowUp, doc.Status)
	}
	followedAt := now
	doc.LastFollowupAt = &followedAt
	return doc, nil
}

// Sign records the client signature and moves the document to accepted. Legal
// from sent, and from draft for directly-signed documents.
func Sign(doc Document, signatureRef string, now time.Time) (Document, error) {
	if doc.Status != StatusSent && doc.Status != StatusDraft {
		return doc, invalidTransition(OpSign, doc.Status)
	}
	signedAt := now
	doc.SignatureRef = &signatureRef
	doc.SignedAt = &signedAt
	doc.Status = StatusAccepted
	return doc, nil
}

// ConvertToInvoice turns an accepted quote into a billed invoice, re-dated to
// the billing date. This is the only place the document type changes.
func ConvertToInvoice(doc Document, now time.Time) (Document, error) {
	if doc.Status != StatusAccepted || doc.Type != TypeQuote {
		return doc, invalidTransition(OpConvertToInvoice, doc.Status)
	}
	doc.Type = TypeInvoice
	doc.Status = StatusBilled
	doc.Date = now
	return doc, nil
}

// MarkPaid settles a billed invoice. Terminal.
func MarkPaid(doc Document) (Document, error) {
	if doc.Status != StatusBilled {
		return doc, invalidTransition(OpMarkPaid, doc.Status)
	}
	doc.Status = StatusPaid
	return doc, nil
}

// Reject closes a sent or accepted document. Terminal.
func Reject(doc Document) (Document, error) {
	if doc.Status != StatusSent && doc.Status != StatusAccepted {
		return doc, invalidTransition(OpReject, doc.Status)
	}
	doc.Status = StatusRejected
	return doc, nil
}

// Postpone parks a sent or accepted document. Postponed documents drop out of
// the work queues but keep their signature history.
func Postpone(doc Document) (Document, error) {
	if doc.Status != StatusSent && doc.Status != StatusAccepted {
		return doc, invalidTransition(OpPostpone, doc.Status)
	}
	doc.Status = StatusPostponed
	return doc, nil
}

// SetWorkStage updates the job-tracking overlay. Only meaningful once the
// document has been accepted, i.e. from accepted onward.
func SetWorkStage(doc Document, stage WorkStage) (Document, error) {
	switch doc.Status {
	case StatusAccepted, StatusBilled, StatusPaid:
	default:
		return doc, fmt.Errorf("%w: work stage requires an accepted document, status is %s", ErrInvalidTransition, doc.Status)
	}
	s := stage
	doc.WorkStage = &s
	return doc, nil
}

// Apply dispatches a named operation against the document.
func Apply(doc Document, op TransitionOp, args TransitionArgs) (Document, error) {
	switch op {
	case OpMarkSent:
		return MarkSent(doc)
	case OpRecordFollowUp:
		return RecordFollowUp(doc, args.Now)
	case OpSign:
		return Sign(doc, args.SignatureRef, args.Now)
	case OpConvertToInvoice:
		return ConvertToInvoice(doc, args.Now)
	case OpMarkPaid:
		return MarkPaid(doc)
	case OpReject:
		return Reject(doc)
	case OpPostpone:
		return Postpone(doc)
	default:
		return doc, fmt.Errorf("%w: unknown operation %q", ErrInvalidTransition, op)
	}
}
