// Package actions derives the prioritized work queues surfaced on the
// what-needs-attention board.
package actions

import (
	"sort"
	"time"

	"github.com/tradebill/tradebill/internal/billing"
	"github.com/tradebill/tradebill/internal/schedule"
)

const (
	// A sent document counts as overdue when neither the send date nor the
	// last follow-up falls within this window.
	followUpWindow = 7 * 24 * time.Hour

	followUpPageSize = 20
	draftsPageSize   = 5
	upcomingPageSize = 3
)

// Item is a queue entry referencing a document.
type Item struct {
	ID        int64                `json:"id"`
	ClientID  int64                `json:"client_id"`
	Title     string               `json:"title"`
	Type      billing.DocumentType `json:"type"`
	Status    billing.Status       `json:"status"`
	Total     float64              `json:"total"`
	Date      time.Time            `json:"date"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ActionList groups the five queues. Each queue is computed independently;
// there is no ordering guarantee across queues.
type ActionList struct {
	SignedNotInvoiced []Item           `json:"signed_not_invoiced"`
	OverdueFollowUp   []Item           `json:"overdue_follow_up"`
	PendingInvoices   []Item           `json:"pending_invoices"`
	Drafts            []Item           `json:"drafts"`
	Upcoming          []schedule.Event `json:"upcoming"`
}

// Select derives the work queues from a full document snapshot, the owner's
// calendar events, and the current time. Pure function over the snapshot.
func Select(docs []billing.Document, events []schedule.Event, now time.Time) ActionList {
	ix := billing.NewChainIndex(docs)
	list := ActionList{
		SignedNotInvoiced: []Item{},
		OverdueFollowUp:   []Item{},
		PendingInvoices:   []Item{},
		Drafts:            []Item{},
		Upcoming:          []schedule.Event{},
	}

	for _, doc := range docs {
		switch doc.Status {
		case billing.StatusAccepted:
			if !ix.HasInvoiceDescendant(doc) {
				list.SignedNotInvoiced = append(list.SignedNotInvoiced, item(doc))
			}
		case billing.StatusSent:
			if overdueFollowUp(doc, now) {
				list.OverdueFollowUp = append(list.OverdueFollowUp, item(doc))
			}
		case billing.StatusBilled:
			if !ix.IsSettledByChildren(doc) {
				list.PendingInvoices = append(list.PendingInvoices, item(doc))
			}
		case billing.StatusDraft:
			list.Drafts = append(list.Drafts, item(doc))
		}
	}

	// Signed quotes: most recently touched first.
	sort.SliceStable(list.SignedNotInvoiced, func(i, j int) bool {
		return list.SignedNotInvoiced[i].UpdatedAt.After(list.SignedNotInvoiced[j].UpdatedAt)
	})
	// Follow-ups: oldest first, the longest-ignored quote on top.
	sort.SliceStable(list.OverdueFollowUp, func(i, j int) bool {
		return list.OverdueFollowUp[i].Date.Before(list.OverdueFollowUp[j].Date)
	})
	list.OverdueFollowUp = capItems(list.OverdueFollowUp, followUpPageSize)
	// Pending invoices: oldest billing date first.
	sort.SliceStable(list.PendingInvoices, func(i, j int) bool {
		return list.PendingInvoices[i].Date.Before(list.PendingInvoices[j].Date)
	})
	sort.SliceStable(list.Drafts, func(i, j int) bool {
		return list.Drafts[i].UpdatedAt.After(list.Drafts[j].UpdatedAt)
	})
	list.Drafts = capItems(list.Drafts, draftsPageSize)

	for _, e := range events {
		if !e.Finished(now) {
			list.Upcoming = append(list.Upcoming, e)
		}
	}
	sort.SliceStable(list.Upcoming, func(i, j int) bool {
		return list.Upcoming[i].StartsAt.Before(list.Upcoming[j].StartsAt)
	})
	if len(list.Upcoming) > upcomingPageSize {
		list.Upcoming = list.Upcoming[:upcomingPageSize]
	}

	return list
}

func overdueFollowUp(doc billing.Document, now time.Time) bool {
	if doc.Date.IsZero() || now.Sub(doc.Date) <= followUpWindow {
		return false
	}
	return doc.LastFollowupAt == nil || now.Sub(*doc.LastFollowupAt) > followUpWindow
}

func item(doc billing.Document) Item {
	return Item{
		ID:        doc.ID,
		ClientID:  doc.ClientID,
		Title:     doc.Title,
		Type:      doc.Type,
		Status:    doc.Status,
		Total:     doc.Totals.TotalInclTax,
		Date:      doc.Date,
		UpdatedAt: doc.UpdatedAt,
	}
}

func capItems(items []Item, limit int) []Item {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
