package actions

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebill/tradebill/internal/billing"
	"github.com/tradebill/tradebill/internal/schedule"
)

var now = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func ptr(v int64) *int64 { return &v }

func TestSelectSignedNotInvoiced(t *testing.T) {
	accepted := billing.Document{ID: 1, Type: billing.TypeQuote, Status: billing.StatusAccepted, UpdatedAt: now.Add(-time.Hour)}
	invoiced := billing.Document{ID: 2, Type: billing.TypeQuote, Status: billing.StatusAccepted, UpdatedAt: now.Add(-2 * time.Hour)}
	child := billing.Document{ID: 3, ParentID: ptr(2), Type: billing.TypeInvoice, Status: billing.StatusBilled}

	list := Select([]billing.Document{accepted, invoiced, child}, nil, now)

	require.Len(t, list.SignedNotInvoiced, 1, "a quote with an invoice child has left the queue")
	assert.Equal(t, int64(1), list.SignedNotInvoiced[0].ID)
}

func TestSelectSignedNotInvoicedOrdersByRecency(t *testing.T) {
	docs := []billing.Document{
		{ID: 1, Status: billing.StatusAccepted, UpdatedAt: now.Add(-3 * time.Hour)},
		{ID: 2, Status: billing.StatusAccepted, UpdatedAt: now.Add(-time.Hour)},
		{ID: 3, Status: billing.StatusAccepted, UpdatedAt: now.Add(-2 * time.Hour)},
	}

	list := Select(docs, nil, now)
	require.Len(t, list.SignedNotInvoiced, 3)
	assert.Equal(t, int64(2), list.SignedNotInvoiced[0].ID)
	assert.Equal(t, int64(3), list.SignedNotInvoiced[1].ID)
	assert.Equal(t, int64(1), list.SignedNotInvoiced[2].ID)
}

func TestSelectOverdueFollowUp(t *testing.T) {
	recentFollowUp := now.Add(-2 * 24 * time.Hour)
	staleFollowUp := now.Add(-10 * 24 * time.Hour)

	docs := []billing.Document{
		// Sent 400 days ago, never followed up: overdue.
		{ID: 1, Status: billing.StatusSent, Date: now.AddDate(0, 0, -400)},
		// Sent 400 days ago but followed up 2 days ago: not overdue.
		{ID: 2, Status: billing.StatusSent, Date: now.AddDate(0, 0, -400), LastFollowupAt: &recentFollowUp},
		// Sent 400 days ago, last follow-up 10 days ago: overdue again.
		{ID: 3, Status: billing.StatusSent, Date: now.AddDate(0, 0, -400), LastFollowupAt: &staleFollowUp},
		// Sent 3 days ago: inside the window.
		{ID: 4, Status: billing.StatusSent, Date: now.AddDate(0, 0, -3)},
		// Send date never recorded: cannot judge, so not listed.
		{ID: 5, Status: billing.StatusSent},
	}

	list := Select(docs, nil, now)
	require.Len(t, list.OverdueFollowUp, 2)
	assert.Equal(t, int64(1), list.OverdueFollowUp[0].ID)
	assert.Equal(t, int64(3), list.OverdueFollowUp[1].ID)
}

func TestSelectOverdueFollowUpCapped(t *testing.T) {
	var docs []billing.Document
	for i := 0; i < 30; i++ {
		docs = append(docs, billing.Document{
			ID:     int64(i + 1),
			Title:  fmt.Sprintf("Quote %d", i+1),
			Status: billing.StatusSent,
			Date:   now.AddDate(0, 0, -30-i),
		})
	}

	list := Select(docs, nil, now)
	require.Len(t, list.OverdueFollowUp, 20)
	// Oldest send date first.
	assert.Equal(t, int64(30), list.OverdueFollowUp[0].ID)
}

func TestSelectPendingInvoicesExcludesSettled(t *testing.T) {
	open := billing.Document{ID: 1, Type: billing.TypeInvoice, Status: billing.StatusBilled, Date: now.AddDate(0, 0, -5)}
	settled := billing.Document{ID: 2, Type: billing.TypeInvoice, Status: billing.StatusBilled, Date: now.AddDate(0, 0, -9)}
	child := billing.Document{ID: 3, ParentID: ptr(2), Type: billing.TypeInvoice, Status: billing.StatusBilled, Date: now.AddDate(0, 0, -1)}

	list := Select([]billing.Document{open, settled, child}, nil, now)

	ids := make([]int64, 0, len(list.PendingInvoices))
	for _, it := range list.PendingInvoices {
		ids = append(ids, it.ID)
	}
	// The settled parent drops out; the child, itself billed and childless,
	// takes over payment tracking.
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestSelectDraftsCappedAndOrdered(t *testing.T) {
	var docs []billing.Document
	for i := 0; i < 8; i++ {
		docs = append(docs, billing.Document{
			ID:        int64(i + 1),
			Status:    billing.StatusDraft,
			UpdatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}

	list := Select(docs, nil, now)
	require.Len(t, list.Drafts, 5)
	assert.Equal(t, int64(1), list.Drafts[0].ID, "most recently touched draft first")
}

func TestSelectUpcomingEvents(t *testing.T) {
	events := []schedule.Event{
		{ID: 1, Title: "Past visit", StartsAt: now.Add(-48 * time.Hour)},
		{ID: 2, Title: "Tomorrow", StartsAt: now.Add(24 * time.Hour)},
		{ID: 3, Title: "Next week", StartsAt: now.Add(7 * 24 * time.Hour)},
		{ID: 4, Title: "In an hour", StartsAt: now.Add(time.Hour)},
		{ID: 5, Title: "In two days", StartsAt: now.Add(48 * time.Hour)},
	}

	list := Select(nil, events, now)
	require.Len(t, list.Upcoming, 3, "top three upcoming only")
	assert.Equal(t, int64(4), list.Upcoming[0].ID)
	assert.Equal(t, int64(2), list.Upcoming[1].ID)
	assert.Equal(t, int64(5), list.Upcoming[2].ID)
}

func TestSelectIgnoresParkedDocuments(t *testing.T) {
	docs := []billing.Document{
		{ID: 1, Status: billing.StatusPostponed, Date: now.AddDate(0, 0, -100)},
		{ID: 2, Status: billing.StatusRejected, Date: now.AddDate(0, 0, -100)},
		{ID: 3, Status: billing.StatusPaid, Date: now.AddDate(0, 0, -100)},
	}

	list := Select(docs, nil, now)
	assert.Empty(t, list.SignedNotInvoiced)
	assert.Empty(t, list.OverdueFollowUp)
	assert.Empty(t, list.PendingInvoices)
	assert.Empty(t, list.Drafts)
}

func TestSelectEmptySnapshot(t *testing.T) {
	list := Select(nil, nil, now)
	assert.NotNil(t, list.SignedNotInvoiced)
	assert.NotNil(t, list.OverdueFollowUp)
	assert.NotNil(t, list.PendingInvoices)
	assert.NotNil(t, list.Drafts)
	assert.NotNil(t, list.Upcoming)
}
