package reporting

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebill/tradebill/internal/billing"
)

type mockLister struct {
	docs  []billing.Document
	err   error
	calls int
}

func (m *mockLister) ListDocuments(ctx context.Context, ownerID int64) ([]billing.Document, error) {
	m.calls++
	return m.docs, m.err
}

func newDashboardService(t *testing.T, lister *mockLister) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(lister, cache, nil)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestDashboardCachesUntilBump(t *testing.T) {
	lister := &mockLister{docs: []billing.Document{
		paidDoc(1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 1000),
	}}
	svc, cleanup := newDashboardService(t, lister)
	defer cleanup()

	ctx := context.Background()
	rep, err := svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	assert.InDelta(t, 1000, rep.Revenue.Week.Value, 0.001)
	assert.Equal(t, 1, lister.calls)

	// Second read is served from cache.
	rep, err = svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	assert.InDelta(t, 1000, rep.Revenue.Week.Value, 0.001)
	assert.Equal(t, 1, lister.calls)

	// A document change invalidates every cached report.
	require.NoError(t, svc.DocumentChanged(ctx, 1))
	lister.docs = append(lister.docs, paidDoc(2, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), 500))

	rep, err = svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	assert.InDelta(t, 1500, rep.Revenue.Week.Value, 0.001)
	assert.Equal(t, 2, lister.calls)
}

func TestDashboardKeysByOwnerAndDate(t *testing.T) {
	lister := &mockLister{}
	svc, cleanup := newDashboardService(t, lister)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, 2, ref)
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx, 1, ref.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, lister.calls, "each owner/date pair loads once")

	_, err = svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	assert.Equal(t, 3, lister.calls)
}

func TestDashboardWithoutCache(t *testing.T) {
	lister := &mockLister{docs: []billing.Document{
		paidDoc(1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 750),
	}}
	svc := NewService(lister, nil, nil)

	rep, err := svc.Dashboard(context.Background(), 1, ref)
	require.NoError(t, err)
	assert.InDelta(t, 750, rep.Revenue.Week.Value, 0.001)

	// Every call hits the lister when no cache is wired.
	_, err = svc.Dashboard(context.Background(), 1, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestCacheRoundTripsReportShape(t *testing.T) {
	lister := &mockLister{docs: []billing.Document{
		paidDoc(1, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 1000),
	}}
	svc, cleanup := newDashboardService(t, lister)
	defer cleanup()

	ctx := context.Background()
	fresh, err := svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)
	cached, err := svc.Dashboard(ctx, 1, ref)
	require.NoError(t, err)

	assert.Equal(t, fresh, cached, "cached report must deserialize to the same shape")
	require.Len(t, cached.Revenue.Week.Chart, 7)
	require.Len(t, cached.Revenue.Month.Chart, 31)
}
