package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/streamhub/internal/catalog/repository"
	"github.com/smallbiznis/streamhub/internal/clock"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	entitlementrepo "github.com/smallbiznis/streamhub/internal/entitlement/repository"
	obsmetrics "github.com/smallbiznis/streamhub/internal/observability/metrics"
	"github.com/smallbiznis/streamhub/internal/realtime"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/streamhub/internal/subscription/repository"
	"github.com/smallbiznis/streamhub/pkg/db"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	t     *testing.T
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	hub   *realtime.Hub
	svc   entitlementdomain.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithSubRepo(t, subscriptionrepo.Provide())
}

func newHarnessWithSubRepo(t *testing.T, subRepo subscriptiondomain.Repository) *harness {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&subscriptiondomain.UserSubscription{},
		&catalogdomain.Channel{},
		&catalogdomain.ContentItem{},
		&entitlementdomain.WatchHistory{},
	))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC))
	hub := realtime.NewHub()

	svc := NewService(ServiceParam{
		DB:          conn,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Repo:        entitlementrepo.Provide(),
		SubRepo:     subRepo,
		CatalogRepo: catalogrepo.New(conn),
		Metrics:     obsmetrics.NewNoop(),
		Publisher:   hub,
	})
	return &harness{t: t, db: conn, node: node, clock: clk, hub: hub, svc: svc}
}

// staleSubscriptions serves a fixed snapshot from FindActiveByUserID so the
// conditional debit runs against a row that changed after it was read.
type staleSubscriptions struct {
	subscriptiondomain.Repository
	snapshot *subscriptiondomain.UserSubscription
}

func (s *staleSubscriptions) FindActiveByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*subscriptiondomain.UserSubscription, error) {
	if s.snapshot == nil || s.snapshot.UserID != userID {
		return s.Repository.FindActiveByUserID(ctx, db, userID)
	}
	sub := *s.snapshot
	return &sub, nil
}

func (h *harness) subscription(userID snowflake.ID, credits int64, status subscriptiondomain.SubscriptionStatus) *subscriptiondomain.UserSubscription {
	h.t.Helper()
	sub := &subscriptiondomain.UserSubscription{
		ID:                  h.node.Generate(),
		UserID:              userID,
		PlanID:              1,
		OrganizationID:      1,
		Status:              status,
		CurrentCredits:      credits,
		MonthlyCreditsLimit: credits,
		CreatedAt:           h.clock.Now(),
		UpdatedAt:           h.clock.Now(),
	}
	require.NoError(h.t, h.db.Create(sub).Error)
	return sub
}

func (h *harness) channel(cost int64, active bool) *catalogdomain.Channel {
	h.t.Helper()
	ch := &catalogdomain.Channel{
		ID:             h.node.Generate(),
		OrganizationID: 1,
		Name:           "Channel",
		CreditsCost:    cost,
		IsActive:       active,
		CreatedAt:      h.clock.Now(),
		UpdatedAt:      h.clock.Now(),
	}
	require.NoError(h.t, h.db.Create(ch).Error)
	return ch
}

func (h *harness) content(cost int64) *catalogdomain.ContentItem {
	h.t.Helper()
	item := &catalogdomain.ContentItem{
		ID:             h.node.Generate(),
		OrganizationID: 1,
		Title:          "Feature",
		Type:           catalogdomain.ContentTypeMovie,
		CreditsCost:    cost,
		IsActive:       true,
		CreatedAt:      h.clock.Now(),
		UpdatedAt:      h.clock.Now(),
	}
	require.NoError(h.t, h.db.Create(item).Error)
	return item
}

func (h *harness) reload(id snowflake.ID) *subscriptiondomain.UserSubscription {
	h.t.Helper()
	var sub subscriptiondomain.UserSubscription
	require.NoError(h.t, h.db.First(&sub, "id = ?", id).Error)
	return &sub
}

func (h *harness) historyCount(userID snowflake.ID) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.db.Model(&entitlementdomain.WatchHistory{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestAttemptWatchChannelThenUnaffordableContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.node.Generate()
	sub := h.subscription(userID, 50, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(20, true)
	movie := h.content(35)

	res, err := h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.WatchStatusAccepted, res.Status)
	assert.Equal(t, int64(30), res.Balance)
	require.NotNil(t, res.History)
	assert.Equal(t, int64(20), res.History.CreditsSpent)
	require.NotNil(t, res.History.ChannelID)
	assert.Equal(t, ch.ID, *res.History.ChannelID)
	assert.Nil(t, res.History.ContentID)

	stored := h.reload(sub.ID)
	assert.Equal(t, int64(30), stored.CurrentCredits)
	assert.Equal(t, int64(20), stored.MonthlyCreditsUsed)
	assert.Equal(t, int64(1), h.historyCount(userID))

	res, err = h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindContent, ItemID: movie.ID})
	require.ErrorIs(t, err, entitlementdomain.ErrInsufficientCredits)
	require.NotNil(t, res)
	assert.Equal(t, int64(30), res.Balance)
	assert.Nil(t, res.History)

	assert.Equal(t, int64(30), h.reload(sub.ID).CurrentCredits)
	assert.Equal(t, int64(1), h.historyCount(userID))
}

func TestAttemptWatchContentDoesNotCountMonthlyUsage(t *testing.T) {
	h := newHarness(t)
	userID := h.node.Generate()
	sub := h.subscription(userID, 10, subscriptiondomain.SubscriptionStatusActive)
	movie := h.content(4)

	res, err := h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindContent, ItemID: movie.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Balance)
	assert.Equal(t, int64(0), h.reload(sub.ID).MonthlyCreditsUsed)
}

func TestAttemptWatchExactBalanceSucceeds(t *testing.T) {
	h := newHarness(t)
	userID := h.node.Generate()
	h.subscription(userID, 5, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(5, true)

	res, err := h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Balance)
}

func TestAttemptWatchRejectsWithoutWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	active := h.node.Generate()
	h.subscription(active, 10, subscriptiondomain.SubscriptionStatusActive)
	inactive := h.node.Generate()
	h.subscription(inactive, 10, subscriptiondomain.SubscriptionStatusInactive)
	orphan := h.node.Generate()

	ch := h.channel(1, true)
	hidden := h.channel(1, false)

	cases := []struct {
		name string
		req  entitlementdomain.WatchRequest
		want error
	}{
		{"no subscription", entitlementdomain.WatchRequest{UserID: orphan, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID}, entitlementdomain.ErrNoActiveSubscription},
		{"inactive subscription", entitlementdomain.WatchRequest{UserID: inactive, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID}, entitlementdomain.ErrNoActiveSubscription},
		{"inactive channel", entitlementdomain.WatchRequest{UserID: active, ItemKind: entitlementdomain.ItemKindChannel, ItemID: hidden.ID}, entitlementdomain.ErrItemNotFound},
		{"missing content", entitlementdomain.WatchRequest{UserID: active, ItemKind: entitlementdomain.ItemKindContent, ItemID: 42}, entitlementdomain.ErrItemNotFound},
		{"unknown kind", entitlementdomain.WatchRequest{UserID: active, ItemKind: "radio", ItemID: ch.ID}, entitlementdomain.ErrInvalidItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.AttemptWatch(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var total int64
	require.NoError(t, h.db.Model(&entitlementdomain.WatchHistory{}).Count(&total).Error)
	assert.Zero(t, total)
}

func TestAttemptWatchConcurrentSingleSuccess(t *testing.T) {
	h := newHarness(t)
	userID := h.node.Generate()
	sub := h.subscription(userID, 10, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(10, true)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{
				UserID:   userID,
				ItemKind: entitlementdomain.ItemKindChannel,
				ItemID:   ch.ID,
			})
		}(i)
	}
	wg.Wait()

	var ok, denied int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, entitlementdomain.ErrInsufficientCredits):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, denied)
	assert.Equal(t, int64(0), h.reload(sub.ID).CurrentCredits)
	assert.Equal(t, int64(1), h.historyCount(userID))
}

func TestAttemptWatchDebitAgainstChangedBalance(t *testing.T) {
	stale := &staleSubscriptions{Repository: subscriptionrepo.Provide()}
	h := newHarnessWithSubRepo(t, stale)
	userID := h.node.Generate()
	sub := h.subscription(userID, 5, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(10, true)

	snapshot := *sub
	snapshot.CurrentCredits = 10
	stale.snapshot = &snapshot

	res, err := h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
	require.ErrorIs(t, err, entitlementdomain.ErrInsufficientCredits)
	require.NotNil(t, res)
	assert.Equal(t, int64(5), res.Balance)
	assert.Nil(t, res.History)

	stored := h.reload(sub.ID)
	assert.Equal(t, int64(5), stored.CurrentCredits)
	assert.Equal(t, int64(0), stored.MonthlyCreditsUsed)
	assert.Zero(t, h.historyCount(userID))
}

func TestAttemptWatchDebitAgainstDeactivatedSubscription(t *testing.T) {
	stale := &staleSubscriptions{Repository: subscriptionrepo.Provide()}
	h := newHarnessWithSubRepo(t, stale)
	userID := h.node.Generate()
	sub := h.subscription(userID, 10, subscriptiondomain.SubscriptionStatusInactive)
	ch := h.channel(10, true)

	snapshot := *sub
	snapshot.Status = subscriptiondomain.SubscriptionStatusActive
	stale.snapshot = &snapshot

	_, err := h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
	require.ErrorIs(t, err, entitlementdomain.ErrNoActiveSubscription)

	assert.Equal(t, int64(10), h.reload(sub.ID).CurrentCredits)
	assert.Zero(t, h.historyCount(userID))
}

func TestAttemptWatchIdempotencyKeyBoundToItem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.node.Generate()
	sub := h.subscription(userID, 50, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(20, true)
	otherChannel := h.channel(5, true)
	movie := h.content(5)

	_, err := h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID, IdempotencyKey: "k"})
	require.NoError(t, err)

	reuses := []entitlementdomain.WatchRequest{
		{UserID: userID, ItemKind: entitlementdomain.ItemKindContent, ItemID: movie.ID, IdempotencyKey: "k"},
		{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: otherChannel.ID, IdempotencyKey: "k"},
		{UserID: userID, ItemKind: entitlementdomain.ItemKindContent, ItemID: ch.ID, IdempotencyKey: "k"},
	}
	for _, req := range reuses {
		res, err := h.svc.AttemptWatch(ctx, req)
		assert.ErrorIs(t, err, entitlementdomain.ErrIdempotencyKeyReused)
		assert.Nil(t, res)
	}

	assert.Equal(t, int64(30), h.reload(sub.ID).CurrentCredits)
	assert.Equal(t, int64(1), h.historyCount(userID))

	other := h.node.Generate()
	h.subscription(other, 50, subscriptiondomain.SubscriptionStatusActive)
	res, err := h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: other, ItemKind: entitlementdomain.ItemKindContent, ItemID: movie.ID, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.WatchStatusAccepted, res.Status)
}

func TestAttemptWatchIdempotencyKeyChargesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.node.Generate()
	sub := h.subscription(userID, 50, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(20, true)

	req := entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID, IdempotencyKey: " play-1 "}
	first, err := h.svc.AttemptWatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.WatchStatusAccepted, first.Status)

	second, err := h.svc.AttemptWatch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.WatchStatusDeduplicated, second.Status)
	assert.Equal(t, first.History.ID, second.History.ID)
	assert.Equal(t, int64(30), second.Balance)

	assert.Equal(t, int64(30), h.reload(sub.ID).CurrentCredits)
	assert.Equal(t, int64(1), h.historyCount(userID))

	other, err := h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID, IdempotencyKey: "play-2"})
	require.NoError(t, err)
	assert.Equal(t, entitlementdomain.WatchStatusAccepted, other.Status)
	assert.Equal(t, int64(10), other.Balance)
}

func TestAttemptWatchPublishesOwnedChanges(t *testing.T) {
	h := newHarness(t)
	userID := h.node.Generate()
	h.subscription(userID, 5, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(1, true)

	subs, err := h.hub.Subscribe(realtime.Filter{Table: realtime.TableUserSubscriptions, UserID: userID})
	require.NoError(t, err)
	defer subs.Close()
	history, err := h.hub.Subscribe(realtime.Filter{Table: realtime.TableWatchHistory, UserID: userID})
	require.NoError(t, err)
	defer history.Close()

	res, err := h.svc.AttemptWatch(context.Background(), entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
	require.NoError(t, err)

	select {
	case c := <-subs.Events():
		assert.Equal(t, realtime.OpUpdate, c.Op)
	case <-time.After(time.Second):
		t.Fatal("no subscription change")
	}
	select {
	case c := <-history.Events():
		assert.Equal(t, realtime.OpInsert, c.Op)
		assert.Equal(t, res.History.ID, c.RecordID)
	case <-time.After(time.Second):
		t.Fatal("no history change")
	}
}

func TestListHistoryNewestFirstWithCursor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := h.node.Generate()
	h.subscription(userID, 100, subscriptiondomain.SubscriptionStatusActive)
	ch := h.channel(1, true)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		res, err := h.svc.AttemptWatch(ctx, entitlementdomain.WatchRequest{UserID: userID, ItemKind: entitlementdomain.ItemKindChannel, ItemID: ch.ID})
		require.NoError(t, err)
		ids = append(ids, res.History.ID)
		h.clock.Advance(time.Second)
	}

	page, err := h.svc.ListHistory(ctx, userID, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.History, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[2], page.History[0].ID)
	assert.Equal(t, ids[1], page.History[1].ID)

	next, err := h.svc.ListHistory(ctx, userID, pagination.Pagination{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, next.History, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, ids[0], next.History[0].ID)
}
