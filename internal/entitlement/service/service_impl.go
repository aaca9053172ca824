package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	"github.com/smallbiznis/streamhub/internal/clock"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	obsmetrics "github.com/smallbiznis/streamhub/internal/observability/metrics"
	"github.com/smallbiznis/streamhub/internal/realtime"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outcomeAccepted       = "accepted"
	outcomeDeduplicated   = "deduplicated"
	outcomeInsufficient   = "insufficient_credits"
	outcomeNoSubscription = "no_active_subscription"
	outcomeNotFound       = "item_not_found"
	outcomeInvalid        = "invalid_item"
	outcomeKeyReused      = "idempotency_key_reused"
	outcomeError          = "error"
)

// errDuplicateWatch aborts the transaction when a concurrent request with the
// same idempotency key committed first.
var errDuplicateWatch = errors.New("duplicate_watch")

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        entitlementdomain.Repository
	SubRepo     subscriptiondomain.Repository
	CatalogRepo catalogdomain.Repository
	Metrics     *obsmetrics.Metrics `optional:"true"`
	Publisher   realtime.Publisher  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        entitlementdomain.Repository
	subRepo     subscriptiondomain.Repository
	catalogRepo catalogdomain.Repository
	metrics     *obsmetrics.Metrics
	publisher   realtime.Publisher
}

func NewService(p ServiceParam) entitlementdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("entitlement.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		subRepo:     p.SubRepo,
		catalogRepo: p.CatalogRepo,
		metrics:     p.Metrics,
		publisher:   p.Publisher,
	}
}

// AttemptWatch charges the item's cost against the caller's active
// subscription and records one history row, all in one transaction. The
// balance is only ever decremented by a conditional update, so concurrent
// attempts can never overdraw it.
func (s *Service) AttemptWatch(ctx context.Context, req entitlementdomain.WatchRequest) (*entitlementdomain.WatchResult, error) {
	if !req.ItemKind.Valid() {
		s.metrics.RecordWatchAttempt(ctx, string(req.ItemKind), outcomeInvalid)
		return nil, entitlementdomain.ErrInvalidItem
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	var (
		result  *entitlementdomain.WatchResult
		charged *subscriptiondomain.UserSubscription
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIdempotencyKey(ctx, tx, req.UserID, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.Matches(req.ItemKind, req.ItemID) {
				return entitlementdomain.ErrIdempotencyKeyReused
			}
			balance, err := s.balance(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			result = &entitlementdomain.WatchResult{
				Status:  entitlementdomain.WatchStatusDeduplicated,
				Balance: balance,
				History: existing,
			}
			return nil
		}

		cost, err := s.resolveCost(ctx, tx, req)
		if err != nil {
			return err
		}

		sub, err := s.subRepo.FindActiveByUserID(ctx, tx, req.UserID)
		if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
			return entitlementdomain.ErrNoActiveSubscription
		}
		if err != nil {
			return err
		}
		if sub.CurrentCredits < cost {
			result = &entitlementdomain.WatchResult{Balance: sub.CurrentCredits}
			return entitlementdomain.ErrInsufficientCredits
		}

		now := s.clock.Now()
		ok, err := s.subRepo.Debit(ctx, tx, subscriptiondomain.DebitRequest{
			SubscriptionID: sub.ID,
			Amount:         cost,
			CountUsage:     req.ItemKind == entitlementdomain.ItemKindChannel,
			At:             now,
		})
		if err != nil {
			return err
		}
		if !ok {
			// Lost a race against another debit; report the balance it left.
			latest, err := s.subRepo.FindByID(ctx, tx, sub.ID)
			if err != nil {
				return err
			}
			result = &entitlementdomain.WatchResult{Balance: latest.CurrentCredits}
			if !latest.IsActive() {
				return entitlementdomain.ErrNoActiveSubscription
			}
			return entitlementdomain.ErrInsufficientCredits
		}

		entry := &entitlementdomain.WatchHistory{
			ID:           s.genID.Generate(),
			UserID:       req.UserID,
			CreditsSpent: cost,
			WatchedAt:    now,
		}
		itemID := req.ItemID
		if req.ItemKind == entitlementdomain.ItemKindChannel {
			entry.ChannelID = &itemID
		} else {
			entry.ContentID = &itemID
		}
		if key != "" {
			entry.IdempotencyKey = &key
		}

		inserted, err := s.repo.Insert(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateWatch
		}

		latest, err := s.subRepo.FindByID(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		charged = latest
		result = &entitlementdomain.WatchResult{
			Status:  entitlementdomain.WatchStatusAccepted,
			Balance: latest.CurrentCredits,
			History: entry,
		}
		return nil
	})

	kind := string(req.ItemKind)
	switch {
	case err == nil:
	case errors.Is(err, errDuplicateWatch):
		return s.loadDuplicate(ctx, req, key)
	case errors.Is(err, entitlementdomain.ErrInsufficientCredits):
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeInsufficient)
		return result, err
	case errors.Is(err, entitlementdomain.ErrNoActiveSubscription):
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeNoSubscription)
		return nil, err
	case errors.Is(err, entitlementdomain.ErrItemNotFound):
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeNotFound)
		return nil, err
	case errors.Is(err, entitlementdomain.ErrInvalidItem):
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeInvalid)
		return nil, err
	case errors.Is(err, entitlementdomain.ErrIdempotencyKeyReused):
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeKeyReused)
		return nil, err
	default:
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeError)
		s.log.Error("watch attempt failed",
			zap.String("user_id", req.UserID.String()),
			zap.String("item_kind", kind),
			zap.String("item_id", req.ItemID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", entitlementdomain.ErrStoreUnavailable, err)
	}

	if result.Status == entitlementdomain.WatchStatusDeduplicated {
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeDeduplicated)
		return result, nil
	}

	s.metrics.RecordWatchAttempt(ctx, kind, outcomeAccepted)
	s.metrics.RecordCreditsSpent(ctx, kind, result.History.CreditsSpent)
	s.log.Info("watch accepted",
		zap.String("user_id", req.UserID.String()),
		zap.String("item_kind", kind),
		zap.String("item_id", req.ItemID.String()),
		zap.Int64("credits_spent", result.History.CreditsSpent),
		zap.Int64("balance", result.Balance),
	)
	s.publish(ctx, charged, result.History)
	return result, nil
}

func (s *Service) ListHistory(ctx context.Context, userID snowflake.ID, page pagination.Pagination) (*entitlementdomain.HistoryListResponse, error) {
	rows, err := s.repo.ListByUser(ctx, s.db, userID, page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entitlementdomain.ErrStoreUnavailable, err)
	}
	history, info := pagination.BuildCursorPageInfo(rows, page.Limit(), func(h *entitlementdomain.WatchHistory) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: h.ID.String()})
		return token
	})
	return &entitlementdomain.HistoryListResponse{PageInfo: *info, History: history}, nil
}

// resolveCost loads the requested catalog item and returns its price.
// Missing and inactive items are indistinguishable to the caller.
func (s *Service) resolveCost(ctx context.Context, tx *gorm.DB, req entitlementdomain.WatchRequest) (int64, error) {
	catalog := s.catalogRepo.WithTx(tx)

	var (
		cost   int64
		active bool
	)
	switch req.ItemKind {
	case entitlementdomain.ItemKindChannel:
		channel, err := catalog.FindChannel(ctx, req.ItemID)
		if errors.Is(err, catalogdomain.ErrChannelNotFound) {
			return 0, entitlementdomain.ErrItemNotFound
		}
		if err != nil {
			return 0, err
		}
		cost, active = channel.CreditsCost, channel.IsActive
	default:
		item, err := catalog.FindContent(ctx, req.ItemID)
		if errors.Is(err, catalogdomain.ErrContentNotFound) {
			return 0, entitlementdomain.ErrItemNotFound
		}
		if err != nil {
			return 0, err
		}
		cost, active = item.CreditsCost, item.IsActive
	}

	if !active {
		return 0, entitlementdomain.ErrItemNotFound
	}
	if cost < 0 {
		return 0, entitlementdomain.ErrInvalidItem
	}
	return cost, nil
}

func (s *Service) balance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	sub, err := s.subRepo.FindByUserID(ctx, db, userID)
	if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return sub.CurrentCredits, nil
}

func (s *Service) loadDuplicate(ctx context.Context, req entitlementdomain.WatchRequest, key string) (*entitlementdomain.WatchResult, error) {
	kind := string(req.ItemKind)
	existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, req.UserID, key)
	if err == nil && existing == nil {
		err = errors.New("duplicate watch row missing")
	}
	if err != nil {
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeError)
		return nil, fmt.Errorf("%w: %w", entitlementdomain.ErrStoreUnavailable, err)
	}
	if !existing.Matches(req.ItemKind, req.ItemID) {
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeKeyReused)
		return nil, entitlementdomain.ErrIdempotencyKeyReused
	}
	balance, err := s.balance(ctx, s.db, req.UserID)
	if err != nil {
		s.metrics.RecordWatchAttempt(ctx, kind, outcomeError)
		return nil, fmt.Errorf("%w: %w", entitlementdomain.ErrStoreUnavailable, err)
	}
	s.metrics.RecordWatchAttempt(ctx, kind, outcomeDeduplicated)
	return &entitlementdomain.WatchResult{
		Status:  entitlementdomain.WatchStatusDeduplicated,
		Balance: balance,
		History: existing,
	}, nil
}

func (s *Service) publish(ctx context.Context, sub *subscriptiondomain.UserSubscription, entry *entitlementdomain.WatchHistory) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, realtime.Change{
		Table:    realtime.TableUserSubscriptions,
		Op:       realtime.OpUpdate,
		RecordID: sub.ID,
		UserID:   sub.UserID,
		At:       sub.UpdatedAt,
	})
	s.publisher.Publish(ctx, realtime.Change{
		Table:    realtime.TableWatchHistory,
		Op:       realtime.OpInsert,
		RecordID: entry.ID,
		UserID:   entry.UserID,
		At:       entry.WatchedAt,
	})
}
