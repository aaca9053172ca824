// Package domain describes credit-gated viewing: a watch attempt spends
// credits from the user's subscription and leaves a history row.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ItemKind string

const (
	ItemKindChannel ItemKind = "channel"
	ItemKindContent ItemKind = "content"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindChannel || k == ItemKindContent
}

type WatchStatus string

const (
	WatchStatusAccepted     WatchStatus = "accepted"
	WatchStatusDeduplicated WatchStatus = "deduplicated"
)

// WatchHistory is append-only. Exactly one of ChannelID and ContentID is set.
type WatchHistory struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID  `gorm:"column:user_id;not null;index;uniqueIndex:ux_watch_history_user_key,priority:1" json:"user_id"`
	ChannelID      *snowflake.ID `gorm:"column:channel_id" json:"channel_id,omitempty"`
	ContentID      *snowflake.ID `gorm:"column:content_id" json:"content_id,omitempty"`
	CreditsSpent   int64         `gorm:"column:credits_spent;not null" json:"credits_spent"`
	IdempotencyKey *string       `gorm:"column:idempotency_key;uniqueIndex:ux_watch_history_user_key,priority:2" json:"idempotency_key,omitempty"`
	WatchedAt      time.Time     `gorm:"column:watched_at;not null" json:"watched_at"`
}

// TableName sets the database table name.
func (WatchHistory) TableName() string { return "watch_history" }

// Kind reports which catalog table the row points at.
func (h WatchHistory) Kind() ItemKind {
	if h.ChannelID != nil {
		return ItemKindChannel
	}
	return ItemKindContent
}

// Matches reports whether the row records a view of the given item.
func (h WatchHistory) Matches(kind ItemKind, itemID snowflake.ID) bool {
	switch kind {
	case ItemKindChannel:
		return h.ChannelID != nil && *h.ChannelID == itemID
	case ItemKindContent:
		return h.ContentID != nil && *h.ContentID == itemID
	}
	return false
}
