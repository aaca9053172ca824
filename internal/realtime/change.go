// Package realtime delivers row-change notifications to interested listeners.
package realtime

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

const (
	TableTasks             = "tasks"
	TableUserSubscriptions = "user_subscriptions"
	TableWatchHistory      = "watch_history"
	TableChannels          = "channels"
	TableContent           = "content"
)

// Change describes one committed row change. UserID is zero for rows that
// are not owned by a user, such as catalog entries.
type Change struct {
	Table    string       `json:"table"`
	Op       Op           `json:"op"`
	RecordID snowflake.ID `json:"record_id"`
	UserID   snowflake.ID `json:"user_id,omitempty"`
	At       time.Time    `json:"at"`
	Origin   string       `json:"origin,omitempty"`
}

// Filter selects changes for one table. A zero UserID matches every row.
type Filter struct {
	Table  string
	UserID snowflake.ID
}

func (f Filter) Matches(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	return f.UserID == 0 || f.UserID == c.UserID
}

// Publisher is implemented by the local hub and by the Redis bridge.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// Subscriber opens filtered change streams.
type Subscriber interface {
	Subscribe(filter Filter) (*Subscription, error)
}

// IsKnownTable reports whether clients may subscribe to table.
func IsKnownTable(table string) bool {
	switch table {
	case TableTasks, TableUserSubscriptions, TableWatchHistory, TableChannels, TableContent:
		return true
	}
	return false
}
