package cache

import (
	"fmt"
	"strings"
	"time"

	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
)

const (
	defaultListingTTL = 30 * time.Second
	defaultMaxEntries = 2048
)

// CatalogCache stores public catalog listings keyed by their filter.
type CatalogCache interface {
	GetChannels(filter catalogdomain.ChannelFilter) ([]catalogdomain.Channel, bool)
	SetChannels(filter catalogdomain.ChannelFilter, channels []catalogdomain.Channel)
	GetContent(filter catalogdomain.ContentFilter) ([]catalogdomain.ContentItem, bool)
	SetContent(filter catalogdomain.ContentFilter, items []catalogdomain.ContentItem)
	Invalidate()
}

type catalogCache struct {
	channels Cache[[]catalogdomain.Channel]
	content  Cache[[]catalogdomain.ContentItem]
	ttl      time.Duration
}

func NewCatalogCache() (CatalogCache, error) {
	channels, err := NewTTLCache[[]catalogdomain.Channel](defaultMaxEntries)
	if err != nil {
		return nil, err
	}
	content, err := NewTTLCache[[]catalogdomain.ContentItem](defaultMaxEntries)
	if err != nil {
		return nil, err
	}
	return &catalogCache{channels: channels, content: content, ttl: defaultListingTTL}, nil
}

func (c *catalogCache) GetChannels(filter catalogdomain.ChannelFilter) ([]catalogdomain.Channel, bool) {
	return c.channels.Get(channelKey(filter))
}

func (c *catalogCache) SetChannels(filter catalogdomain.ChannelFilter, channels []catalogdomain.Channel) {
	c.channels.Set(channelKey(filter), channels, c.ttl)
}

func (c *catalogCache) GetContent(filter catalogdomain.ContentFilter) ([]catalogdomain.ContentItem, bool) {
	return c.content.Get(contentKey(filter))
}

func (c *catalogCache) SetContent(filter catalogdomain.ContentFilter, items []catalogdomain.ContentItem) {
	c.content.Set(contentKey(filter), items, c.ttl)
}

func (c *catalogCache) Invalidate() {
	c.channels.Clear()
	c.content.Clear()
}

func channelKey(f catalogdomain.ChannelFilter) string {
	return fmt.Sprintf("%d|%s|%s|%t",
		f.OrganizationID,
		strings.ToLower(strings.TrimSpace(f.Search)),
		strings.ToLower(strings.TrimSpace(f.Category)),
		f.IncludeInactive,
	)
}

func contentKey(f catalogdomain.ContentFilter) string {
	return fmt.Sprintf("%d|%s|%s|%s|%t",
		f.OrganizationID,
		f.Type,
		strings.ToLower(strings.TrimSpace(f.Search)),
		strings.ToLower(strings.TrimSpace(f.Category)),
		f.IncludeInactive,
	)
}
