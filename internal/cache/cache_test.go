package cache

import (
	"testing"
	"time"

	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCacheInvalidate(t *testing.T) {
	c, err := NewCatalogCache()
	require.NoError(t, err)

	filter := catalogdomain.ChannelFilter{Search: "News"}
	c.SetChannels(filter, []catalogdomain.Channel{{Name: "News 24"}})
	c.Invalidate()

	_, ok := c.GetChannels(filter)
	assert.False(t, ok)
}

func TestKeysNormalizeSearch(t *testing.T) {
	assert.Equal(t,
		channelKey(catalogdomain.ChannelFilter{Search: " News "}),
		channelKey(catalogdomain.ChannelFilter{Search: "news"}),
	)
	assert.NotEqual(t,
		contentKey(catalogdomain.ContentFilter{Type: catalogdomain.ContentTypeMovie}),
		contentKey(catalogdomain.ContentFilter{Type: catalogdomain.ContentTypeSeries}),
	)
}

func TestTTLCacheDel(t *testing.T) {
	c, err := NewTTLCache[int](16)
	require.NoError(t, err)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Del("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
