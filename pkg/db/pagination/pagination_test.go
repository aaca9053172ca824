package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorEncoding(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	ids := []int{5, 4, 3}
	items := make([]*int, 0, len(ids))
	for i := range ids {
		items = append(items, &ids[i])
	}

	page, info := BuildCursorPageInfo(items, 2, func(v *int) string {
		if *v == 4 {
			return "next"
		}
		return "wrong"
	})
	assert.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, "next", info.NextPageToken)

	page, info = BuildCursorPageInfo(items, 3, func(*int) string { return "x" })
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestLimitClamp(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
