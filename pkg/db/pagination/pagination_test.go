package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Normalize().PageSize)
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Normalize().PageSize)
	assert.Equal(t, 5, Pagination{PageSize: 5}.Normalize().PageSize)
}

func TestBuildCursorPageInfoRoundTripsLastID(t *testing.T) {
	rows := []int64{10, 20, 30}

	page, info, err := BuildCursorPageInfo(rows, 2, func(v int64) int64 { return v })
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, page)
	assert.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.AfterID()
	require.NoError(t, err)
	assert.Equal(t, int64(20), after)
}

func TestBuildCursorPageInfoLastPage(t *testing.T) {
	page, info, err := BuildCursorPageInfo([]int64{1}, 2, func(v int64) int64 { return v })
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestAfterIDRejectsGarbage(t *testing.T) {
	_, err := Pagination{PageToken: "%%%"}.AfterID()
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}
