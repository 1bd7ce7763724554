package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T15:04:05Z"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", decoded.ID)
	assert.Equal(t, "2026-01-02T15:04:05Z", decoded.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not base64 at all!!")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID string }
	extract := func(r *row) string { return r.ID }

	t.Run("empty", func(t *testing.T) {
		info := BuildCursorPageInfo(nil, 10, extract)
		assert.False(t, info.HasMore)
	})

	t.Run("has more", func(t *testing.T) {
		rows := []*row{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		info := BuildCursorPageInfo(rows, 2, extract)
		assert.True(t, info.HasMore)
		assert.Equal(t, "b", info.NextPageToken)
	})

	t.Run("exact page", func(t *testing.T) {
		rows := []*row{{ID: "a"}, {ID: "b"}}
		info := BuildCursorPageInfo(rows, 2, extract)
		assert.False(t, info.HasMore)
		assert.Equal(t, "b", info.NextPageToken)
	})
}
