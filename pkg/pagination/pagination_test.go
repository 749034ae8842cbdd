package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.FixedZone("PHT", 8*3600)), ID: uuid.New()}
	encoded := EncodeCursor(in)
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")

	out, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorBlankAndInvalid(t *testing.T) {
	c, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{"***", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{})[:10]} {
		_, err := ParseCursor(bad)
		assert.True(t, errors.Is(err, ErrInvalidCursor), "value %q: %v", bad, err)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrim(t *testing.T) {
	key := func(n int) Cursor { return Cursor{ID: uuid.NewSHA1(uuid.Nil, []byte{byte(n)})} }

	page, next := Trim([]int{1, 2, 3}, 2, key)
	assert.Equal(t, []int{1, 2}, page)
	require.NotNil(t, next)
	assert.Equal(t, key(2).ID, next.ID)

	page, next = Trim([]int{1, 2}, 2, key)
	assert.Equal(t, []int{1, 2}, page)
	assert.Nil(t, next)
}

func TestCursorClauses(t *testing.T) {
	c := Cursor{CreatedAt: time.Unix(0, 0), ID: uuid.New()}
	clause, args := c.Before("created_at")
	assert.Equal(t, "(created_at < ? OR (created_at = ? AND id < ?))", clause)
	assert.Len(t, args, 3)

	clause, _ = c.After("sent_at")
	assert.Equal(t, "(sent_at > ? OR (sent_at = ? AND id > ?))", clause)
}
