package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncPointKey(t *testing.T) {
	key := SyncPointKey("inst-1", "records", "users", "u-42")
	assert.Equal(t, "inst-1/records:users:u-42", key)
}

func TestSyncPointKey_DistinctScopes(t *testing.T) {
	a := SyncPointKey("inst-1", "records", "drives", "d-1")
	b := SyncPointKey("inst-1", "records", "drives", "d-2")
	c := SyncPointKey("inst-2", "records", "drives", "d-1")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestWatermarkCursor_EncodeDecode(t *testing.T) {
	wm := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	cursor := NewWatermarkCursor(wm)

	encoded := cursor.Encode()
	require.NotEmpty(t, encoded)

	decoded, err := DecodeWatermarkCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, WatermarkCursorVersion, decoded.Version)
	assert.True(t, decoded.Watermark.Equal(wm))
}

func TestDecodeWatermarkCursor_Empty(t *testing.T) {
	cursor, err := DecodeWatermarkCursor("")
	require.NoError(t, err)
	assert.True(t, cursor.Watermark.IsZero())
}

func TestDecodeWatermarkCursor_Invalid(t *testing.T) {
	_, err := DecodeWatermarkCursor("not base64 ---")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	// Valid base64, invalid JSON
	_, err = DecodeWatermarkCursor("bm90IGpzb24=")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDecodeWatermarkCursor_FutureVersion(t *testing.T) {
	cursor := &WatermarkCursor{Version: WatermarkCursorVersion + 1}
	_, err := DecodeWatermarkCursor(cursor.Encode())
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestWatermarkCursor_Advance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cursor := NewWatermarkCursor(base)

	// Later time advances
	later := base.Add(time.Hour)
	advanced := cursor.Advance(later)
	assert.True(t, advanced.Watermark.Equal(later))

	// Earlier time never regresses
	earlier := base.Add(-time.Hour)
	kept := cursor.Advance(earlier)
	assert.True(t, kept.Watermark.Equal(base))

	// Zero time never regresses
	kept = cursor.Advance(time.Time{})
	assert.True(t, kept.Watermark.Equal(base))
}
