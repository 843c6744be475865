package notion

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
)

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, cursor.IsEmpty())
}

func TestCursor_EncodeDecode_Roundtrip(t *testing.T) {
	original := &Cursor{Version: CursorVersion, StartCursor: "abc-123"}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
	assert.False(t, decoded.IsEmpty())
}

func TestDecodeCursor_WatermarkReadsAsFreshPass(t *testing.T) {
	// Between passes the checkpoint holds the engine's watermark cursor,
	// which carries no search cursor of its own.
	wm := domain.NewWatermarkCursor(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	decoded, err := DecodeCursor(wm.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.IsEmpty())
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	_, err := DecodeCursor("!!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDecodeCursor_FutureVersion(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"v":99}`))
	_, err := DecodeCursor(raw)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
