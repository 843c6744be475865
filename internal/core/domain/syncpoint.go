package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// SyncPoint is a durable checkpoint for one sync scope. Absence of a
// sync point is a valid, meaningful state: it triggers a full pass, and
// is distinct from a present-but-empty cursor.
type SyncPoint struct {
	// Key is the scope key, built with SyncPointKey.
	Key string

	// Cursor is the opaque cursor payload: a provider page token, a delta
	// token, or an encoded watermark.
	Cursor string

	// UpdatedAt is when the checkpoint was last written.
	UpdatedAt time.Time
}

// SyncPointKey builds a scope key from the record kind, scope kind and
// scope identity, e.g. SyncPointKey("inst-1", "records", "users", "u-42")
// -> "inst-1/records:users:u-42".
func SyncPointKey(instanceID, recordKind, scopeKind, scopeID string) string {
	return fmt.Sprintf("%s/%s:%s:%s", instanceID, recordKind, scopeKind, scopeID)
}

// WatermarkCursorVersion is the current watermark cursor schema version.
const WatermarkCursorVersion = 1

// ErrInvalidCursor indicates a cursor payload could not be decoded.
var ErrInvalidCursor = fmt.Errorf("invalid cursor format")

// WatermarkCursor is the engine-owned cursor for time-descending delta
// pagination: the stored high-water mark is the newest source-reported
// modification time fully processed by a previous pass.
type WatermarkCursor struct {
	// Version is the schema version for future migrations.
	Version int `json:"v"`

	// Watermark is the high-water mark. Items at or before it have
	// already been synced.
	Watermark time.Time `json:"watermark"`
}

// NewWatermarkCursor creates a watermark cursor.
func NewWatermarkCursor(watermark time.Time) *WatermarkCursor {
	return &WatermarkCursor{
		Version:   WatermarkCursorVersion,
		Watermark: watermark,
	}
}

// Encode serialises the cursor to a base64-encoded JSON string.
func (c *WatermarkCursor) Encode() string {
	if c == nil {
		return ""
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeWatermarkCursor deserialises a watermark cursor. An empty input
// yields a zero watermark (full pass).
func DecodeWatermarkCursor(s string) (*WatermarkCursor, error) {
	if s == "" {
		return NewWatermarkCursor(time.Time{}), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor WatermarkCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}
	if cursor.Version > WatermarkCursorVersion {
		return nil, ErrInvalidCursor
	}

	return &cursor, nil
}

// Advance returns a cursor whose watermark is the later of the current
// watermark and t. The watermark never regresses.
func (c *WatermarkCursor) Advance(t time.Time) *WatermarkCursor {
	if t.After(c.Watermark) {
		return NewWatermarkCursor(t)
	}
	return NewWatermarkCursor(c.Watermark)
}
