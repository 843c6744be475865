package drive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor phases. A full listing walks files.list pages while carrying
// the changes start token captured before the first page; once the
// listing completes the cursor flips to the changes phase and every
// later pass replays changes.list from the stored token.
const (
	PhaseFull    = "full"
	PhaseChanges = "changes"
)

// ErrInvalidCursor indicates the cursor could not be decoded.
var ErrInvalidCursor = errors.New("drive: invalid cursor format")

// Cursor tracks Drive sync state across the snapshot and delta phases.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`

	// Phase selects the listing strategy for the next fetch.
	Phase string `json:"phase"`

	// PageToken continues the current phase: a files.list page token in
	// the full phase, a changes.list token in the changes phase.
	PageToken string `json:"page_token"`

	// StartToken is the changes.getStartPageToken() value captured at
	// the beginning of the full listing. It seeds the first delta pass.
	StartToken string `json:"start_token,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{
		Version: CursorVersion,
		Phase:   PhaseFull,
	}
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserializes a cursor from a base64 string.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, ErrInvalidCursor
	}

	// Version check for future migrations
	if cursor.Version > CursorVersion {
		return nil, ErrInvalidCursor
	}

	if cursor.Phase == "" {
		cursor.Phase = PhaseFull
	}

	return &cursor, nil
}
