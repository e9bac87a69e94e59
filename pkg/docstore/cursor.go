package docstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is a continuation token: it carries the ordering criterion, the page
// size and the position of the last document already returned, so the next
// page can be computed by a fresh query independent of any backend handle.
// Callers treat it as opaque; Encode/DecodeCursor make it transportable.
type Cursor struct {
	OrderBy   string
	Limit     int
	LastValue any
	LastID    string
}

// cursorWire is the token layout. Plain JSON flattens a time-valued anchor
// into a string, which would no longer compare as a time against backend
// data, so time anchors are tagged and restored on decode.
type cursorWire struct {
	OrderBy   string `json:"order_by"`
	Limit     int    `json:"limit"`
	LastValue any    `json:"last_value,omitempty"`
	LastKind  string `json:"last_kind,omitempty"`
	LastID    string `json:"last_id"`
}

const cursorKindTime = "time"

// MarshalJSON implements json.Marshaler.
func (c Cursor) MarshalJSON() ([]byte, error) {
	w := cursorWire{OrderBy: c.OrderBy, Limit: c.Limit, LastValue: c.LastValue, LastID: c.LastID}
	if t, ok := c.LastValue.(time.Time); ok {
		w.LastValue = t.Format(time.RFC3339Nano)
		w.LastKind = cursorKindTime
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	var w cursorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.OrderBy = w.OrderBy
	c.Limit = w.Limit
	c.LastValue = w.LastValue
	c.LastID = w.LastID
	if w.LastKind == cursorKindTime {
		s, ok := w.LastValue.(string)
		if !ok {
			return fmt.Errorf("time anchor must be a string, got %T", w.LastValue)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("malformed time anchor: %v", err)
		}
		c.LastValue = t
	}
	return nil
}

// Encode serializes the cursor into a URL-safe token.
func (c *Cursor) Encode() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.LastID == "" {
		return nil, fmt.Errorf("%w: missing last id", ErrInvalidCursor)
	}
	return &c, nil
}

func (c *Cursor) anchor() Anchor {
	return Anchor{SortValue: c.LastValue, ID: c.LastID}
}
