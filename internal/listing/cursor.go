package listing

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor marks the last item of a page: its sort key and id. The next page starts strictly
// after this pair in the listing's order.
type Cursor struct {
	Key string `json:"k"`
	ID  string `json:"id"`
}

// EncodeCursor returns the opaque URL-safe form of a cursor.
func EncodeCursor(key, id string) string {
	data, _ := json.Marshal(Cursor{Key: key, ID: id})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor. ok is false for anything that was not produced by
// [EncodeCursor].
func DecodeCursor(s string) (c Cursor, ok bool) {
	if s == "" {
		return Cursor{}, false
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false
	}
	if c.ID == "" {
		return Cursor{}, false
	}
	return c, true
}
