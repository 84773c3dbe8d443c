package repositories

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// PageRequest selects one page. Page 0 starts over; later pages continue after Cursor,
// the Next value of the previous page. Without a cursor a later page is read by offset.
type PageRequest struct {
	Page   int    `query:"page"`
	Size   int    `query:"size"`
	Force  bool   `query:"force"`
	Cursor string `query:"cursor"`
}

// Page is one page of results. Next is empty when no further page is expected.
type Page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}

type cursorToken struct {
	ID string `json:"i"`
	At int64  `json:"t"`
}

// encodeCursor builds the opaque token for the item a page ended on.
func encodeCursor(id string, at time.Time) string {
	b, _ := json.Marshal(cursorToken{ID: id, At: models.Timestamp(at).UnixNano()})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(token string) (*remote.Cursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, models.NewValidationError("cursor", "malformed")
	}
	var c cursorToken
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return nil, models.NewValidationError("cursor", "malformed")
	}
	return &remote.Cursor{ID: c.ID, Value: time.Unix(0, c.At).UTC()}, nil
}

func newPage[T any](items []T, size int, position func(T) (string, time.Time)) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{Items: items}
	if len(items) == size && size > 0 {
		p.Next = encodeCursor(position(items[len(items)-1]))
	}
	return p
}
