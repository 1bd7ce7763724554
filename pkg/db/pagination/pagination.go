// Package pagination implements opaque cursor tokens for keyset-paginated
// list endpoints. A token encodes the sort key of the last row on the page;
// the next request resumes strictly after that row.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Pagination is the common query shape shared by list requests.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

// Cursor is the decoded resume point. Both fields participate in the keyset
// comparison so rows created at the same instant still order deterministically.
type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

var errEmptyCursor = errors.New("empty cursor")

// Tokens are URL-safe so they can ride in query strings without escaping.
var tokenEncoding = base64.RawURLEncoding

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, errEmptyCursor
	}
	b, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	c := new(Cursor)
	if err := json.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BuildCursorPageInfo derives page metadata from an over-fetched result set.
// Callers query limit+1 rows; the extra row only signals that another page
// exists and must be dropped by the caller before responding. The next token
// points at the last row that stays on this page.
func BuildCursorPageInfo[T any](rows []*T, limit int32, extractCursor func(*T) string) *PageInfo {
	if len(rows) == 0 {
		return &PageInfo{}
	}

	last := len(rows) - 1
	info := &PageInfo{}
	if int32(len(rows)) > limit {
		info.HasMore = true
		last = int(limit) - 1
	}
	info.NextPageToken = extractCursor(rows[last])

	return info
}
