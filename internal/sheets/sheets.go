// Package sheets is the row-oriented view of the spreadsheet that backs the
// application: two named tabs, one for jobs and one for admin credentials.
package sheets

import (
	"context"
	"strings"
)

// Row is one data row of a tab. Number is the 1-based sheet row (the header
// is row 1), Values are aligned to the tab's header row.
type Row struct {
	Number int
	Values []string
}

// Cell returns the value at column index i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// SetCell writes v at column index i, growing the row when needed.
func (r *Row) SetCell(i int, v string) {
	if i < 0 {
		return
	}
	for len(r.Values) <= i {
		r.Values = append(r.Values, "")
	}
	r.Values[i] = v
}

// Tab is a single worksheet treated as a table.
type Tab interface {
	Title() string
	Headers(ctx context.Context) ([]string, error)
	Rows(ctx context.Context) ([]Row, error)
	Append(ctx context.Context, values []string) error
	Update(ctx context.Context, row Row) error
	Delete(ctx context.Context, row Row) error
}

// Client hands out the two tabs the application works with. Implementations
// keep one connection handle and re-establish it on demand.
type Client interface {
	Jobs(ctx context.Context) (Tab, error)
	Admins(ctx context.Context) (Tab, error)
	Ping(ctx context.Context) error
	Close() error
}

// HeaderIndex maps trimmed header names to their column index. The first
// occurrence wins when a header is repeated.
func HeaderIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func pad(values []string, width int) []string {
	if len(values) >= width {
		return values
	}
	out := make([]string, width)
	copy(out, values)
	return out
}
