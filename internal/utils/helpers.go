package utils

import (
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
)

// SheetDateLayout is the only date layout written to the job tab.
const SheetDateLayout = "02/01/2006"

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(SheetDateLayout)
}

// ParseYMD parses yyyy-mm-dd, the layout HTML date inputs submit.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseDate accepts dd/mm/yyyy (with or without zero padding), yyyy-mm-dd
// and RFC3339.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{SheetDateLayout, "2/1/2006"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := ParseYMD(s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// NormalizeDate rewrites any accepted layout as dd/mm/yyyy. Values that do
// not parse are returned trimmed but otherwise unchanged.
func NormalizeDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return FormatDate(t)
}

// JobToStruct converts a job into the structpb payload served over gRPC.
func JobToStruct(j *entity.Job) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"uid":            j.ID,
		"customerName":   j.CustomerName,
		"mobileNumber":   j.MobileNumber,
		"mobileModel":    j.MobileModel,
		"issue":          j.Issue,
		"components":     j.Components,
		"status":         j.Status,
		"entryDate":      j.EntryDate,
		"completionDate": j.CompletionDate,
		"totalAmount":    j.TotalAmount,
		"notes":          j.Notes,
	})
}

// JobsToList wraps several jobs in a structpb list value.
func JobsToList(jobs []*entity.Job) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(jobs))
	for _, j := range jobs {
		s, err := JobToStruct(j)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}
