// Package validate cleans and checks job records before they reach the
// spreadsheet. Records are always sanitised first, then validated, so rules
// only ever see cleaned values.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
)

// Record is a loosely typed job payload keyed by field name.
type Record map[string]any

// String returns the value of field as a string. Numbers are formatted the
// way they were received; absent and nil values are "".
func (r Record) String(field string) string {
	return stringify(r[field])
}

// Has reports whether field is present, even if empty.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// Rule constrains one field. Zero values disable a check.
type Rule struct {
	Type      FieldType
	MaxLength int
	Pattern   *regexp.Regexp
	Enum      []string
	Min       *float64
	Max       *float64
	Required  bool
}

// Field binds a rule to a record field.
type Field struct {
	Name string
	Rule Rule
}

// Schema is an ordered rule set. Violations are reported in schema order.
type Schema []Field

// Partial returns a copy of s with every Required flag cleared, for updates
// that send only the fields being changed.
func (s Schema) Partial() Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		f.Rule.Required = false
		out[i] = f
	}
	return out
}

type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + " " + v.Message
}

type Violations []Violation

// Err returns nil for an empty list, otherwise a *ValidationError.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// ValidationError carries every violation found in one record.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "Validation failed: " + strings.Join(msgs, ", ")
}

func (e *ValidationError) Unwrap() error {
	return common.ErrValidation
}

// unsafeChars are removed from every string value.
var unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")

// Sanitize returns a new record with < > " ' & stripped from every string
// value and surrounding whitespace trimmed. Other values are copied as is.
func Sanitize(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok {
			out[k] = strings.TrimSpace(unsafeChars.Replace(s))
			continue
		}
		out[k] = v
	}
	return out
}

// Validate checks rec against schema and collects every violation. A
// required field that is missing or empty reports only that it is required.
func Validate(rec Record, schema Schema) Violations {
	var out Violations
	add := func(field, format string, args ...any) {
		out = append(out, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, f := range schema {
		name, rule := f.Name, f.Rule
		value, present := rec[name]
		if !present || isEmpty(value) {
			if rule.Required {
				add(name, "is required")
			}
			continue
		}

		text := stringify(value)
		switch rule.Type {
		case TypeString:
			if _, ok := value.(string); !ok {
				add(name, "must be a string")
			}
		case TypeNumber:
			if _, ok := toNumber(value); !ok {
				add(name, "must be a valid number")
			}
		}

		if rule.MaxLength > 0 {
			if _, ok := value.(string); ok && utf8.RuneCountInString(text) > rule.MaxLength {
				add(name, "exceeds maximum length of %d", rule.MaxLength)
			}
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(text) {
			add(name, "format is invalid")
		}
		if len(rule.Enum) > 0 && !contains(rule.Enum, text) {
			add(name, "must be one of: %s", strings.Join(rule.Enum, ", "))
		}
		if n, ok := toNumber(value); ok {
			if rule.Min != nil && n < *rule.Min {
				add(name, "must be at least %s", formatFloat(*rule.Min))
			}
			if rule.Max != nil && n > *rule.Max {
				add(name, "exceeds maximum value of %s", formatFloat(*rule.Max))
			}
		}
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
