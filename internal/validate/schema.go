package validate

import (
	"regexp"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
)

func float(f float64) *float64 { return &f }

// JobSchema holds the rules applied when a job is created. Use
// JobSchema.Partial() for updates.
var JobSchema = Schema{
	{Name: "uid", Rule: Rule{Type: TypeString, MaxLength: 20, Pattern: regexp.MustCompile(`^[A-Z0-9]+$`)}},
	{Name: "customerName", Rule: Rule{Type: TypeString, MaxLength: 100, Required: true}},
	{Name: "mobileNumber", Rule: Rule{Type: TypeString, Pattern: regexp.MustCompile(`^\d{10}$`), Required: true}},
	{Name: "mobileModel", Rule: Rule{Type: TypeString, MaxLength: 50, Required: true}},
	{Name: "issue", Rule: Rule{Type: TypeString, MaxLength: 500, Required: true}},
	{Name: "customIssue", Rule: Rule{Type: TypeString, MaxLength: 200}},
	{Name: "components", Rule: Rule{Type: TypeString, MaxLength: 500}},
	{Name: "status", Rule: Rule{Type: TypeString, Enum: constants.StatusStrings()}},
	{Name: "entryDate", Rule: Rule{Type: TypeString, MaxLength: 25}},
	{Name: "expectedDate", Rule: Rule{Type: TypeString, MaxLength: 25}},
	{Name: "completionDate", Rule: Rule{Type: TypeString, MaxLength: 25}},
	{Name: "totalAmount", Rule: Rule{Type: TypeNumber, Min: float(0), Max: float(999999)}},
	{Name: "notes", Rule: Rule{Type: TypeString, MaxLength: 1000}},
}

// StatusSchema validates the body of a status-only update.
var StatusSchema = Schema{
	{Name: "status", Rule: Rule{Type: TypeString, Enum: constants.StatusStrings(), Required: true}},
}
