package constants

import "strings"

// JobStatus is the canonical status stored in the Status column of the job tab.
type JobStatus string

// Stable values (store these exact strings in the sheet).
const (
	JobStatusPending    JobStatus = "Pending"
	JobStatusInProgress JobStatus = "In Progress"
	JobStatusCompleted  JobStatus = "Completed"
)

var allStatuses = []JobStatus{
	JobStatusPending,
	JobStatusInProgress,
	JobStatusCompleted,
}

// StatusStrings returns the canonical statuses in display order.
func StatusStrings() []string {
	result := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		result[i] = string(s)
	}
	return result
}

// NormalizeStatus maps raw sheet values onto the canonical casing, comparing
// case-insensitively. Anything else is returned unchanged so legacy values
// survive a read.
func NormalizeStatus(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, s := range allStatuses {
		if normalized == strings.ToLower(string(s)) {
			return string(s)
		}
	}
	return raw
}

// IsCanonicalStatus reports whether s is one of the three canonical values.
func IsCanonicalStatus(s string) bool {
	for _, st := range allStatuses {
		if s == string(st) {
			return true
		}
	}
	return false
}
