package constants

import (
	"strings"
)

type IssueCategory string

const (
	DisplayProblem  IssueCategory = "Display Problem"
	ChargingIssue   IssueCategory = "Charging Issue"
	BatteryProblem  IssueCategory = "Battery Problem"
	SpeakerMicIssue IssueCategory = "Speaker/Mic Issue"
	SoftwareProblem IssueCategory = "Software Problem"
	WaterDamage     IssueCategory = "Water Damage"
	CameraIssue     IssueCategory = "Camera Issue"
	NetworkProblem  IssueCategory = "Network Problem"
	OtherIssue      IssueCategory = "Other"
)

var allIssueCategories = []IssueCategory{
	DisplayProblem,
	ChargingIssue,
	BatteryProblem,
	SpeakerMicIssue,
	SoftwareProblem,
	WaterDamage,
	CameraIssue,
	NetworkProblem,
	OtherIssue,
}

func IssueCategoryStrings() []string {
	result := make([]string, len(allIssueCategories))
	for i, cat := range allIssueCategories {
		result[i] = string(cat)
	}
	return result
}

// CanonicalizeIssue returns the canonical category for input, or false when the
// text is a free-form description.
func CanonicalizeIssue(input string) (IssueCategory, bool) {
	if input == "" {
		return OtherIssue, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]IssueCategory{
		"screen":        DisplayProblem,
		"broken screen": DisplayProblem,
		"display":       DisplayProblem,
		"charging":      ChargingIssue,
		"charging port": ChargingIssue,
		"battery":       BatteryProblem,
		"speaker":       SpeakerMicIssue,
		"mic":           SpeakerMicIssue,
		"microphone":    SpeakerMicIssue,
		"software":      SoftwareProblem,
		"water":         WaterDamage,
		"camera":        CameraIssue,
		"network":       NetworkProblem,
		"no signal":     NetworkProblem,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allIssueCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return OtherIssue, false
}
