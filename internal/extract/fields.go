package extract

import (
	"fmt"
	"strings"
)

// MatchMode decides how a label's text is compared to FieldSpec.Label
type MatchMode string

const (
	// MatchExact requires case-insensitive equality after whitespace normalization
	MatchExact MatchMode = "exact"
	// MatchContains accepts any label whose text contains FieldSpec.Label
	MatchContains MatchMode = "contains"
)

// FieldSpec names one value to pull from the result page
type FieldSpec struct {
	Key   string    `yaml:"key" json:"key"`
	Label string    `yaml:"label" json:"label"`
	Match MatchMode `yaml:"match,omitempty" json:"match,omitempty"`
}

// AnchorKey is the field that must be present for a page to count as a real result
const AnchorKey = "Vehicle No"

// DefaultFields is the layout of the registration details page.
// Only "Father's Name" uses containment: the site labels it inconsistently.
var DefaultFields = []FieldSpec{
	{Key: "Vehicle No", Label: "Registration Number"},
	{Key: "Model Name", Label: "Model Name"},
	{Key: "Maker Model", Label: "Maker Model"},
	{Key: "Owner Name", Label: "Owner Name"},
	{Key: "Father's Name", Label: "father", Match: MatchContains},
	{Key: "Registered RTO", Label: "Registered RTO"},
	{Key: "Owner Serial No", Label: "Owner Serial No"},
	{Key: "Vehicle Type", Label: "Vehicle Class"},
	{Key: "Fuel Type", Label: "Fuel Type"},
	{Key: "Fuel Norms", Label: "Fuel Norms"},
	{Key: "Chassis No", Label: "Chassis Number"},
	{Key: "Engine No", Label: "Engine Number"},
	{Key: "Registration Date", Label: "Registration Date"},
	{Key: "Registration Upto", Label: "Registration Upto"},
	{Key: "Fitness Upto", Label: "Fitness Upto"},
	{Key: "PUC Upto", Label: "PUC Upto"},
	{Key: "PUC No", Label: "PUC Number"},
	{Key: "Insurance Upto", Label: "Insurance Upto"},
	{Key: "Insurance No", Label: "Insurance Number"},
	{Key: "Insurance Company", Label: "Insurance Company"},
	{Key: "Insurance Expiry In", Label: "Insurance Expiry In"},
	{Key: "Vehicle Age", Label: "Vehicle Age"},
	{Key: "Finance", Label: "Finance"},
	{Key: "Financer Name", Label: "Financier Name"},
}

// Defaults returns a copy of DefaultFields
func Defaults() []FieldSpec {
	out := make([]FieldSpec, len(DefaultFields))
	copy(out, DefaultFields)
	return out
}

// Keys returns the output keys in spec order
func Keys(specs []FieldSpec) []string {
	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = s.Key
	}
	return keys
}

// Validate checks that keys are unique and labels non-empty
func Validate(specs []FieldSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("field spec is empty")
	}
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if strings.TrimSpace(s.Key) == "" {
			return fmt.Errorf("field %d: key is empty", i)
		}
		if strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("field %q: label is empty", s.Key)
		}
		switch s.Match {
		case "", MatchExact, MatchContains:
		default:
			return fmt.Errorf("field %q: unknown match mode %q", s.Key, s.Match)
		}
		if seen[s.Key] {
			return fmt.Errorf("field %q: duplicate key", s.Key)
		}
		seen[s.Key] = true
	}
	return nil
}
