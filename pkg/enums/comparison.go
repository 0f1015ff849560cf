package enums

import "fmt"

// ComparisonStatus tracks the lifecycle of a folder's comparison.
type ComparisonStatus string

const (
	ComparisonStatusDraft      ComparisonStatus = "draft"
	ComparisonStatusInProgress ComparisonStatus = "in_progress"
	ComparisonStatusCompleted  ComparisonStatus = "completed"
)

var validComparisonStatuses = []ComparisonStatus{
	ComparisonStatusDraft,
	ComparisonStatusInProgress,
	ComparisonStatusCompleted,
}

// String implements fmt.Stringer.
func (s ComparisonStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ComparisonStatus.
func (s ComparisonStatus) IsValid() bool {
	for _, candidate := range validComparisonStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseComparisonStatus converts raw input into a ComparisonStatus.
func ParseComparisonStatus(value string) (ComparisonStatus, error) {
	for _, candidate := range validComparisonStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid comparison status %q", value)
}
