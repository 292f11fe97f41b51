package assembly

import (
	"fmt"
	"strings"
)

// Validator collects configuration problems so they can be reported together.
type Validator struct {
	problems []string
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		problems: make([]string, 0),
	}
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.problems = append(v.problems, fmt.Sprintf("%s is required", field))
	}
}

// RequireNoPathTraversal validates that a name doesn't escape its directory
func (v *Validator) RequireNoPathTraversal(field, value string) {
	if strings.Contains(value, "..") {
		v.problems = append(v.problems, fmt.Sprintf("%s contains invalid path traversal", field))
	}
}

// RequireItems validates that a list has at least one entry
func (v *Validator) RequireItems(field string, n int) {
	if n == 0 {
		v.problems = append(v.problems, fmt.Sprintf("%s is empty", field))
	}
}

// RequireInRange validates lo <= value <= hi
func (v *Validator) RequireInRange(field string, value, lo, hi int) {
	if value < lo || value > hi {
		v.problems = append(v.problems, fmt.Sprintf("%s %d outside [%d, %d]", field, value, lo, hi))
	}
}

// IsValid returns true if there are no validation problems
func (v *Validator) IsValid() bool {
	return len(v.problems) == 0
}

// Problems returns all validation problems
func (v *Validator) Problems() []string {
	return v.problems
}

// Error returns a single string with all problems
func (v *Validator) Error() string {
	return strings.Join(v.problems, "; ")
}
