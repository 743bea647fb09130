package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanNullString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"RAHUL KUMAR", "RAHUL KUMAR"},
		{"  spaced  ", "spaced"},
		{"null", ""},
		{"NULL", ""},
		{"None", ""},
		{"n/a", ""},
		{"NA", ""},
		{"nil", ""},
		{"", ""},
		{"nullify", "nullify"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, cleanNullString(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeQualification(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10th", "Class 10"},
		{"Class X", "Class 10"},
		{"Matriculation (10)", "Class 10"},
		{"12th", "Class 12"},
		{"Class XII", "Class 12"},
		{"Senior Secondary (Class 12)", "Class 12"},
		{"Intermediate 12", "Class 12"},
		{"Diploma in Electrical", "Diploma in Electrical"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizeQualification(tt.input), "input %q", tt.input)
	}
}
