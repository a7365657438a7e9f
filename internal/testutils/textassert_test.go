//go:build test

package testutils

import (
	"fmt"
	"strings"
	"testing"
)

// recordingT captures Errorf calls so assertion failures can be inspected
type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestTextAsserter_Match(t *testing.T) {
	tests := []struct {
		name     string
		opts     []TextOption
		actual   string
		expected string
	}{
		{
			name:     "identical",
			actual:   "State:      running\nPasses:     3\n",
			expected: "State:      running\nPasses:     3\n",
		},
		{
			name:     "trailing whitespace ignored by default",
			actual:   "SENSOR  NAME    \nA4:C1   kitchen  ",
			expected: "SENSOR  NAME\nA4:C1   kitchen",
		},
		{
			name:     "empty lines ignored",
			opts:     []TextOption{WithIgnoreEmptyLines(true)},
			actual:   "a\n\n\nb",
			expected: "a\nb",
		},
		{
			name:     "trim space",
			opts:     []TextOption{WithTrimSpace(true)},
			actual:   "\n\nbody\n\n",
			expected: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingT{}
			NewTextAsserter(rec).WithOptions(tt.opts...).Assert(tt.actual, tt.expected)
			if len(rec.errors) != 0 {
				t.Errorf("expected match, got: %v", rec.errors)
			}
		})
	}
}

func TestTextAsserter_MismatchReportsUnifiedDiff(t *testing.T) {
	rec := &recordingT{}
	NewTextAsserter(rec).WithOptions(WithIgnoreTrailingWhitespace(false)).
		Assert("State: faulted\nPasses: 3", "State: running\nPasses: 3")

	if len(rec.errors) != 1 {
		t.Fatalf("expected one failure, got %d", len(rec.errors))
	}
	msg := rec.errors[0]
	for _, want := range []string{"--- expected", "+++ actual", "-State: running", "+State: faulted"} {
		if !strings.Contains(msg, want) {
			t.Errorf("diff MUST contain %q, got:\n%s", want, msg)
		}
	}
}
