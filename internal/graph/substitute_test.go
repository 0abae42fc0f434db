package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/cph/internal/ports"
)

func TestSubstituteResults(t *testing.T) {
	t.Parallel()

	results := map[string]ports.OperationResult{
		"test":   {Success: true, Stdout: "5/5", ReturnCode: 0},
		"step_3": {Success: false, Stderr: "oops", ReturnCode: 2},
	}
	lookup := MapLookup(results)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "stdout and returncode", in: "{{step_test.stdout}} ({{step_test.returncode}})", want: "5/5 (0)"},
		{name: "result prefix", in: "{{step_test.result.stdout}}", want: "5/5"},
		{name: "node id fallback", in: "{{step_3.stderr}}/{{step_3.success}}", want: "oops/false"},
		{name: "unknown id", in: "{{step_missing.stdout}}", want: "{{step_missing.stdout}}"},
		{name: "unknown field", in: "{{step_test.exitcode}}", want: "{{step_test.exitcode}}"},
		{name: "no placeholders", in: "plain {text}", want: "plain {text}"},
		{name: "malformed", in: "{{step_test}}", want: "{{step_test}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SubstituteResults(tt.in, lookup))
		})
	}
}

func TestSubstituteResultsWithoutLookup(t *testing.T) {
	t.Parallel()

	require.Equal(t, "{{step_0.stdout}}", SubstituteResults("{{step_0.stdout}}", nil))
}
