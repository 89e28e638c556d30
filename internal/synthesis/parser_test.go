package synthesis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTestFunctions(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "single test",
			response: "func TestAdd() {\n\texpect(add(1, 2) == 3)\n}\n",
			want:     []string{"TestAdd"},
		},
		{
			name: "multiple tests with helper code",
			response: "func TestOne() {\n}\n\nfunc helper() {}\n\nfunc TestTwo() {\n}\n",
			want: []string{"TestOne", "TestTwo"},
		},
		{
			name:     "indented declaration",
			response: "\t func TestIndented() {\n\t }\n",
			want:     []string{"TestIndented"},
		},
		{
			name:     "prose around the code",
			response: "Here is a test:\n\nfunc TestThing() {\n\texpect(true)\n}\n\nHope that helps!\n",
			want:     []string{"TestThing"},
		},
		{
			name:     "no tests",
			response: "I cannot write a test for that.\n",
			want:     nil,
		},
		{
			name:     "non-test function only",
			response: "func setup() {\n}\n",
			want:     nil,
		},
		{
			name:     "declaration without parenthesis is skipped",
			response: "func TestBroken\n",
			want:     nil,
		},
		{
			name:     "name trimmed before parenthesis",
			response: "func TestSpaced () {\n}\n",
			want:     []string{"TestSpaced"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTestFunctions(tt.response)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTestFunctions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
