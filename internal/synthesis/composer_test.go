package synthesis

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompose(t *testing.T) {
	unit := NewTargetUnit("add", "func add(x, y int) int {\n\treturn x + y\n}")
	testCode := "func TestAdd() {\n\texpect(add(1, 2) == 3)\n}"

	artifact, err := Compose(unit, testCode, []string{"TestAdd"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if artifact.TargetStart != 3 {
		t.Errorf("TargetStart = %d, want 3", artifact.TargetStart)
	}

	lines := strings.Split(artifact.Source, "\n")
	if lines[0] != "package main" {
		t.Errorf("line 1 = %q, want package clause", lines[0])
	}
	if got := lines[artifact.TargetStart-1]; !strings.HasPrefix(got, "func add") {
		t.Errorf("line %d = %q, want target's first line", artifact.TargetStart, got)
	}

	for _, want := range []string{"guard(TestAdd)", "func RunTests() {", "func expect(ok bool)", "func guard(fn func())"} {
		if !strings.Contains(artifact.Source, want) {
			t.Errorf("artifact missing %q", want)
		}
	}

	// The artifact must stand alone as valid Go.
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "artifact.go", artifact.Source, 0); err != nil {
		t.Errorf("artifact does not parse: %v", err)
	}
}

func TestCompose_MultipleEntryPoints(t *testing.T) {
	unit := NewTargetUnit("add", "func add(x, y int) int {\n\treturn x + y\n}")
	testCode := "func TestPos() {\n\texpect(add(1, 1) == 2)\n}\n\nfunc TestNeg() {\n\texpect(add(-1, -1) == -2)\n}"

	artifact, err := Compose(unit, testCode, []string{"TestPos", "TestNeg"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, want := range []string{"guard(TestPos)", "guard(TestNeg)"} {
		if !strings.Contains(artifact.Source, want) {
			t.Errorf("artifact missing %q", want)
		}
	}
}

func TestCompose_NoEntryPoints(t *testing.T) {
	unit := NewTargetUnit("add", "func add(x, y int) int { return x + y }")
	_, err := Compose(unit, "not a test", nil)
	if !errors.Is(err, ErrNoTestFound) {
		t.Fatalf("err = %v, want ErrNoTestFound", err)
	}
}

func TestFilterToTarget(t *testing.T) {
	unit := NewTargetUnit("clamp", strings.Join([]string{
		"func clamp(x int) int {",
		"\tif x < 0 {",
		"\t\tx = 0",
		"\t}",
		"\treturn x",
		"}",
	}, "\n"))
	artifact := &Artifact{TargetStart: 3}

	tests := []struct {
		name    string
		missing []int
		want    []int
	}{
		{
			name:    "inside the window",
			missing: []int{5, 7},
			want:    []int{3, 5},
		},
		{
			name:    "scaffolding lines dropped",
			missing: []int{1, 2, 5, 40, 55},
			want:    []int{3},
		},
		{
			name:    "window's final line excluded",
			missing: []int{artifact.TargetStart + unit.LineCount - 1},
			want:    nil,
		},
		{
			name:    "nothing missing",
			missing: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := artifact.FilterToTarget(unit, tt.missing)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterToTarget mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewTargetUnit_Normalizes(t *testing.T) {
	withNewline := NewTargetUnit("a", "func a() {}\n")
	withoutNewline := NewTargetUnit("a", "func a() {}")

	if diff := cmp.Diff(withNewline, withoutNewline); diff != "" {
		t.Errorf("units differ (-with +without):\n%s", diff)
	}
	if withNewline.LineCount != 1 {
		t.Errorf("LineCount = %d, want 1", withNewline.LineCount)
	}
}
