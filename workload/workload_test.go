package workload

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestGenerateDeterministic(t *testing.T) {
	spec := Spec{Lines: 1000, DecorationRate: 0.3}

	c1 := Generate(spec)
	c2 := Generate(spec)

	if c1.Text() != c2.Text() {
		t.Error("workloads are not deterministic for same spec")
	}

	if c1.Decorations != c2.Decorations {
		t.Errorf("decorations differ: %d vs %d", c1.Decorations, c2.Decorations)
	}
}

func TestGenerateDecorationCount(t *testing.T) {
	tests := []struct {
		lines int
		rate  float64
	}{
		{100, 0}, {1000, 0}, {10000, 0},
		{100, 1}, {1000, 1}, {10000, 1},
		{100, 0.1}, {1000, 0.1}, {10000, 0.1},
		{1000, 0.5}, {7, 0.33},
	}

	for _, tt := range tests {
		got := Generate(Spec{Lines: tt.lines, DecorationRate: tt.rate}).Decorations
		want := int(math.Floor(float64(tt.lines) * tt.rate))

		if got < want-1 || got > want+1 {
			t.Errorf("lines=%d rate=%g: decorations = %d, want %d±1",
				tt.lines, tt.rate, got, want)
		}
	}
}

func TestGenerateBoundaries(t *testing.T) {
	if got := Generate(Spec{Lines: 100, DecorationRate: 0}).Decorations; got != 0 {
		t.Errorf("rate 0: decorations = %d, want 0", got)
	}

	if got := Generate(Spec{Lines: 100, DecorationRate: 1}).Decorations; got != 100 {
		t.Errorf("rate 1: decorations = %d, want 100", got)
	}
}

func TestGenerateEmpty(t *testing.T) {
	c := Generate(Spec{Lines: 0, DecorationRate: 0.5})

	if c.Text() != "" {
		t.Errorf("text = %q, want empty", c.Text())
	}
	if c.Decorations != 0 {
		t.Errorf("decorations = %d, want 0", c.Decorations)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestGenerateKindCycle(t *testing.T) {
	c := Generate(Spec{Lines: 100, DecorationRate: 0.1})

	var kinds []Kind

	for _, line := range c.Lines {
		switch {
		case strings.Contains(line, `// @whiteout: "REDACTED"`):
			kinds = append(kinds, KindInline)
		case line == "// @whiteout-start":
			kinds = append(kinds, KindBlock)
		case strings.Contains(line, "// @whiteout-partial"):
			kinds = append(kinds, KindPartial)
		}
	}

	if len(kinds) != c.Decorations {
		t.Fatalf("found %d decorated lines, want %d", len(kinds), c.Decorations)
	}

	seen := make(map[Kind]bool)
	for i, k := range kinds {
		if k != KindOf(i) {
			t.Errorf("decorated line %d: kind = %s, want %s", i, k, KindOf(i))
		}
		seen[k] = true
	}

	for _, k := range []Kind{KindInline, KindBlock, KindPartial} {
		if !seen[k] {
			t.Errorf("missing %s decoration", k)
		}
	}
}

func TestGenerateBlockShape(t *testing.T) {
	c := Generate(Spec{Lines: 10, DecorationRate: 0.2})

	want := []string{
		`let secret_0 = "confidential_0"; // @whiteout: "REDACTED"`,
		"// @whiteout-start",
		"const DEBUG_1 = true;",
		"// @whiteout-end",
		"const DEBUG_1 = false;",
		"let variable_2 = 2;",
	}

	for i, w := range want {
		if c.Lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, c.Lines[i], w)
		}
	}
}

func TestContentWriteToAndSize(t *testing.T) {
	c := Generate(Spec{Lines: 50, DecorationRate: 0.5})

	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	if int(n) != c.Size() {
		t.Errorf("wrote %d bytes, Size() = %d", n, c.Size())
	}
	if buf.String() != c.Text() {
		t.Error("written bytes differ from Text()")
	}
	if strings.HasSuffix(buf.String(), "\n") {
		t.Error("unexpected trailing newline")
	}
}

func TestContentClone(t *testing.T) {
	c := Generate(Spec{Lines: 10, DecorationRate: 0.1})
	cl := c.Clone()
	cl.Lines[0] = "mutated"

	if c.Lines[0] == "mutated" {
		t.Error("clone shares backing array with original")
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"valid", Spec{Lines: 10, DecorationRate: 0.5}, false},
		{"zero lines", Spec{Lines: 0, DecorationRate: 0}, false},
		{"negative lines", Spec{Lines: -1, DecorationRate: 0}, true},
		{"rate above one", Spec{Lines: 1, DecorationRate: 1.1}, true},
		{"negative rate", Spec{Lines: 1, DecorationRate: -0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
