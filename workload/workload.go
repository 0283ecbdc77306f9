// Package workload generates deterministic synthetic source files for
// benchmarking the whiteout clean/smudge filter. Each file is a run of
// plain variable declarations with a leading fraction of lines carrying
// whiteout decorations.
package workload

import (
	"fmt"
	"io"
	"strings"
)

// Kind identifies the decoration attached to a decorated line.
type Kind int

const (
	// KindInline is a `// @whiteout: "REDACTED"` marker on a declaration.
	KindInline Kind = iota
	// KindBlock wraps a debug declaration in @whiteout-start/@whiteout-end,
	// followed by the production value of the same name.
	KindBlock
	// KindPartial marks a line holding `[[local||remote]]` URL alternatives.
	KindPartial
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindBlock:
		return "block"
	case KindPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// KindOf returns the decoration kind used for line index i.
func KindOf(i int) Kind {
	return Kind(i % 3)
}

// Spec describes a synthetic workload request.
type Spec struct {
	Lines          int
	DecorationRate float64
}

// Validate checks that the spec is in range.
func (s Spec) Validate() error {
	if s.Lines < 0 {
		return fmt.Errorf("lines must be non-negative, got %d", s.Lines)
	}

	if s.DecorationRate < 0 || s.DecorationRate > 1 {
		return fmt.Errorf(
			"decoration rate must be between 0 and 1, got %g",
			s.DecorationRate,
		)
	}

	return nil
}

// Content is a generated workload. Lines must not be modified once the
// content is shared; use Clone for an independent copy.
type Content struct {
	Lines       []string
	Decorations int
}

// Text returns the lines joined by newlines, without a trailing newline.
func (c Content) Text() string {
	return strings.Join(c.Lines, "\n")
}

// Size returns the length of Text in bytes.
func (c Content) Size() int {
	if len(c.Lines) == 0 {
		return 0
	}

	n := len(c.Lines) - 1
	for _, l := range c.Lines {
		n += len(l)
	}

	return n
}

// SizeKB returns Size in kibibytes.
func (c Content) SizeKB() float64 {
	return float64(c.Size()) / 1024
}

// Clone returns a copy that shares no backing array with c.
func (c Content) Clone() Content {
	lines := make([]string, len(c.Lines))
	copy(lines, c.Lines)

	return Content{Lines: lines, Decorations: c.Decorations}
}

// WriteTo writes Text to w.
func (c Content) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, c.Text())

	return int64(n), err
}

// Generate builds the content for s. Decorations are front-loaded: line i
// is decorated iff i/Lines < DecorationRate.
func Generate(s Spec) Content {
	if s.Lines <= 0 {
		return Content{}
	}

	lines := make([]string, 0, s.Lines)
	decorations := 0

	for i := 0; i < s.Lines; i++ {
		if float64(i)/float64(s.Lines) >= s.DecorationRate {
			lines = append(lines, fmt.Sprintf("let variable_%d = %d;", i, i))

			continue
		}

		decorations++

		switch KindOf(i) {
		case KindInline:
			lines = append(lines, fmt.Sprintf(
				`let secret_%d = "confidential_%d"; // @whiteout: "REDACTED"`,
				i, i,
			))
		case KindBlock:
			lines = append(lines,
				"// @whiteout-start",
				fmt.Sprintf("const DEBUG_%d = true;", i),
				"// @whiteout-end",
				fmt.Sprintf("const DEBUG_%d = false;", i),
			)
		case KindPartial:
			lines = append(lines, fmt.Sprintf(
				`let url = "[[http://localhost:%d||https://api.example.com]]"; // @whiteout-partial`,
				i,
			))
		}
	}

	return Content{Lines: lines, Decorations: decorations}
}
