package layout

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Fractions", 20, "Fractions"},
		{"Fractions", 9, "Fractions"},
		{"Fractions", 5, "Frac…"},
		{"Fractions", 1, "…"},
		{"Fractions", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestIsTooSmall(t *testing.T) {
	if !IsTooSmall(MinWidth-1, MinHeight) {
		t.Error("expected narrow terminal to be too small")
	}
	if IsTooSmall(MinWidth, MinHeight) {
		t.Error("expected minimum size to fit")
	}
}

func TestRenderHeaderShowsStatus(t *testing.T) {
	h := RenderHeader("Board", "2 syncing", 100)
	if !strings.Contains(h, "2 syncing") || !strings.Contains(h, "quizcal") {
		t.Errorf("header missing parts:\n%s", h)
	}
}
