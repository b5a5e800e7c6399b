package graph

import "testing"

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{in: int64(7), want: 7},
		{in: 3, want: 3},
		{in: float64(2), want: 2},
		{in: nil, want: 0},
		{in: "5", want: 0},
	}
	for _, tt := range tests {
		if got := toInt(tt.in); got != tt.want {
			t.Fatalf("toInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestToString(t *testing.T) {
	if got := toString("A씨"); got != "A씨" {
		t.Fatalf("unexpected %q", got)
	}
	if got := toString(nil); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
}
