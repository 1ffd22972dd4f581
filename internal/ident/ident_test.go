package ident

import (
	"testing"

	"github.com/lotas/seitenleiste/internal/types"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Work", "work"},
		{"  WORK  ", "work"},
		{"Side   Project", "side project"},
		{"\tReading\n", "reading"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.input); got != tt.expected {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestUniqueSkipsTakenIDs(t *testing.T) {
	seq := []types.ID{"a", "", "b", "c"}
	i := 0
	gen := func() types.ID {
		id := seq[i]
		i++
		return id
	}
	taken := Set{"a": {}, "b": {}}

	got := Unique(gen, taken.Has)
	if got != "c" {
		t.Errorf("Unique = %q, want c", got)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := Set{}
	for range 100 {
		id := New()
		if seen.Has(id) {
			t.Fatalf("duplicate id %q", id)
		}
		seen.Add(id)
	}
}
