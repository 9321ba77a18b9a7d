package id

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	got, err := Generate(Pairing)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(got, "pair-") {
		t.Errorf("id = %q, want pair- prefix", got)
	}
	if len(got) != len("pair-")+21 {
		t.Errorf("id length = %d, want %d", len(got), len("pair-")+21)
	}
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		got := MustGenerate(Delivery)
		if seen[got] {
			t.Fatalf("duplicate id %q", got)
		}
		seen[got] = true
	}
}
