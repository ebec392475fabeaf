package handler

import "testing"

func TestNormalizeSeatIDs_Clean(t *testing.T) {
	clean, dupIndex, emptyIndex := normalizeSeatIDs([]string{" A1 ", "A2", "A3"})
	if dupIndex != -1 || emptyIndex != -1 {
		t.Fatalf("expected no dup/empty, got dupIndex=%d emptyIndex=%d", dupIndex, emptyIndex)
	}
	want := []string{"A1", "A2", "A3"}
	for i, sid := range want {
		if clean[i] != sid {
			t.Fatalf("clean[%d] = %q, want %q", i, clean[i], sid)
		}
	}
}

func TestNormalizeSeatIDs_DetectsDuplicate(t *testing.T) {
	_, dupIndex, emptyIndex := normalizeSeatIDs([]string{"A1", "A2", "A1"})
	if dupIndex != 2 {
		t.Fatalf("dupIndex = %d, want 2", dupIndex)
	}
	if emptyIndex != -1 {
		t.Fatalf("emptyIndex = %d, want -1", emptyIndex)
	}
}

func TestNormalizeSeatIDs_DetectsEmpty(t *testing.T) {
	_, dupIndex, emptyIndex := normalizeSeatIDs([]string{"A1", "  ", "A2"})
	if emptyIndex != 1 {
		t.Fatalf("emptyIndex = %d, want 1", emptyIndex)
	}
	if dupIndex != -1 {
		t.Fatalf("dupIndex = %d, want -1", dupIndex)
	}
}

func TestNormalizeSeatIDs_FirstDuplicateWins(t *testing.T) {
	_, dupIndex, _ := normalizeSeatIDs([]string{"A1", "A1", "A1"})
	if dupIndex != 1 {
		t.Fatalf("dupIndex = %d, want 1 (first repeat)", dupIndex)
	}
}
