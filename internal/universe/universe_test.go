package universe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefault(t *testing.T) {
	u, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}

	if len(u.Sectors) != 14 {
		t.Errorf("default universe has %d sectors, want 14", len(u.Sectors))
	}

	adtech, ok := u.Sector("AdTech")
	if !ok {
		t.Fatal("AdTech sector missing from default universe")
	}
	if len(adtech.Members) != 10 {
		t.Errorf("AdTech has %d members, want 10", len(adtech.Members))
	}
}

func TestUniqueSymbolsDeduplicates(t *testing.T) {
	u, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	symbols := u.UniqueSymbols()
	seen := make(map[string]bool)
	googl := false
	for _, s := range symbols {
		if seen[s] {
			t.Errorf("symbol %s appears twice in UniqueSymbols", s)
		}
		seen[s] = true
		if s == "GOOGL" {
			googl = true
		}
	}

	// GOOGL sits in several sectors but must resolve once per run.
	if !googl {
		t.Error("GOOGL missing from unique symbols")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	content := []byte("sectors:\n  - name: Test\n    members: [AAA]\n    weights: [1]\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected strict decoding to reject unknown field")
	}
}

func TestLoadRejectsDuplicateMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	content := []byte("sectors:\n  - name: Test\n    members: [AAA, AAA]\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected duplicate member to be rejected")
	}
}
