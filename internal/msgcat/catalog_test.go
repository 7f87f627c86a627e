package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := cat.Render("move.played", map[string]any{"Name": "Nate", "Move": "e4"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Nate played e4" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderUnknownKey(t *testing.T) {
	cat, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := cat.Render("no.such.key", nil); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
	if got := cat.Line("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("Line fallback = %q, want the key itself", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := []byte("move:\n  invalid: \"Nope.\"\n")
	if err := os.WriteFile(filepath.Join(dir, "messages.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	cat, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := cat.Line("move.invalid", nil); got != "Nope." {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep their embedded wording.
	if got := cat.Line("move.notyourturn", nil); got != "It isn't your turn" {
		t.Fatalf("embedded key lost: %q", got)
	}
}
