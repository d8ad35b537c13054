package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultInstructionsCoverEveryPersona(t *testing.T) {
	instructions := DefaultInstructions()

	for _, persona := range Personas {
		if strings.TrimSpace(instructions[persona]) == "" {
			t.Fatalf("expected instructions for %s", persona)
		}
	}
}

func TestLoadInstructionsOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "validator.md")
	if err := os.WriteFile(file, []byte("  custom validator  \n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	instructions, err := LoadInstructions(map[string]string{"Validator": file})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := instructions[PersonaValidator]; got != "custom validator" {
		t.Fatalf("unexpected validator instructions: %q", got)
	}
	if instructions[PersonaAnalyzer] != DefaultInstructions()[PersonaAnalyzer] {
		t.Fatalf("analyzer instructions must keep the default")
	}
}

func TestLoadInstructionsRejectsUnknownPersona(t *testing.T) {
	if _, err := LoadInstructions(map[string]string{"critic": "x.md"}); err == nil {
		t.Fatal("expected error for unknown persona")
	}
}

func TestLoadInstructionsRejectsEmptyFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(file, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadInstructions(map[string]string{"analyzer": file}); err == nil {
		t.Fatal("expected error for empty instructions file")
	}
}
