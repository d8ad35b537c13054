package ai

import (
	"embed"
	"fmt"
	"os"
	"strings"
)

//go:embed personas/*.md
var personaFiles embed.FS

// DefaultInstructions returns the built-in system instruction of every persona.
func DefaultInstructions() map[Persona]string {
	instructions := make(map[Persona]string, len(Personas))
	for _, persona := range Personas {
		data, err := personaFiles.ReadFile("personas/" + string(persona) + ".md")
		if err != nil {
			panic(fmt.Sprintf("missing embedded instructions for %s: %v", persona, err))
		}
		instructions[persona] = strings.TrimSpace(string(data))
	}
	return instructions
}

// LoadInstructions starts from the built-in instructions and replaces the ones
// whose persona has an override file.
func LoadInstructions(overrides map[string]string) (map[Persona]string, error) {
	instructions := DefaultInstructions()

	for name, file := range overrides {
		persona := Persona(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := instructions[persona]; !ok {
			return nil, fmt.Errorf("unknown persona %q", name)
		}

		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s instructions from %q: %w", persona, file, err)
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("%s instructions file %q is empty", persona, file)
		}
		instructions[persona] = text
	}

	return instructions, nil
}
