package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when no source yields a value.
var ErrNotConfigured = errors.New("not configured")

// Source describes where a credential such as the Gemini API key, the
// database URL or the redis password can be found.
type Source struct {
	// Name is used in error messages.
	Name string
	// File points to a file holding the value. It wins over every other source.
	File string
	// Value is set inline through configuration or flags.
	Value string
	// Env names an environment variable consulted when Value is empty.
	Env string
}

// Load resolves a required credential. Lookup order is File, Value, Env.
// The result is trimmed.
func Load(src Source) (string, error) {
	secret, origin, err := resolve(src)
	if err != nil {
		return "", err
	}
	if secret == "" {
		if origin != "" {
			return "", fmt.Errorf("%s %s is empty", label(src), origin)
		}
		return "", fmt.Errorf("%s is %w", label(src), ErrNotConfigured)
	}
	return secret, nil
}

// LoadOptional behaves like Load but returns an empty value when nothing is configured.
// A configured file that cannot be read is still an error.
func LoadOptional(src Source) (string, error) {
	secret, _, err := resolve(src)
	return secret, err
}

func resolve(src Source) (string, string, error) {
	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", fmt.Errorf("reading %s from file %q: %w", label(src), file, err)
		}
		return strings.TrimSpace(string(data)), fmt.Sprintf("file %q", file), nil
	}

	if value := strings.TrimSpace(src.Value); value != "" {
		return value, "", nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if value, ok := os.LookupEnv(env); ok {
			return strings.TrimSpace(value), fmt.Sprintf("env %s", env), nil
		}
	}

	return "", "", nil
}

func label(src Source) string {
	if name := strings.TrimSpace(src.Name); name != "" {
		return name
	}
	return "secret"
}
