package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte(" from-file \n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	t.Setenv("CV_ADVISOR_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{Name: "api key", File: keyFile, Value: "inline", Env: "CV_ADVISOR_TEST_KEY"}, want: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "CV_ADVISOR_TEST_KEY"}, want: "inline"},
		{name: "env fallback", src: Source{Env: "CV_ADVISOR_TEST_KEY"}, want: "from-env"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile}, wantErr: "api key file"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, wantErr: "reading api key from file"},
		{name: "nothing", src: Source{Env: "CV_ADVISOR_TEST_UNSET"}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Load() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadNotConfiguredSentinel(t *testing.T) {
	_, err := Load(Source{Name: "database url"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	got, err := LoadOptional(Source{Name: "redis password"})
	if err != nil {
		t.Fatalf("LoadOptional returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}

	if _, err := LoadOptional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}
