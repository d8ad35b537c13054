package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionOutput(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)

	if got := out.String(); !strings.HasPrefix(got, "cv-advisor version: unknown (commit none, go") {
		t.Fatalf("unexpected version output: %q", got)
	}
}
