package ai

import "testing"

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "plain object", input: ` {"a":1} `, expect: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", expect: `{"a":1}`},
		{name: "surrounding prose", input: "Here you go: {\"a\":{\"b\":2}} hope it helps", expect: `{"a":{"b":2}}`},
		{name: "no object", input: "READY", expect: ""},
		{name: "reversed braces", input: "} nope {", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractJSON(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
