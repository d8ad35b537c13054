package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestWaitForReturnsWhenSleepFinishes(t *testing.T) {
	var slept time.Duration
	err := WaitFor(context.Background(), 3*time.Second, func(d time.Duration) { slept = d })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected sleep of 3s, got %s", slept)
	}
}

func TestWaitForHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	defer close(block)

	err := WaitFor(ctx, time.Minute, func(time.Duration) { <-block })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
