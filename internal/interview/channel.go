package interview

import "context"

// Channel carries one user utterance in and one advisor reply out per turn.
// Receive returns io.EOF when the user side is gone.
type Channel interface {
	Receive(ctx context.Context) (string, error)
	Send(ctx context.Context, text string) error
}

// StreamChannel renders advisor replies incrementally. Flush ends the current reply.
type StreamChannel interface {
	Channel
	SendChunk(ctx context.Context, chunk string) error
	Flush(ctx context.Context) error
}
