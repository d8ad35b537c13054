package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	DefaultPrompt  = "\nYour response (or type 'done' to finish):\n> "
	DefaultSpeaker = "Career Advisor"
)

// Console talks to the user over a terminal.
type Console struct {
	in      *bufio.Reader
	out     io.Writer
	prompt  string
	speaker string

	mu        sync.Mutex
	streaming bool
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:      bufio.NewReader(in),
		out:     out,
		prompt:  DefaultPrompt,
		speaker: DefaultSpeaker,
	}
}

// Receive blocks until the user enters a line. io.EOF is returned once input is closed.
func (c *Console) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	_, err := io.WriteString(c.out, c.prompt)
	c.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := c.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (c *Console) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.streaming = false
	_, err := fmt.Fprintf(c.out, "\n%s: %s\n", c.speaker, strings.TrimSpace(text))
	return err
}

func (c *Console) SendChunk(_ context.Context, chunk string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streaming {
		if _, err := fmt.Fprintf(c.out, "\n%s: ", c.speaker); err != nil {
			return err
		}
		c.streaming = true
	}

	_, err := io.WriteString(c.out, chunk)
	return err
}

func (c *Console) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.streaming {
		return nil
	}
	c.streaming = false
	_, err := io.WriteString(c.out, "\n")
	return err
}
