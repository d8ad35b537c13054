package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message types exchanged over the websocket.
const (
	TypeStart    = "start"
	TypeUser     = "user"
	TypeEnd      = "end"
	TypeAdvisor  = "advisor"
	TypeChunk    = "chunk"
	TypeFlush    = "flush"
	TypeProgress = "progress"
	TypeReport   = "report"
	TypeError    = "error"
)

var ErrUnexpectedMessage = errors.New("unexpected websocket message")

type Message struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`
	CV    string `json:"cv,omitempty"`
	Job   string `json:"job,omitempty"`
	Step  string `json:"step,omitempty"`
}

// WebSocket adapts a gorilla connection to the interview channel.
// Reads must come from a single goroutine; writes are serialized.
type WebSocket struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
}

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn, writeTimeout: 10 * time.Second}
}

// Start reads the opening message carrying the CV and the job.
func (w *WebSocket) Start(ctx context.Context) (Message, error) {
	msg, err := w.read(ctx)
	if err != nil {
		return Message{}, err
	}
	if msg.Type != TypeStart {
		return Message{}, fmt.Errorf("%w: want %q, got %q", ErrUnexpectedMessage, TypeStart, msg.Type)
	}
	return msg, nil
}

func (w *WebSocket) Receive(ctx context.Context) (string, error) {
	for {
		msg, err := w.read(ctx)
		if err != nil {
			return "", err
		}

		switch msg.Type {
		case TypeUser:
			return strings.TrimSpace(msg.Text), nil
		case TypeEnd:
			return "", io.EOF
		}
	}
}

func (w *WebSocket) Send(_ context.Context, text string) error {
	return w.Write(Message{Type: TypeAdvisor, Text: strings.TrimSpace(text)})
}

func (w *WebSocket) SendChunk(_ context.Context, chunk string) error {
	return w.Write(Message{Type: TypeChunk, Text: chunk})
}

func (w *WebSocket) Flush(_ context.Context) error {
	return w.Write(Message{Type: TypeFlush})
}

// Write sends any message to the client.
func (w *WebSocket) Write(msg Message) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	if err := w.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Type, err)
	}
	return nil
}

// Close sends a normal close frame and closes the connection.
func (w *WebSocket) Close() error {
	w.writeMu.Lock()
	_ = w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	w.writeMu.Unlock()

	return w.conn.Close()
}

func (w *WebSocket) read(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	// A zero deadline means no timeout.
	deadline, _ := ctx.Deadline()
	if err := w.conn.SetReadDeadline(deadline); err != nil {
		return Message{}, err
	}

	var msg Message
	if err := w.conn.ReadJSON(&msg); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Message{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("read websocket message: %w", err)
	}

	return msg, nil
}
