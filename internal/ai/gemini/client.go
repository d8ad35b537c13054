package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/logger"
	"github.com/spigell/cv-advisor/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel        = "gemini-2.5-pro"
	defaultMaxRetries   = 3
	defaultMaxLogLength = 200
	baseBackoff         = 2 * time.Second
	// Quota errors asking to wait longer than this are returned immediately.
	maxQuotaDelay = 30 * time.Second
)

var sleep = time.Sleep

var retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type streamingChatSession interface {
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Options tune a Generator beyond the model name.
type Options struct {
	MaxRetries   int
	MaxLogLength int
	// Timeout bounds a single attempt. Zero disables it.
	Timeout time.Duration
	// Personas maps every persona to its system instruction.
	Personas map[ai.Persona]string
}

// Generator is an ai.StreamingOracle backed by Gemini chats.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	maxLogLen  int
	timeout    time.Duration
	personas   map[ai.Persona]string
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, opts Options, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: opts.MaxRetries,
		maxLogLen:  opts.MaxLogLength,
		timeout:    opts.Timeout,
		personas:   opts.Personas,
		logger:     logger,
	}, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate implements ai.Oracle.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	system, err := g.instruction(req.Persona)
	if err != nil {
		return "", err
	}

	g.logRequest(req)

	output, err := g.send(ctx, g.config(system, req.JSON), history(req.Thread), req.Prompt)
	if err != nil {
		return "", err
	}

	g.logResponse(req, output)
	remember(req.Thread, req.Prompt, output)

	return output, nil
}

// Stream implements ai.StreamingOracle. Sessions without streaming support
// yield the whole answer as a single chunk.
func (g *Generator) Stream(ctx context.Context, req ai.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		system, err := g.instruction(req.Persona)
		if err != nil {
			yield("", err)
			return
		}

		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			yield("", errors.New("prompt must not be empty"))
			return
		}

		g.logRequest(req)

		config := g.config(system, req.JSON)
		session, err := g.chats.Create(ctx, g.model, config, history(req.Thread))
		if err != nil {
			yield("", fmt.Errorf("%w: create chat: %w", ai.ErrOracleUnavailable, err))
			return
		}

		streamer, ok := session.(streamingChatSession)
		if !ok {
			output, err := g.send(ctx, config, history(req.Thread), prompt)
			if err != nil {
				yield("", err)
				return
			}
			remember(req.Thread, prompt, output)
			yield(output, nil)
			return
		}

		var full strings.Builder
		for resp, err := range streamer.SendMessageStream(ctx, genai.Part{Text: prompt}) {
			if err != nil {
				yield("", fmt.Errorf("%w: stream message: %w", ai.ErrOracleUnavailable, err))
				return
			}
			chunk := chunkText(resp)
			if chunk == "" {
				continue
			}
			full.WriteString(chunk)
			if !yield(chunk, nil) {
				return
			}
		}

		output := strings.TrimSpace(full.String())
		g.logResponse(req, output)
		if output != "" {
			remember(req.Thread, prompt, output)
		}
	}
}

func (g *Generator) instruction(persona ai.Persona) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}
	if persona == "" {
		return "", nil
	}

	system, ok := g.personas[persona]
	if !ok {
		return "", fmt.Errorf("no instructions configured for persona %q", persona)
	}
	return system, nil
}

func (g *Generator) config(system string, jsonOutput bool) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if strings.TrimSpace(system) != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if jsonOutput {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, hist []*genai.Content, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.attempt(ctx, config, hist, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryable(err)
		if !retry || attempt == attempts {
			break
		}
		if delay <= 0 {
			delay = baseBackoff << (attempt - 1)
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay, sleep); err != nil {
			return "", fmt.Errorf("%w: %w", ai.ErrOracleUnavailable, err)
		}
	}

	return "", fmt.Errorf("%w: generate content: %w", ai.ErrOracleUnavailable, lastErr)
}

func (g *Generator) attempt(ctx context.Context, config *genai.GenerateContentConfig, hist []*genai.Content, message string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	session, err := g.chats.Create(ctx, g.model, config, hist)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := session.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func (g *Generator) logRequest(req ai.Request) {
	g.logger.Debug("gemini request",
		logger.PersonaField(string(req.Persona)),
		zap.Bool("json", req.JSON),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, g.maxLogLen)),
	)
}

func (g *Generator) logResponse(req ai.Request, output string) {
	g.logger.Debug("gemini response",
		logger.PersonaField(string(req.Persona)),
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)
}

// retryable reports whether err is a temporary API failure and the delay the API asked for.
func retryable(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return 0, errors.Is(err, context.DeadlineExceeded)
		}
		apiErr = *apiErrPtr
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		delay := quotaDelay(apiErr.Message)
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return 0, true
	default:
		return 0, false
	}
}

func quotaDelay(message string) time.Duration {
	match := retryDelayPattern.FindStringSubmatch(message)
	if len(match) < 2 {
		return 0
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func history(thread *ai.Thread) []*genai.Content {
	if thread == nil {
		return nil
	}

	messages := thread.Messages()
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == ai.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}
	return contents
}

func remember(thread *ai.Thread, prompt, output string) {
	if thread == nil {
		return
	}
	thread.Append(
		ai.Message{Role: ai.RoleUser, Text: prompt},
		ai.Message{Role: ai.RoleModel, Text: output},
	)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				builder.WriteString(part.Text)
			}
		}
	}
	return builder.String()
}
