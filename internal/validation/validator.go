package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/spigell/cv-advisor/internal/gaps"
	"github.com/spigell/cv-advisor/internal/transcript"
	"github.com/spigell/cv-advisor/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultWindow is the number of recent turns shown to the validator.
	DefaultWindow       = 4
	defaultMaxLogLength = 200
)

var errUnparsable = errors.New("unparsable validator response")

// Verdict is the outcome of one validation. When Failed is set the gap set is
// returned unchanged and Ready is false.
type Verdict struct {
	Ready     bool
	Removed   []string
	Remaining gaps.Set
	Reasoning string
	Failed    bool
	Err       error
}

// Validator asks the validator persona which open gaps the conversation covered.
type Validator struct {
	oracle    ai.Oracle
	logger    *zap.Logger
	window    int
	maxLogLen int
}

func New(oracle ai.Oracle, logger *zap.Logger, window, maxLogLength int) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Validator{oracle: oracle, logger: logger, window: window, maxLogLen: maxLogLength}
}

// Window is the number of recent turns Evaluate looks at.
func (v *Validator) Window() int {
	return v.window
}

// Evaluate never returns an error. Oracle failures and unparsable answers
// produce a failed verdict that keeps every gap open.
func (v *Validator) Evaluate(ctx context.Context, set gaps.Set, recent []transcript.Turn, termination bool) Verdict {
	if set.IsEmpty() {
		return Verdict{Ready: true, Remaining: set, Reasoning: "no open topics left"}
	}
	if len(recent) > v.window {
		recent = recent[len(recent)-v.window:]
	}

	prompt := BuildPrompt(set, recent, termination)
	v.logger.Debug("validation request",
		zap.Bool("termination", termination),
		zap.Int("gaps", set.Len()),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, v.maxLogLen)),
	)

	raw, err := v.oracle.Generate(ctx, ai.Request{Persona: ai.PersonaValidator, Prompt: prompt, JSON: true})
	if err != nil {
		return v.failed(set, fmt.Errorf("validate gaps: %w", err))
	}

	v.logger.Debug("validation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, v.maxLogLen)),
	)

	parsed, err := Parse(raw)
	if err != nil {
		return v.failed(set, err)
	}

	remaining := set.Remove(parsed.Remove...)
	verdict := Verdict{
		Ready:     parsed.Ready,
		Removed:   removed(set, remaining),
		Remaining: remaining,
		Reasoning: parsed.Reasoning,
	}

	v.logger.Debug("gap status",
		zap.Strings("removed", verdict.Removed),
		zap.Int("remaining", remaining.Len()),
		zap.Bool("ready", verdict.Ready),
		zap.String("summary", fmt.Sprintf("%d gap(s) remaining", remaining.Len())),
	)

	return verdict
}

func (v *Validator) failed(set gaps.Set, err error) Verdict {
	v.logger.Warn("validation failed, keeping gaps", zap.Error(err))
	return Verdict{Remaining: set, Failed: true, Err: err}
}

// BuildPrompt renders the validator input.
func BuildPrompt(set gaps.Set, recent []transcript.Turn, termination bool) string {
	var sb strings.Builder
	sb.WriteString("OPEN TOPICS:\n")
	for _, entry := range set.Entries() {
		sb.WriteString("- ")
		sb.WriteString(entry.Name)
		if entry.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(entry.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nRECENT CONVERSATION:\n")
	sb.WriteString(transcript.Format(recent))
	sb.WriteString("\n\n")

	if termination {
		sb.WriteString("The user wants to end the conversation. Decide strictly whether enough has been covered for a final readiness assessment. ")
		sb.WriteString("Answer READY only if every remaining topic was addressed or the conversation clearly supports a recommendation.\n")
	}
	sb.WriteString("Classify each open topic as addressed or not and reply with the JSON object from your instructions.")

	return sb.String()
}

// Response is the validator answer in either JSON or marker form.
type Response struct {
	Remove    []string `json:"remove"`
	Keep      []string `json:"keep"`
	Decision  string   `json:"decision"`
	Reasoning string   `json:"reasoning"`
	Ready     bool     `json:"-"`
}

// Parse reads a validator answer. A JSON object is preferred; the
// REMOVE:/KEEP:/READINESS:/DECISION: text markers are accepted as a fallback.
func Parse(raw string) (*Response, error) {
	if resp, err := parseJSON(raw); err == nil {
		return resp, nil
	}
	return parseMarkers(raw)
}

func parseJSON(raw string) (*Response, error) {
	payload := ai.ExtractJSON(raw)
	if payload == "" {
		return nil, errUnparsable
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", errUnparsable, err)
	}
	if _, ok := data["decision"]; !ok {
		if _, ok := data["remove"]; !ok {
			return nil, fmt.Errorf("%w: no decision or remove key", errUnparsable)
		}
	}

	var resp Response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &resp,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %w", errUnparsable, err)
	}

	resp.Remove = cleanList(resp.Remove)
	resp.Keep = cleanList(resp.Keep)
	resp.Reasoning = strings.TrimSpace(resp.Reasoning)
	resp.Ready = isReady(resp.Decision)
	return &resp, nil
}

func parseMarkers(raw string) (*Response, error) {
	var resp Response
	found := false

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "REMOVE:"):
			resp.Remove = append(resp.Remove, splitList(line[len("REMOVE:"):])...)
			found = true
		case strings.HasPrefix(upper, "KEEP:"):
			resp.Keep = append(resp.Keep, splitList(line[len("KEEP:"):])...)
			found = true
		case strings.HasPrefix(upper, "READINESS:"), strings.HasPrefix(upper, "DECISION:"):
			value := strings.TrimSpace(line[strings.Index(line, ":")+1:])
			resp.Decision = value
			resp.Ready = resp.Ready || isReady(value)
			if _, reasoning, ok := strings.Cut(value, "-"); ok {
				resp.Reasoning = strings.TrimSpace(reasoning)
			}
			found = true
		}
	}

	if !found {
		return nil, errUnparsable
	}
	return &resp, nil
}

// isReady reads only the leading verdict word. Reasoning text and template
// values like "READY|CONTINUE" never count as ready.
func isReady(decision string) bool {
	fields := strings.FieldsFunc(strings.ToUpper(decision), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune("-:.,;*\"'", r)
	})
	if len(fields) == 0 {
		return false
	}
	return fields[0] == "READY" || fields[0] == "STOP"
}

func splitList(value string) []string {
	value = strings.Trim(value, "* ")
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")
	return cleanList(strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	}))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.Trim(strings.TrimSpace(item), "\"'*"))
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		out = append(out, item)
	}
	return out
}

func removed(before, after gaps.Set) []string {
	var names []string
	for _, name := range before.Snapshot() {
		if !after.Contains(name) {
			names = append(names, name)
		}
	}
	return names
}
