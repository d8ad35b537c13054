package analysis

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/cv-advisor/internal/ai"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnparsableReport is returned when the analyzer answer is not a valid report.
var ErrUnparsableReport = errors.New("unparsable analysis report")

//go:embed report.schema.json
var reportSchema string

var schemaLoader = gojsonschema.NewStringLoader(reportSchema)

type RequirementType string

const (
	Must RequirementType = "must"
	Nice RequirementType = "nice"
)

type Priority string

const (
	High   Priority = "high"
	Medium Priority = "med"
	Low    Priority = "low"
)

type MatchedSkill struct {
	Name            string          `json:"name"`
	Evidence        string          `json:"evidence"`
	RequirementType RequirementType `json:"requirement_type"`
}

type Gap struct {
	Name            string          `json:"name"`
	Rationale       string          `json:"why"`
	Priority        Priority        `json:"priority"`
	RequirementType RequirementType `json:"requirement_type"`
}

// Report is the structured result of comparing a CV with a job posting.
// It is not modified after Parse returns.
type Report struct {
	MatchedSkills    []MatchedSkill `json:"matched_skills"`
	Gaps             []Gap          `json:"gaps"`
	Notes            string         `json:"notes"`
	PreliminaryScore int            `json:"preliminary_score"`
}

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists the schema violations of an analyzer answer.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	var sb strings.Builder
	sb.WriteString("report does not match schema:")
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, " %s: %s;", fe.Field, fe.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Parse extracts the report from an analyzer answer. The preliminary score is
// always computed from the requirement counts; a score in the answer is ignored.
func Parse(raw string) (*Report, error) {
	payload := ai.ExtractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no json object found", ErrUnparsableReport)
	}

	if err := validateSchema(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableReport, err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableReport, err)
	}

	var report Report
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &report,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create report decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableReport, err)
	}

	normalize(&report)
	report.PreliminaryScore = Score(&report)

	return &report, nil
}

// MustGaps counts the gaps classified as must-have.
func (r *Report) MustGaps() int {
	if r == nil {
		return 0
	}
	count := 0
	for _, gap := range r.Gaps {
		if gap.RequirementType == Must {
			count++
		}
	}
	return count
}

// GapNames returns the gap names in report order.
func (r *Report) GapNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Gaps))
	for i, gap := range r.Gaps {
		names[i] = gap.Name
	}
	return names
}

func validateSchema(payload string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Errors = append(schemaErr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return schemaErr
}

func normalize(report *Report) {
	skills := report.MatchedSkills[:0]
	for _, skill := range report.MatchedSkills {
		skill.Name = strings.TrimSpace(skill.Name)
		if skill.Name == "" {
			continue
		}
		skill.Evidence = strings.TrimSpace(skill.Evidence)
		skill.RequirementType = requirementType(string(skill.RequirementType))
		skills = append(skills, skill)
	}
	report.MatchedSkills = skills

	gaps := report.Gaps[:0]
	for _, gap := range report.Gaps {
		gap.Name = strings.TrimSpace(gap.Name)
		if gap.Name == "" {
			continue
		}
		gap.Rationale = strings.TrimSpace(gap.Rationale)
		gap.Priority = priority(string(gap.Priority))
		gap.RequirementType = requirementType(string(gap.RequirementType))
		gaps = append(gaps, gap)
	}
	report.Gaps = gaps

	report.Notes = strings.TrimSpace(report.Notes)
}

// requirementType defaults to must when the classification is unclear.
func requirementType(value string) RequirementType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "nice", "nice-to-have", "nice to have", "preferred", "optional":
		return Nice
	default:
		return Must
	}
}

func priority(value string) Priority {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "high", "critical":
		return High
	case "low":
		return Low
	default:
		return Medium
	}
}
