package analysis

import (
	"errors"
	"testing"
)

const sampleReport = "```json\n" + `{
  "matched_skills": [
    {"name": "Go", "evidence": "5 years of Go services", "requirement_type": "must"},
    {"name": "Docker", "evidence": "containerized CI", "requirement_type": "Nice"}
  ],
  "gaps": [
    {"name": "Kubernetes experience", "why": "not mentioned", "priority": "high"},
    {"name": "Terraform", "why": "only a course", "priority": "medium", "requirement_type": "nice"}
  ],
  "notes": " strict matching ",
  "preliminary_score": 99
}` + "\n```"

func TestParseReport(t *testing.T) {
	report, err := Parse(sampleReport)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.MatchedSkills) != 2 || len(report.Gaps) != 2 {
		t.Fatalf("unexpected report sizes: %+v", report)
	}
	if report.MatchedSkills[1].RequirementType != Nice {
		t.Fatalf("expected nice requirement, got %q", report.MatchedSkills[1].RequirementType)
	}
	if report.Gaps[0].RequirementType != Must {
		t.Fatalf("missing requirement type must default to must, got %q", report.Gaps[0].RequirementType)
	}
	if report.Gaps[1].Priority != Medium {
		t.Fatalf("expected medium priority, got %q", report.Gaps[1].Priority)
	}
	if report.Gaps[0].Rationale != "not mentioned" {
		t.Fatalf("unexpected rationale: %q", report.Gaps[0].Rationale)
	}
	if report.Notes != "strict matching" {
		t.Fatalf("unexpected notes: %q", report.Notes)
	}
	// must 1/2, nice 1/2 -> 0.35 + 0.15
	if report.PreliminaryScore != 50 {
		t.Fatalf("expected recomputed score 50, got %d", report.PreliminaryScore)
	}
	if report.MustGaps() != 1 {
		t.Fatalf("expected 1 must gap, got %d", report.MustGaps())
	}
}

func TestParseReportFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "prose only", raw: "I could not analyze this CV."},
		{name: "broken json", raw: `{"gaps": [ {"name": "Go" ]}`},
		{name: "missing gaps", raw: `{"matched_skills": []}`},
		{name: "gap without name", raw: `{"gaps": [{"why": "x"}]}`},
		{name: "gaps not a list", raw: `{"gaps": "Go"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Parse(tt.raw)
			if !errors.Is(err, ErrUnparsableReport) {
				t.Fatalf("expected ErrUnparsableReport, got %v", err)
			}
			if report != nil {
				t.Fatalf("expected nil report, got %+v", report)
			}
		})
	}
}

func TestParseSchemaErrorListsFields(t *testing.T) {
	_, err := Parse(`{"gaps": [{"why": "x"}]}`)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if len(schemaErr.Errors) == 0 {
		t.Fatalf("expected field errors")
	}
}

func TestGapNames(t *testing.T) {
	report, err := Parse(sampleReport)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := report.GapNames()
	if len(names) != 2 || names[0] != "Kubernetes experience" || names[1] != "Terraform" {
		t.Fatalf("unexpected gap names: %v", names)
	}

	var empty *Report
	if empty.GapNames() != nil || empty.MustGaps() != 0 {
		t.Fatalf("nil report must have no gaps")
	}
}
