package headhunter

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/cv-advisor/internal/document"
)

type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Vacancy struct {
	ID           string  `json:"id,omitempty"`
	Name         string  `json:"name,omitempty"`
	Area         Named   `json:"area,omitempty"`
	Employer     Named   `json:"employer,omitempty"`
	Experience   Named   `json:"experience,omitempty"`
	Schedule     Named   `json:"schedule,omitempty"`
	AlternateURL string  `json:"alternate_url,omitempty"`
	Description  string  `json:"description,omitempty"`
	KeySkills    []Named `json:"key_skills,omitempty"`
	Snippet      struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
}

// DescriptionText strips the HTML markup of the vacancy description.
func (v *Vacancy) DescriptionText() (string, error) {
	if strings.TrimSpace(v.Description) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(v.Description))
	if err != nil {
		return "", fmt.Errorf("parse vacancy %s description: %w", v.ID, err)
	}

	var lines []string
	doc.Find("p, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			if goquery.NodeName(s) == "li" {
				text = "- " + text
			}
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " "), nil
	}
	return strings.Join(lines, "\n"), nil
}

// Job renders the vacancy as a plain text posting.
func (v *Vacancy) Job(number int) (document.Job, error) {
	description, err := v.DescriptionText()
	if err != nil {
		return document.Job{}, err
	}

	var sb strings.Builder
	sb.WriteString(v.Name)
	sb.WriteString("\n")

	for _, line := range []struct{ label, value string }{
		{"Company", v.Employer.Name},
		{"Location", v.Area.Name},
		{"Experience", v.Experience.Name},
		{"Schedule", v.Schedule.Name},
		{"URL", v.AlternateURL},
	} {
		if line.value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", line.label, line.value)
		}
	}

	if len(v.KeySkills) > 0 {
		skills := make([]string, 0, len(v.KeySkills))
		for _, skill := range v.KeySkills {
			skills = append(skills, skill.Name)
		}
		fmt.Fprintf(&sb, "Key skills: %s\n", strings.Join(skills, ", "))
	}

	if description == "" {
		description = strings.TrimSpace(v.Snippet.Requirement + "\n" + v.Snippet.Responsibility)
	}
	if description != "" {
		sb.WriteString("\n")
		sb.WriteString(description)
	}

	title := v.Name
	if v.Employer.Name != "" {
		title = fmt.Sprintf("%s (%s)", v.Name, v.Employer.Name)
	}

	return document.Job{
		Number:  number,
		Title:   title,
		Content: strings.TrimSpace(sb.String()),
	}, nil
}
