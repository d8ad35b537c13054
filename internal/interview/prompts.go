package interview

import (
	"fmt"
	"strings"

	"github.com/spigell/cv-advisor/internal/analysis"
	"github.com/spigell/cv-advisor/internal/gaps"
)

func seedPrompt(seed Seed, set gaps.Set) string {
	var sb strings.Builder
	sb.WriteString("You are starting a conversation with a job applicant.\n\n")
	sb.WriteString("CV:\n")
	sb.WriteString(strings.TrimSpace(seed.CV))
	sb.WriteString("\n\nJOB DESCRIPTION:\n")
	sb.WriteString(strings.TrimSpace(seed.Job))
	sb.WriteString("\n\nINITIAL ANALYSIS:\n")
	sb.WriteString(renderAnalysis(seed.Analysis))
	sb.WriteString("\n\nAREAS TO EXPLORE:\n")
	sb.WriteString(bullets(set.Snapshot()))
	sb.WriteString("\n\nGreet the applicant briefly and ask your first question.")
	return sb.String()
}

func renderAnalysis(result *analysis.Result) string {
	if result == nil {
		return "not available"
	}
	return result.Render()
}

func steeringPrompt(input, target string) string {
	return fmt.Sprintf(
		"The applicant said: %q\n\nAcknowledge their response briefly, then naturally steer the conversation toward %q. "+
			"Ask one specific question about their experience or interest in that area. Don't directly mention 'gaps' or missing skills.",
		input, target,
	)
}

func forcedWrapUpPrompt() string {
	return "You have learned enough about the applicant. Thank them briefly and ask whether there is anything else about " +
		"the position or their background they would like to discuss. Tell them to answer 'n' if there is nothing else."
}

func wrapUpPrompt(input string) string {
	return fmt.Sprintf(
		"The applicant said: %q\n\nAnswer their question or comment thoroughly, then end by asking if there's anything else "+
			"about the position or their background they would like to discuss. Remind them to answer 'n' if there is nothing else.",
		input,
	)
}

func continuePrompt(remaining []string) string {
	return fmt.Sprintf(
		"The applicant wanted to finish, but these areas were not covered yet:\n%s\n\n"+
			"Tell them kindly that you would like to cover a bit more, then ask one question about %q.",
		bullets(remaining), remaining[0],
	)
}

func remainingNotice(remaining []string) string {
	return "Before we finish, I'd still like to talk about: " + strings.Join(remaining, "; ") + "."
}

func finalAssessmentPrompt(history string) string {
	return "Provide the final assessment now as the JSON object described in your instructions. " +
		"Base it on the full conversation:\n\n" + history
}

// UserEndedSummary is the synopsis used when the user cancels the interview.
func UserEndedSummary(history string) string {
	return "User chose to end conversation. Based on conversation:\n" + history
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	return "- " + strings.Join(items, "\n- ")
}
