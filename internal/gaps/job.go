package gaps

import "strings"

// AuthorizationGap is tracked when a posting talks about where or under which
// permit the work happens.
const AuthorizationGap = "Work authorization/location"

var authorizationKeywords = []string{"visa", "work authorization", "location", "remote", "relocation"}

// FromJob returns the gaps implied by the posting text itself.
func FromJob(job string) []string {
	lower := strings.ToLower(job)
	for _, keyword := range authorizationKeywords {
		if strings.Contains(lower, keyword) {
			return []string{AuthorizationGap}
		}
	}
	return nil
}
