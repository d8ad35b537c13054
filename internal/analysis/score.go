package analysis

import "math"

const (
	mustWeight = 0.7
	niceWeight = 0.3
)

// Score computes the preliminary score from matched versus required items:
// round(100 * clamp(0.7*mustHit/max(mustReq,1) + 0.3*niceHit/max(niceReq,1), 0, 1)).
// A report without nice-to-have requirements tops out at 70.
func Score(report *Report) int {
	if report == nil {
		return 0
	}

	var mustHit, niceHit, mustReq, niceReq int
	for _, skill := range report.MatchedSkills {
		if skill.RequirementType == Nice {
			niceHit++
			niceReq++
			continue
		}
		mustHit++
		mustReq++
	}
	for _, gap := range report.Gaps {
		if gap.RequirementType == Nice {
			niceReq++
			continue
		}
		mustReq++
	}

	raw := mustWeight*ratio(mustHit, mustReq) + niceWeight*ratio(niceHit, niceReq)
	return int(math.Round(100 * math.Max(0, math.Min(raw, 1))))
}

func ratio(hit, required int) float64 {
	return float64(hit) / float64(max(required, 1))
}
