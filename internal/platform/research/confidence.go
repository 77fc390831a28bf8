package research

import (
	"math"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

// Confidence scores a research document from its sourcing:
// 0.6 weight on citation count (saturating at 10), 0.4 on distinct domains (saturating at 5).
func Confidence(citations []types.ResearchCitation) float64 {
	if len(citations) == 0 {
		return 0
	}
	domains := map[string]bool{}
	for _, c := range citations {
		d := c.Domain
		if d == "" {
			d = Domain(c.URL)
		}
		if d != "" {
			domains[d] = true
		}
	}
	score := 0.6*math.Min(float64(len(citations)), 10)/10 + 0.4*math.Min(float64(len(domains)), 5)/5
	return math.Round(score*100) / 100
}
