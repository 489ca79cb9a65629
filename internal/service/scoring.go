package service

import (
	"strings"

	"github.com/capitalize-ai/omnilead/internal/model"
)

var intentWeights = map[model.Intent]float64{
	model.IntentEnrollment: 0.9,
	model.IntentEnquiry:    0.7,
	model.IntentUrgent:     0.8,
	model.IntentGeneral:    0.3,
	model.IntentComplaint:  0.2,
	model.IntentTechnical:  0.1,
}

var (
	highValueKeywords   = []string{"enroll", "admission", "apply", "interested", "join"}
	mediumValueKeywords = []string{"info", "details", "courses", "programs"}
)

// ScoreLead rates how likely text is to come from a prospective customer, in [0,1].
func ScoreLead(text string, c model.ClassificationResult) float64 {
	score := intentWeights[c.Intent]

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, highValueKeywords):
		score += 0.3
	case containsAny(lower, mediumValueKeywords):
		score += 0.1
	}

	score += c.Sentiment * 0.1

	return clamp(score, 0, 1)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
