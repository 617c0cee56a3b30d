package engine

import "github.com/helpdeskai/support-agent/internal/models"

// Decision thresholds. The same bands are stated in the system prompt,
// but the provider's adherence is not trusted: the returned action is
// overridden by this rule whenever they disagree.
const (
	resolveThreshold  = 0.85
	clarifyThreshold  = 0.6
	negativeThreshold = 0.7
)

// ruleAction derives the action from confidence and sentiment. The
// negative-sentiment rule takes precedence: it can force an escalation
// even inside the clarify band.
func ruleAction(confidence float64, sentiment models.Sentiment) models.Action {
	if sentiment == models.SentimentNegative && confidence < negativeThreshold {
		return models.ActionEscalate
	}
	if confidence >= resolveThreshold {
		return models.ActionResolve
	}
	if confidence >= clarifyThreshold {
		return models.ActionClarify
	}
	return models.ActionEscalate
}
