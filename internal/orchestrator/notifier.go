package orchestrator

import "go.uber.org/zap"

// LogNotifier reports side-effect notifications through the service log.
// A real frontend would subscribe to these events instead.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyEscalation(conversationID, reason string) {
	n.logger.Info("Escalating to human agent",
		zap.String("conversation_id", conversationID),
		zap.String("reason", reason))
}

func (n *LogNotifier) NotifyResolution(conversationID string, confidence float64) {
	n.logger.Info("Issue resolved",
		zap.String("conversation_id", conversationID),
		zap.Float64("confidence", confidence))
}

func (n *LogNotifier) NotifyToolExecuted(conversationID, tool string) {
	n.logger.Info("Automated action taken",
		zap.String("conversation_id", conversationID),
		zap.String("tool", tool))
}
