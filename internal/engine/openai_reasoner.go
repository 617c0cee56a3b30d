package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var analyzeFunctionParams = json.RawMessage(`{
	"type": "object",
	"properties": {
		"intent": {
			"type": "string",
			"enum": ["login_issue", "payment_issue", "refund_request", "technical_bug", "feature_request", "account_management", "general_query"],
			"description": "The classified intent of the user's message"
		},
		"confidence": {
			"type": "number",
			"description": "Confidence score 0.0-1.0 for the classification"
		},
		"sentiment": {
			"type": "string",
			"enum": ["positive", "neutral", "negative"],
			"description": "Detected emotional tone of the user"
		},
		"decision": {
			"type": "string",
			"enum": ["resolve", "clarify", "escalate"],
			"description": "Action decision based on confidence: resolve if >=0.85, clarify if 0.6-0.85, escalate if <0.6"
		},
		"response": {
			"type": "string",
			"description": "The helpful response to send to the user"
		},
		"reasoning": {
			"type": "string",
			"description": "Internal reasoning for the decision (for logging/debugging)"
		},
		"tool_to_call": {
			"type": "string",
			"enum": ["reset_password", "check_refund_policy", "create_ticket", "escalate_to_human", "none"],
			"description": "Tool to execute, or 'none' if no tool needed"
		},
		"tool_params": {
			"type": "object",
			"description": "Parameters to pass to the tool if tool_to_call is not 'none'"
		}
	},
	"required": ["intent", "confidence", "sentiment", "decision", "response", "reasoning", "tool_to_call"],
	"additionalProperties": false
}`)

type OpenAIReasoner struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

func NewOpenAIReasoner(apiKey string, model string, temperature float64, logger *zap.Logger) *OpenAIReasoner {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIReasoner{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: float32(temperature),
		logger:      logger,
	}
}

// Reason asks the model to answer through the analyze_and_respond
// function so the payload comes back as structured arguments.
func (r *OpenAIReasoner) Reason(ctx context.Context, systemPrompt, userMessage string) (*RawDecision, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: r.temperature,
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        "analyze_and_respond",
					Description: "Analyze user message and generate structured response with decision",
					Parameters:  analyzeFunctionParams,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: "analyze_and_respond"},
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 || msg.ToolCalls[0].Function.Arguments == "" {
		// The model refused the function; fall back to whatever prose
		// it produced.
		r.logger.Warn("OpenAI returned no structured tool call, repairing")
		content := msg.Content
		if content == "" {
			content = "I'm not sure how to help with that."
		}
		repaired := repairedDecision(content)
		repaired.Reasoning = "No structured tool response"
		return repaired, nil
	}

	raw, err := parseDecisionJSON(msg.ToolCalls[0].Function.Arguments)
	if err != nil {
		r.logger.Warn("Failed to parse OpenAI function arguments, repairing",
			zap.Error(err))
		return repairedDecision(msg.ToolCalls[0].Function.Arguments), nil
	}
	return raw, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		switch {
		case apiErr.HTTPStatusCode == http.StatusPaymentRequired,
			code == "insufficient_quota",
			strings.Contains(apiErr.Message, "insufficient_quota"):
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return err
}
