package tools

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ToolResetPassword     = "reset_password"
	ToolCheckRefundPolicy = "check_refund_policy"
	ToolCreateTicket      = "create_ticket"
	ToolEscalateToHuman   = "escalate_to_human"

	// ToolNone is the wire value for "no tool requested".
	ToolNone = "none"

	refundWindowDays = 30
)

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// ResetPasswordTool initiates a password reset for a user.
type ResetPasswordTool struct {
	logger *zap.Logger
}

func NewResetPasswordTool(logger *zap.Logger) *ResetPasswordTool {
	return &ResetPasswordTool{logger: logger}
}

func (t *ResetPasswordTool) Name() string { return ToolResetPassword }

func (t *ResetPasswordTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	email := stringParam(params, "email")
	// In production: trigger the actual password reset flow.
	t.logger.Info("Password reset initiated", zap.String("email", email))
	return map[string]any{
		"success": true,
		"action":  "email_sent",
		"message": "Password reset email has been sent. Please check your inbox.",
	}, nil
}

// RefundPolicyTool checks whether an order is eligible for a refund.
// The purchase age is simulated; production would query the orders table.
type RefundPolicyTool struct {
	daysSincePurchase func(orderID string) int
}

func NewRefundPolicyTool() *RefundPolicyTool {
	return &RefundPolicyTool{
		daysSincePurchase: func(string) int { return rand.Intn(45) },
	}
}

func (t *RefundPolicyTool) Name() string { return ToolCheckRefundPolicy }

func (t *RefundPolicyTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	orderID := stringParam(params, "order_id")
	days := t.daysSincePurchase(orderID)
	eligible := days <= refundWindowDays

	reason := fmt.Sprintf("Order is within %d-day refund window", refundWindowDays)
	if !eligible {
		reason = fmt.Sprintf("Order is past the %d-day refund window", refundWindowDays)
	}

	return map[string]any{
		"order_id":            orderID,
		"eligible":            eligible,
		"days_since_purchase": days,
		"reason":              reason,
	}, nil
}

// CreateTicketTool files a support ticket for human follow-up.
type CreateTicketTool struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewCreateTicketTool(logger *zap.Logger) *CreateTicketTool {
	return &CreateTicketTool{
		logger: logger,
		now:    time.Now,
	}
}

func (t *CreateTicketTool) Name() string { return ToolCreateTicket }

func (t *CreateTicketTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	ticketID := "TKT-" + strings.ToUpper(strconv.FormatInt(t.now().UnixMilli(), 36))
	t.logger.Info("Ticket created", zap.String("ticket_id", ticketID))

	return map[string]any{
		"ticket_id": ticketID,
		"status":    "created",
		"priority":  stringParam(params, "priority"),
		"message":   fmt.Sprintf("Ticket %s has been created and will be reviewed shortly.", ticketID),
	}, nil
}

// EscalateTool hands the conversation over to a human agent.
type EscalateTool struct {
	logger *zap.Logger
}

func NewEscalateTool(logger *zap.Logger) *EscalateTool {
	return &EscalateTool{logger: logger}
}

func (t *EscalateTool) Name() string { return ToolEscalateToHuman }

func (t *EscalateTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	reason := stringParam(params, "reason")
	urgency := stringParam(params, "urgency")
	t.logger.Info("Escalation triggered",
		zap.String("reason", reason),
		zap.String("urgency", urgency))

	wait := "10-15 minutes"
	if urgency == "high" {
		wait = "2-5 minutes"
	}

	return map[string]any{
		"escalated":      true,
		"estimated_wait": wait,
		"message":        "Connecting you with a human specialist who can better assist you.",
	}, nil
}
