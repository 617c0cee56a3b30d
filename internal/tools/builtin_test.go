package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRefundPolicyEligibility(t *testing.T) {
	cases := []struct {
		name         string
		days         int
		wantEligible bool
	}{
		{name: "same_day", days: 0, wantEligible: true},
		{name: "window_boundary", days: 30, wantEligible: true},
		{name: "one_day_past", days: 31, wantEligible: false},
		{name: "well_past", days: 44, wantEligible: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tool := NewRefundPolicyTool()
			tool.daysSincePurchase = func(string) int { return tc.days }

			result, err := tool.Execute(context.Background(), map[string]any{"order_id": "A123"})
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if result["eligible"] != tc.wantEligible {
				t.Errorf("eligible = %v, want %v", result["eligible"], tc.wantEligible)
			}
			if result["order_id"] != "A123" {
				t.Errorf("order_id = %v, want A123", result["order_id"])
			}
			if result["days_since_purchase"] != tc.days {
				t.Errorf("days_since_purchase = %v, want %d", result["days_since_purchase"], tc.days)
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	tool := NewResetPasswordTool(zap.NewNop())

	result, err := tool.Execute(context.Background(), map[string]any{"email": "user@example.com"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result["success"] != true {
		t.Errorf("success = %v, want true", result["success"])
	}
	if result["action"] != "email_sent" {
		t.Errorf("action = %v, want email_sent", result["action"])
	}
}

func TestCreateTicket(t *testing.T) {
	tool := NewCreateTicketTool(zap.NewNop())
	tool.now = func() time.Time { return time.UnixMilli(1700000000000) }

	result, err := tool.Execute(context.Background(), map[string]any{
		"title":       "Broken export",
		"priority":    "medium",
		"description": "Export fails with a 500",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	ticketID, _ := result["ticket_id"].(string)
	if !strings.HasPrefix(ticketID, "TKT-") {
		t.Errorf("ticket_id = %q, want TKT- prefix", ticketID)
	}
	if ticketID != strings.ToUpper(ticketID) {
		t.Errorf("ticket_id = %q, want upper case", ticketID)
	}
	if result["status"] != "created" {
		t.Errorf("status = %v, want created", result["status"])
	}
	if result["priority"] != "medium" {
		t.Errorf("priority = %v, want medium", result["priority"])
	}
}

func TestEscalateWaitEstimate(t *testing.T) {
	tool := NewEscalateTool(zap.NewNop())

	cases := []struct {
		urgency  string
		wantWait string
	}{
		{urgency: "high", wantWait: "2-5 minutes"},
		{urgency: "normal", wantWait: "10-15 minutes"},
		{urgency: "", wantWait: "10-15 minutes"},
	}

	for _, tc := range cases {
		result, err := tool.Execute(context.Background(), map[string]any{
			"reason":  "user asked for a human",
			"urgency": tc.urgency,
		})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if result["escalated"] != true {
			t.Errorf("escalated = %v, want true", result["escalated"])
		}
		if result["estimated_wait"] != tc.wantWait {
			t.Errorf("urgency %q: estimated_wait = %v, want %q", tc.urgency, result["estimated_wait"], tc.wantWait)
		}
	}
}

func TestRegistryClosedSet(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	for _, name := range []string{ToolResetPassword, ToolCheckRefundPolicy, ToolCreateTicket, ToolEscalateToHuman} {
		if registry.Lookup(name) == nil {
			t.Errorf("expected tool %q in registry", name)
		}
	}
	if registry.Lookup("delete_account") != nil {
		t.Error("unexpected tool delete_account in registry")
	}
}

func TestRegistryExecuteUnknownToolReturnsNil(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	if result := registry.Execute(context.Background(), "delete_account", nil); result != nil {
		t.Fatalf("result = %v, want nil for unknown tool", result)
	}
}

type failingTool struct{}

func (failingTool) Name() string { return "failing_tool" }

func (failingTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("boom")
}

func TestRegistryExecuteFailureReturnsNil(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	registry.register(failingTool{})

	if result := registry.Execute(context.Background(), "failing_tool", nil); result != nil {
		t.Fatalf("result = %v, want nil on execution failure", result)
	}
}
