package tools

import (
	"context"

	"go.uber.org/zap"
)

// Tool represents a side-effecting operation the decision engine may
// invoke. Input and output are generic maps to keep the wire contract
// with the reasoning provider.
type Tool interface {
	Name() string
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Registry is the closed set of tools, looked up by wire name.
type Registry struct {
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry builds the fixed registry: reset_password,
// check_refund_policy, create_ticket, escalate_to_human.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
	r.register(NewResetPasswordTool(logger))
	r.register(NewRefundPolicyTool())
	r.register(NewCreateTicketTool(logger))
	r.register(NewEscalateTool(logger))
	return r
}

func (r *Registry) register(t Tool) {
	r.tools[t.Name()] = t
}

// Lookup returns the tool for a wire name, or nil when the name is not
// part of the registry.
func (r *Registry) Lookup(name string) Tool {
	return r.tools[name]
}

// Execute runs the named tool. A lookup miss or execution failure is
// logged and reported as a nil result; it never aborts the turn.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) map[string]any {
	tool := r.Lookup(name)
	if tool == nil {
		r.logger.Warn("Unknown tool requested", zap.String("tool", name))
		return nil
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		r.logger.Error("Tool execution failed",
			zap.Error(err),
			zap.String("tool", name))
		return nil
	}

	r.logger.Info("Tool executed", zap.String("tool", name))
	return result
}
