package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// statusChecks is what the AI reports back, in order.
var statusChecks = []string{
	"Which step I'm on and how many are left",
	"Any validation errors, and whether my latest edits are saved",
	"Menu options that transfer to a department that no longer exists",
	"The greeting, hours and departments the agent would use today",
}

// StatusPrompt is the receptionist-status prompt: a read-only check of
// where the setup stands.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt { return &StatusPrompt{} }

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("receptionist-status",
		mcp.WithPromptDescription(
			"Check how far the receptionist setup has come: current step, "+
				"anything blocking it, and what the agent would run with today.",
		),
	)
}

// Handle builds the status request. It takes no arguments.
func (p *StatusPrompt) Handle(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var b strings.Builder
	b.WriteString("Look up my receptionist setup with `wizard_status` and `knowledge_preview`. ")
	b.WriteString("Don't change anything. Report:\n")
	for i, check := range statusChecks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, check)
	}
	b.WriteString("\nIf a step is blocked, suggest the single next thing I should answer.")

	msg := mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(b.String()))
	return mcp.NewGetPromptResult("Receptionist setup status", []mcp.PromptMessage{msg}), nil
}
