// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a sequence of tools. Unlike tools, which the AI
// calls, prompts are started by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// OnboardPrompt handles the receptionist-onboard MCP prompt. It walks the
// AI through the wizard with the user.
type OnboardPrompt struct{}

// NewOnboardPrompt creates an OnboardPrompt.
func NewOnboardPrompt() *OnboardPrompt {
	return &OnboardPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OnboardPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("receptionist-onboard",
		mcp.WithPromptDescription(
			"Set up the AI receptionist. Walks through the seven onboarding steps, "+
				"from business details to choosing a phone number, and publishes the result.",
		),
		mcp.WithArgument("business_name",
			mcp.ArgumentDescription("Name of the business the receptionist answers for"),
		),
	)
}

// Handle processes the receptionist-onboard prompt request.
func (p *OnboardPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	intro := "I want to set up my AI receptionist."
	if name := req.Params.Arguments["business_name"]; name != "" {
		intro = fmt.Sprintf("I want to set up the AI receptionist for %s.", name)
	}

	return &mcp.GetPromptResult{
		Description: "Set up the AI receptionist",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(intro + "\n\n" +
					"Please:\n" +
					"1. Run `wizard_status` to see which step I'm on and what it needs\n" +
					"2. Ask me for the answers to that step, one short question at a time\n" +
					"3. Save each answer with `wizard_set_field` or `wizard_set_nested`; use " +
					"`catalog_voices` and `catalog_phone_numbers` when I have to pick a voice or number\n" +
					"4. For call routing, manage departments with the `department_*` tools and the " +
					"menu with the `menu_*` tools\n" +
					"5. Run `wizard_next` when a step is done and fix whatever it reports\n" +
					"6. On the review step, show me a summary from `knowledge_preview`, ask me to accept " +
					"the terms, then run `wizard_submit` and `knowledge_sync`",
				),
			},
		},
	}, nil
}
