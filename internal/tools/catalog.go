package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/catalog"
	"github.com/mark3labs/mcp-go/mcp"
)

// VoicesTool handles the catalog_voices MCP tool.
type VoicesTool struct {
	catalog catalog.Provider
}

// NewVoicesTool creates a VoicesTool.
func NewVoicesTool(p catalog.Provider) *VoicesTool {
	return &VoicesTool{catalog: p}
}

// Definition returns the MCP tool definition for registration.
func (t *VoicesTool) Definition() mcp.Tool {
	return mcp.NewTool("catalog_voices",
		mcp.WithDescription(
			"List the voices available for the agent and departments. "+
				"Use the label as the value of agentVoice or a department voice.",
		),
	)
}

// Handle processes the catalog_voices tool call.
func (t *VoicesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	voices, err := t.catalog.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing voices: %w", err)
	}
	var b strings.Builder
	b.WriteString("## Voices\n\n")
	for _, v := range voices {
		fmt.Fprintf(&b, "- %s\n", v.Label())
	}
	return mcp.NewToolResultText(b.String()), nil
}

// PhoneNumbersTool handles the catalog_phone_numbers MCP tool.
type PhoneNumbersTool struct {
	catalog catalog.Provider
}

// NewPhoneNumbersTool creates a PhoneNumbersTool.
func NewPhoneNumbersTool(p catalog.Provider) *PhoneNumbersTool {
	return &PhoneNumbersTool{catalog: p}
}

// Definition returns the MCP tool definition for registration.
func (t *PhoneNumbersTool) Definition() mcp.Tool {
	return mcp.NewTool("catalog_phone_numbers",
		mcp.WithDescription("List phone numbers available for the agent, optionally by area code."),
		mcp.WithString("area_code",
			mcp.Description("Three-digit area code to filter by."),
		),
	)
}

// Handle processes the catalog_phone_numbers tool call.
func (t *PhoneNumbersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	areaCode := req.GetString("area_code", "")
	numbers, err := t.catalog.PhoneNumbers(ctx, areaCode)
	if err != nil {
		return nil, fmt.Errorf("listing phone numbers: %w", err)
	}
	if len(numbers) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No numbers available for area code %s.", areaCode)), nil
	}

	var b strings.Builder
	b.WriteString("| Number | Area code | Location |\n")
	b.WriteString("|--------|-----------|----------|\n")
	for _, n := range numbers {
		loc := strings.Trim(n.Locality+", "+n.Region, ", ")
		fmt.Fprintf(&b, "| %s | %s | %s |\n", n.Number, orDash(n.AreaCode), orDash(loc))
	}
	return mcp.NewToolResultText(b.String()), nil
}
