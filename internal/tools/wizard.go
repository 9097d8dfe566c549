package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/HendryAvila/Receptionist/internal/steps"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- wizard_status ---

// StatusTool handles the wizard_status MCP tool.
type StatusTool struct {
	sessions *sessions.Manager
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(m *sessions.Manager) *StatusTool {
	return &StatusTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_status",
		mcp.WithDescription(
			"Show the onboarding wizard's current step, the fields that step collects, "+
				"outstanding validation errors and whether edits are saved.",
		),
	)
}

// Handle processes the wizard_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	p := e.Session.Progress()

	names := make([]string, 0)
	for _, f := range steps.Fields(p.Step) {
		names = append(names, "`"+string(f)+"`")
	}

	var b strings.Builder
	b.WriteString("# Onboarding Wizard\n\n")
	fmt.Fprintf(&b, "**Identity:** %s\n", p.Identity)
	b.WriteString(renderProgress(p, e.Saver.Status()))
	fmt.Fprintf(&b, "\n**Fields on this step:** %s\n", strings.Join(names, ", "))
	return mcp.NewToolResultText(b.String()), nil
}

// --- wizard_get_field ---

// GetFieldTool handles the wizard_get_field MCP tool.
type GetFieldTool struct {
	sessions *sessions.Manager
}

// NewGetFieldTool creates a GetFieldTool.
func NewGetFieldTool(m *sessions.Manager) *GetFieldTool {
	return &GetFieldTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *GetFieldTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_get_field",
		mcp.WithDescription("Read one wizard field as JSON, or the whole draft when `field` is omitted."),
		mcp.WithString("field",
			mcp.Description("Field name, e.g. businessName, businessHours, departments."),
		),
	)
}

// Handle processes the wizard_get_field tool call.
func (t *GetFieldTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	name := strings.TrimSpace(req.GetString("field", ""))
	if name == "" {
		return jsonText(e.Session.Draft())
	}
	v, err := e.Session.Get(fields.Field(name))
	if err != nil {
		return fieldError(fields.Field(name), err)
	}
	return jsonText(v)
}

// --- wizard_set_field ---

// SetFieldTool handles the wizard_set_field MCP tool.
type SetFieldTool struct {
	sessions *sessions.Manager
}

// NewSetFieldTool creates a SetFieldTool.
func NewSetFieldTool(m *sessions.Manager) *SetFieldTool {
	return &SetFieldTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *SetFieldTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_set_field",
		mcp.WithDescription(
			"Replace the value of one wizard field. Lists and objects may be passed as JSON "+
				"(e.g. services as [\"Cleaning\",\"Whitening\"] or a comma-separated string). "+
				"The change is saved automatically after a short pause.",
		),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Field name. Use wizard_get_field without arguments to list the draft."),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value. Text, true/false, or JSON for lists and objects."),
		),
	)
}

// Handle processes the wizard_set_field tool call.
func (t *SetFieldTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("field", ""))
	if name == "" {
		return mcp.NewToolResultError("'field' is required"), nil
	}
	raw, ok := req.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError("'value' is required"), nil
	}

	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	f := fields.Field(name)
	if err := e.Session.Set(f, decodeValue(f, raw)); err != nil {
		return fieldError(f, err)
	}
	where := ""
	if n := steps.StepOf(f); n != 0 {
		where = fmt.Sprintf(" (step %d: %s)", n, steps.Title(n))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated `%s`%s.\n\n%s", name, where,
		renderProgress(e.Session.Progress(), e.Saver.Status()))), nil
}

// --- wizard_set_nested ---

// SetNestedTool handles the wizard_set_nested MCP tool.
type SetNestedTool struct {
	sessions *sessions.Manager
}

// NewSetNestedTool creates a SetNestedTool.
func NewSetNestedTool(m *sessions.Manager) *SetNestedTool {
	return &SetNestedTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *SetNestedTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_set_nested",
		mcp.WithDescription(
			"Set one subfield of an object field without touching its siblings, "+
				"e.g. contactInfo.city, businessHours.monday or callMenu.welcomeMessage.",
		),
		mcp.WithString("field",
			mcp.Required(),
			mcp.Description("Object field name."),
			mcp.Enum(string(fields.ContactInfoField), string(fields.BusinessHoursField), string(fields.CallMenuField)),
		),
		mcp.WithString("subfield",
			mcp.Required(),
			mcp.Description("Subfield name, e.g. city, monday, welcomeMessage, enabled."),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("New value. Hours use \"9:00 AM - 5:00 PM\" or \"Closed\"."),
		),
	)
}

// Handle processes the wizard_set_nested tool call.
func (t *SetNestedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("field", ""))
	sub := strings.TrimSpace(req.GetString("subfield", ""))
	if name == "" || sub == "" {
		return mcp.NewToolResultError("'field' and 'subfield' are required"), nil
	}
	raw, ok := req.GetArguments()["value"]
	if !ok {
		return mcp.NewToolResultError("'value' is required"), nil
	}

	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	// Subfields hold single values, so JSON-looking text is kept as text.
	if err := e.Session.SetNested(fields.Field(name), sub, raw); err != nil {
		return fieldError(fields.Field(name), err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated `%s.%s`.\n\n%s", name, sub,
		renderProgress(e.Session.Progress(), e.Saver.Status()))), nil
}

// --- wizard_next / wizard_previous / wizard_goto ---

// NavigateTool handles wizard_next, wizard_previous and wizard_goto.
type NavigateTool struct {
	sessions  *sessions.Manager
	direction string
}

// Navigation directions.
const (
	DirNext     = "next"
	DirPrevious = "previous"
	DirGoTo     = "goto"
)

// NewNavigateTool creates a NavigateTool for one direction.
func NewNavigateTool(m *sessions.Manager, direction string) *NavigateTool {
	return &NavigateTool{sessions: m, direction: direction}
}

// Definition returns the MCP tool definition for registration.
func (t *NavigateTool) Definition() mcp.Tool {
	switch t.direction {
	case DirPrevious:
		return mcp.NewTool("wizard_previous",
			mcp.WithDescription("Go back one step. Going back never validates."),
		)
	case DirGoTo:
		return mcp.NewTool("wizard_goto",
			mcp.WithDescription(
				"Jump to a step (1-7). Jumping back is always allowed; jumping forward "+
					"validates every step on the way and stops at the first one with errors.",
			),
			mcp.WithNumber("step",
				mcp.Required(),
				mcp.Description("Target step, 1 to 7."),
			),
		)
	default:
		return mcp.NewTool("wizard_next",
			mcp.WithDescription(
				"Validate the current step and advance. On validation errors the wizard stays "+
					"put and lists what to fix.",
			),
		)
	}
}

// Handle processes the navigation tool call.
func (t *NavigateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	s := e.Session

	moved := true
	switch t.direction {
	case DirPrevious:
		err = s.Previous()
	case DirGoTo:
		n, ok := intArg(req, "step")
		if !ok {
			return mcp.NewToolResultError("'step' must be a whole number from 1 to 7"), nil
		}
		moved, err = s.GoTo(n)
	default:
		moved, err = s.Next()
	}
	if err != nil {
		return toolError(err)
	}

	header := "Moved."
	if !moved {
		header = "The current step has errors; fix them and try again."
	}
	return mcp.NewToolResultText(header + "\n\n" + renderProgress(s.Progress(), e.Saver.Status())), nil
}

// --- wizard_submit ---

// SubmitTool handles the wizard_submit MCP tool.
type SubmitTool struct {
	sessions *sessions.Manager
}

// NewSubmitTool creates a SubmitTool.
func NewSubmitTool(m *sessions.Manager) *SubmitTool {
	return &SubmitTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *SubmitTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_submit",
		mcp.WithDescription(
			"Finish the wizard from the review step. Requires termsAccepted=true. "+
				"Saves the whole configuration immediately and marks it completed; "+
				"afterwards the session is read-only until wizard_restart.",
		),
	)
}

// Handle processes the wizard_submit tool call.
func (t *SubmitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	ok, err := e.Session.Submit(ctx)
	if err != nil {
		return toolError(err)
	}
	if !ok {
		return mcp.NewToolResultText("The review step has errors.\n\n" +
			renderProgress(e.Session.Progress(), e.Saver.Status())), nil
	}
	return mcp.NewToolResultText(
		"# Configuration completed\n\n" +
			"The draft was saved. Run `knowledge_sync` to publish it to the agent.\n"), nil
}

// --- wizard_restart ---

// RestartTool handles the wizard_restart MCP tool.
type RestartTool struct {
	sessions *sessions.Manager
}

// NewRestartTool creates a RestartTool.
func NewRestartTool(m *sessions.Manager) *RestartTool {
	return &RestartTool{sessions: m}
}

// Definition returns the MCP tool definition for registration.
func (t *RestartTool) Definition() mcp.Tool {
	return mcp.NewTool("wizard_restart",
		mcp.WithDescription(
			"Save pending edits and reopen the wizard at step 1 from the stored draft. "+
				"Use it to edit a completed configuration.",
		),
	)
}

// Handle processes the wizard_restart tool call.
func (t *RestartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := t.sessions.Restart(ctx)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText("Wizard reopened.\n\n" + renderProgress(e.Session.Progress(), e.Saver.Status())), nil
}
