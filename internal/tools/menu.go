package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/mark3labs/mcp-go/mcp"
)

// MenuTool handles the call-menu editing tools: menu_show,
// menu_add_node, menu_remove_node and menu_update_node.
type MenuTool struct {
	sessions *sessions.Manager
	op       string
}

// Menu operations.
const (
	MenuShow   = "show"
	MenuAdd    = "add"
	MenuRemove = "remove"
	MenuUpdate = "update"
)

// NewMenuTool creates a MenuTool for one operation.
func NewMenuTool(m *sessions.Manager, op string) *MenuTool {
	return &MenuTool{sessions: m, op: op}
}

// Definition returns the MCP tool definition for registration.
func (t *MenuTool) Definition() mcp.Tool {
	switch t.op {
	case MenuAdd:
		return mcp.NewTool("menu_add_node",
			mcp.WithDescription(
				"Add a call-menu option. It gets the next free key among its siblings and "+
					"the transfer action; set label and target with menu_update_node.",
			),
			mcp.WithString("parent_id",
				mcp.Description("Id of the parent option. Omit to add a top-level option."),
			),
		)
	case MenuRemove:
		return mcp.NewTool("menu_remove_node",
			mcp.WithDescription("Remove a call-menu option together with all of its sub-options."),
			mcp.WithString("node_id",
				mcp.Required(),
				mcp.Description("Id of the option to remove."),
			),
		)
	case MenuUpdate:
		return mcp.NewTool("menu_update_node",
			mcp.WithDescription(
				"Change one attribute of a call-menu option. A transfer option's target "+
					"should name a department.",
			),
			mcp.WithString("node_id",
				mcp.Required(),
				mcp.Description("Id of the option to change."),
			),
			mcp.WithString("field",
				mcp.Required(),
				mcp.Description("Attribute to change."),
				mcp.Enum(string(menu.FieldKey), string(menu.FieldLabel), string(menu.FieldAction), string(menu.FieldTarget)),
			),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("New value. Actions: transfer, voicemail, submenu, message, callback."),
			),
		)
	default:
		return mcp.NewTool("menu_show",
			mcp.WithDescription("Show the call menu as a tree with each option's id."),
		)
	}
}

// Handle processes the menu tool call.
func (t *MenuTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	s := e.Session

	var header string
	switch t.op {
	case MenuAdd:
		id, err := s.AddMenuNode(strings.TrimSpace(req.GetString("parent_id", "")))
		if err != nil {
			return toolError(err)
		}
		header = fmt.Sprintf("Added option `%s`.", id)

	case MenuRemove:
		id := strings.TrimSpace(req.GetString("node_id", ""))
		if id == "" {
			return mcp.NewToolResultError("'node_id' is required"), nil
		}
		removed, err := s.RemoveMenuNode(id)
		if err != nil {
			return toolError(err)
		}
		if !removed {
			return mcp.NewToolResultError(fmt.Sprintf("No menu option with id %q.", id)), nil
		}
		header = fmt.Sprintf("Removed option `%s`.", id)

	case MenuUpdate:
		id := strings.TrimSpace(req.GetString("node_id", ""))
		field := strings.TrimSpace(req.GetString("field", ""))
		if id == "" || field == "" {
			return mcp.NewToolResultError("'node_id' and 'field' are required"), nil
		}
		updated, err := s.UpdateMenuNode(id, menu.Field(field), req.GetString("value", ""))
		if err != nil {
			return toolError(err)
		}
		if !updated {
			return mcp.NewToolResultError(fmt.Sprintf("No menu option with id %q.", id)), nil
		}
		header = fmt.Sprintf("Updated `%s` of option `%s`.", field, id)
	}

	d := s.Draft()
	var b strings.Builder
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	state := "disabled"
	if d.CallMenu.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(&b, "## Call menu (%s)\n\n", state)
	if t := d.CallMenu.Nodes; t != nil && t.Len() > 0 {
		fmt.Fprintf(&b, "%d option(s), %d level(s) deep.\n\n", t.Len(), t.Depth())
	}
	b.WriteString(renderMenu(d.CallMenu.Nodes))
	return mcp.NewToolResultText(b.String()), nil
}
