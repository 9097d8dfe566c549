package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/mark3labs/mcp-go/mcp"
)

// DepartmentTool handles department_add, department_update and
// department_remove.
type DepartmentTool struct {
	sessions *sessions.Manager
	op       string
}

// Department operations.
const (
	DepartmentAdd    = "add"
	DepartmentUpdate = "update"
	DepartmentRemove = "remove"
)

// NewDepartmentTool creates a DepartmentTool for one operation.
func NewDepartmentTool(m *sessions.Manager, op string) *DepartmentTool {
	return &DepartmentTool{sessions: m, op: op}
}

// Definition returns the MCP tool definition for registration.
func (t *DepartmentTool) Definition() mcp.Tool {
	switch t.op {
	case DepartmentUpdate:
		return mcp.NewTool("department_update",
			mcp.WithDescription("Change the name, extension or voice of one department."),
			mcp.WithNumber("index",
				mcp.Required(),
				mcp.Description("Zero-based position of the department."),
			),
			mcp.WithString("field",
				mcp.Required(),
				mcp.Description("Attribute to change."),
				mcp.Enum("name", "extension", "voice"),
			),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("New value. Voices may be given as \"Sarah\" or \"Sarah (American, Professional)\"."),
			),
		)
	case DepartmentRemove:
		return mcp.NewTool("department_remove",
			mcp.WithDescription(
				"Remove a department. Menu options that transfer to it are kept and "+
					"reported in wizard_status until they are retargeted.",
			),
			mcp.WithNumber("index",
				mcp.Required(),
				mcp.Description("Zero-based position of the department."),
			),
		)
	default:
		return mcp.NewTool("department_add",
			mcp.WithDescription("Append a blank department to fill in with department_update."),
		)
	}
}

// Handle processes the department tool call.
func (t *DepartmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	s := e.Session

	var header string
	switch t.op {
	case DepartmentUpdate, DepartmentRemove:
		i, ok := intArg(req, "index")
		if !ok {
			return mcp.NewToolResultError("'index' must be a whole number"), nil
		}
		if t.op == DepartmentRemove {
			removed, err := s.RemoveDepartment(i)
			if err != nil {
				return toolError(err)
			}
			if !removed {
				return mcp.NewToolResultError(fmt.Sprintf("No department at index %d.", i)), nil
			}
			header = fmt.Sprintf("Removed department %d.", i)
			break
		}
		field := strings.TrimSpace(req.GetString("field", ""))
		if err := s.UpdateDepartment(i, field, req.GetString("value", "")); err != nil {
			return toolError(err)
		}
		header = fmt.Sprintf("Updated `%s` of department %d.", field, i)
	default:
		i, err := s.AddDepartment()
		if err != nil {
			return toolError(err)
		}
		header = fmt.Sprintf("Added department %d.", i)
	}

	var b strings.Builder
	b.WriteString(header + "\n\n## Departments\n\n")
	b.WriteString("| # | Name | Extension | Voice |\n")
	b.WriteString("|---|------|-----------|-------|\n")
	for i, d := range s.Draft().Departments {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i, orDash(d.Name), orDash(d.Extension), orDash(string(d.Voice)))
	}
	if p := s.Progress(); len(p.Dangling) > 0 {
		fmt.Fprintf(&b, "\n%d menu option(s) transfer to a department that no longer exists.\n", len(p.Dangling))
	}
	return mcp.NewToolResultText(b.String()), nil
}
