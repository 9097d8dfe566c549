// Package tools implements the MCP tool handlers that drive the wizard.
//
// Each tool receives its dependencies via its struct and exposes a
// Definition for registration and a Handle compatible with mcp-go's
// CallToolRequest signature. User mistakes (bad field names, invalid
// values, finished sessions) come back as tool errors; only internal
// faults are returned as Go errors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/persist"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/HendryAvila/Receptionist/internal/steps"
	"github.com/HendryAvila/Receptionist/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
)

// userErrors are the sentinels a caller can fix by changing the request.
var userErrors = []error{
	apperr.ErrUnknownField,
	apperr.ErrInvalidValue,
	apperr.ErrNodeNotFound,
	apperr.ErrCompleted,
	apperr.ErrNotFinalStep,
	apperr.ErrNoIdentity,
	apperr.ErrFatal,
	apperr.ErrTransient,
}

// toolError turns err into a tool error result when the caller can act on
// it, and returns it as a Go error otherwise.
func toolError(err error) (*mcp.CallToolResult, error) {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			msg := err.Error()
			switch {
			case errors.Is(err, apperr.ErrCompleted):
				msg += ". Call `wizard_restart` to edit the configuration again."
			case errors.Is(err, apperr.ErrNoIdentity):
				msg += ". Set an identity with --identity or RECEPTIONIST_IDENTITY."
			}
			return mcp.NewToolResultError(msg), nil
		}
	}
	return nil, err
}

// current returns the open session for the caller's identity.
func current(ctx context.Context, m *sessions.Manager) (*sessions.Entry, *mcp.CallToolResult, error) {
	e, err := m.Current(ctx)
	if err != nil {
		res, gerr := toolError(err)
		return nil, res, gerr
	}
	return e, nil, nil
}

// decodeValue accepts the raw "value" argument for field f. For list and
// object fields a string holding JSON is decoded, so clients that only
// send strings can still set them. Text fields keep the string as given.
func decodeValue(f fields.Field, raw any) any {
	s, ok := raw.(string)
	if !ok || !fields.Structured(f) {
		return raw
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return s
}

// intArg extracts a whole-number argument. JSON numbers arrive as
// float64; a fractional value is rejected rather than truncated.
func intArg(req mcp.CallToolRequest, key string) (int, bool) {
	switch v := req.GetArguments()[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// fieldError is toolError with the valid names appended when the field or
// subfield is unknown.
func fieldError(f fields.Field, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, apperr.ErrUnknownField) {
		return mcp.NewToolResultError(err.Error() + fieldHint(f)), nil
	}
	return toolError(err)
}

// fieldHint lists the valid names when a field or subfield is unknown.
func fieldHint(f fields.Field) string {
	if !fields.Known(f) {
		names := make([]string, 0, len(fields.All()))
		for _, k := range fields.All() {
			names = append(names, string(k))
		}
		return "\n\nKnown fields: " + strings.Join(names, ", ")
	}
	if subs := fields.Subfields(f); subs != nil {
		return fmt.Sprintf("\n\nSubfields of %s: %s", f, strings.Join(subs, ", "))
	}
	return ""
}

// renderProgress formats where the session stands as markdown.
func renderProgress(p wizard.Progress, st persist.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Step %d/%d:** %s\n", p.Step, p.Total, p.Title)
	if p.Completed {
		b.WriteString("**Status:** completed\n")
	}

	switch {
	case persist.IsTransient(st.Err):
		fmt.Fprintf(&b, "**Saving:** failed (%v); will retry on the next edit\n", st.Err)
	case st.Err != nil:
		fmt.Fprintf(&b, "**Saving:** failed (%v)\n", st.Err)
	case st.Writing:
		b.WriteString("**Saving:** in progress\n")
	case len(st.Pending) > 0:
		fmt.Fprintf(&b, "**Saving:** pending (%s)\n", strings.Join(st.Pending, ", "))
	default:
		b.WriteString("**Saving:** up to date\n")
	}

	if len(p.Errors) > 0 {
		b.WriteString("\n## Validation errors\n\n")
		for _, k := range sortedKeys(p.Errors) {
			fmt.Fprintf(&b, "- `%s`: %s\n", k, p.Errors[k])
		}
	}
	if len(p.Dangling) > 0 {
		b.WriteString("\n## Menu options pointing at missing departments\n\n")
		for _, id := range p.Dangling {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}
	return b.String()
}

func sortedKeys(errs steps.Errors) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// renderMenu draws the tree as an indented list.
func renderMenu(t *menu.Tree) string {
	if t == nil || t.Len() == 0 {
		return "_No menu options._\n"
	}
	var b strings.Builder
	t.Walk(func(n menu.Node, depth int) bool {
		fmt.Fprintf(&b, "%s- [%s] %s → %s", strings.Repeat("  ", depth), n.Key, orDash(n.Label), n.Action)
		if n.Target != "" {
			fmt.Fprintf(&b, " %q", n.Target)
		}
		fmt.Fprintf(&b, " (`%s`)\n", n.ID)
		return true
	})
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func jsonText(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
