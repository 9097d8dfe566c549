// Package resources implements MCP resource handlers for the wizard.
//
// Resources provide read-only data the host can pull in as context. They
// use receptionist:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/HendryAvila/Receptionist/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
)

// URIs served by Handler.
const (
	StatusURI = "receptionist://wizard/status"
	DraftURI  = "receptionist://wizard/draft"
)

// Handler serves wizard resources.
type Handler struct {
	sessions *sessions.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(m *sessions.Manager) *Handler {
	return &Handler{sessions: m}
}

// StatusResource returns the MCP resource definition for wizard status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Wizard Status",
		mcp.WithResourceDescription("Current wizard step, validation errors and save state"),
		mcp.WithMIMEType("application/json"),
	)
}

// DraftResource returns the MCP resource definition for the draft.
func (h *Handler) DraftResource() mcp.Resource {
	return mcp.NewResource(
		DraftURI,
		"Wizard Draft",
		mcp.WithResourceDescription("Every answer collected by the wizard so far"),
		mcp.WithMIMEType("application/json"),
	)
}

// status is the JSON shape of the status resource.
type status struct {
	wizard.Progress
	PendingSave []string `json:"pendingSave,omitempty"`
	Saving      bool     `json:"saving"`
	SaveError   string   `json:"saveError,omitempty"`
}

// HandleStatus returns the current wizard status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	e, err := h.sessions.Current(ctx)
	if err != nil {
		return h.failed(req.Params.URI, err)
	}
	st := e.Saver.Status()
	out := status{
		Progress:    e.Session.Progress(),
		PendingSave: st.Pending,
		Saving:      st.Writing,
	}
	if st.Err != nil {
		out.SaveError = st.Err.Error()
	}
	return jsonResource(req.Params.URI, out)
}

// HandleDraft returns the current draft as JSON.
func (h *Handler) HandleDraft(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	e, err := h.sessions.Current(ctx)
	if err != nil {
		return h.failed(req.Params.URI, err)
	}
	return jsonResource(req.Params.URI, e.Session.Draft())
}

func (h *Handler) failed(uri string, err error) ([]mcp.ResourceContents, error) {
	if errors.Is(err, apperr.ErrNoIdentity) {
		return errorResource(uri, err.Error()), nil
	}
	return nil, err
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
