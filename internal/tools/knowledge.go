package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/Receptionist/internal/knowledge"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/mark3labs/mcp-go/mcp"
)

// KnowledgeStore reads drafts and reads and writes runtime records.
type KnowledgeStore interface {
	knowledge.DraftLoader
	knowledge.Store
}

// KnowledgeTool handles knowledge_preview and knowledge_sync.
type KnowledgeTool struct {
	sessions *sessions.Manager
	store    KnowledgeStore
	publish  bool
}

// NewKnowledgePreviewTool creates the read-only knowledge_preview tool.
func NewKnowledgePreviewTool(m *sessions.Manager, store KnowledgeStore) *KnowledgeTool {
	return &KnowledgeTool{sessions: m, store: store}
}

// NewKnowledgeSyncTool creates the knowledge_sync tool.
func NewKnowledgeSyncTool(m *sessions.Manager, store KnowledgeStore) *KnowledgeTool {
	return &KnowledgeTool{sessions: m, store: store, publish: true}
}

// Definition returns the MCP tool definition for registration.
func (t *KnowledgeTool) Definition() mcp.Tool {
	if t.publish {
		return mcp.NewTool("knowledge_sync",
			mcp.WithDescription(
				"Save pending edits, merge the stored draft with the agent's current knowledge "+
					"record and publish the result as the agent's new configuration.",
			),
		)
	}
	return mcp.NewTool("knowledge_preview",
		mcp.WithDescription(
			"Show the configuration the agent would run with if the current wizard answers "+
				"were published, without saving anything.",
		),
	)
}

// Handle processes the knowledge tool call.
func (t *KnowledgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.publish {
		return t.sync(ctx)
	}
	return t.preview(ctx)
}

func (t *KnowledgeTool) sync(ctx context.Context) (*mcp.CallToolResult, error) {
	id, err := t.sessions.Identity(ctx)
	if err != nil {
		return toolError(err)
	}
	if err := t.sessions.Flush(ctx); err != nil {
		return toolError(err)
	}
	k, err := knowledge.Sync(ctx, t.store, t.store, id)
	if err != nil {
		return nil, fmt.Errorf("syncing knowledge: %w", err)
	}
	return jsonText(k)
}

func (t *KnowledgeTool) preview(ctx context.Context) (*mcp.CallToolResult, error) {
	e, res, err := current(ctx, t.sessions)
	if e == nil {
		return res, err
	}
	runtime, _, err := t.store.LoadKnowledge(ctx, e.Session.Identity())
	if err != nil {
		return nil, fmt.Errorf("loading knowledge record: %w", err)
	}
	return jsonText(knowledge.Synthesize(e.Session.Draft(), runtime))
}
