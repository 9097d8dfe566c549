// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete stores, catalog
// and session manager and injects them into the tools, prompts and
// resources. No business logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HendryAvila/Receptionist/internal/catalog"
	"github.com/HendryAvila/Receptionist/internal/config"
	"github.com/HendryAvila/Receptionist/internal/docstore"
	"github.com/HendryAvila/Receptionist/internal/identity"
	"github.com/HendryAvila/Receptionist/internal/persist"
	"github.com/HendryAvila/Receptionist/internal/prompts"
	"github.com/HendryAvila/Receptionist/internal/resources"
	"github.com/HendryAvila/Receptionist/internal/sessions"
	"github.com/HendryAvila/Receptionist/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// shutdownTimeout bounds the final flush of pending edits.
const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server is built from. Open builds them
// from settings; tests can build them directly.
type Deps struct {
	Store    docstore.Backend
	Catalog  catalog.Provider
	Identity identity.Provider
	Persist  persist.Config
	Logger   *slog.Logger
}

// Open resolves Deps from settings.
func Open(s *config.Settings, logger *slog.Logger) (*Deps, error) {
	cat, err := catalog.Load(s.CatalogFile)
	if err != nil {
		return nil, err
	}
	store, err := docstore.Open(s.Backend, s.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("store opened", "backend", s.Backend, "data_dir", s.DataDir)
	return &Deps{
		Store:    store,
		Catalog:  cat,
		Identity: identity.FromEnv(s.Identity),
		Persist: persist.Config{
			Window:       s.DebounceWindow,
			WriteTimeout: s.WriteTimeout,
			FinalTimeout: s.FinalTimeout,
			Logger:       logger,
		},
		Logger: logger,
	}, nil
}

// New creates the MCP server with every tool, prompt and resource
// registered.
//
// The returned cleanup function saves pending edits and closes the store.
// It must be called on shutdown (typically via defer) and is always
// non-nil.
func New(d *Deps) (*server.MCPServer, func() error, error) {
	if d.Store == nil || d.Catalog == nil || d.Identity == nil {
		return nil, noop, errors.New("server: store, catalog and identity are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "server")

	cfg := d.Persist
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	manager := sessions.New(d.Store, d.Identity, cfg)

	s := server.NewMCPServer(
		"receptionist",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Wizard tools ---

	for _, t := range []toolHandler{
		tools.NewStatusTool(manager),
		tools.NewGetFieldTool(manager),
		tools.NewSetFieldTool(manager),
		tools.NewSetNestedTool(manager),
		tools.NewNavigateTool(manager, tools.DirNext),
		tools.NewNavigateTool(manager, tools.DirPrevious),
		tools.NewNavigateTool(manager, tools.DirGoTo),
		tools.NewSubmitTool(manager),
		tools.NewRestartTool(manager),

		// --- Routing ---
		tools.NewDepartmentTool(manager, tools.DepartmentAdd),
		tools.NewDepartmentTool(manager, tools.DepartmentUpdate),
		tools.NewDepartmentTool(manager, tools.DepartmentRemove),
		tools.NewMenuTool(manager, tools.MenuShow),
		tools.NewMenuTool(manager, tools.MenuAdd),
		tools.NewMenuTool(manager, tools.MenuRemove),
		tools.NewMenuTool(manager, tools.MenuUpdate),

		// --- Knowledge ---
		tools.NewKnowledgePreviewTool(manager, d.Store),
		tools.NewKnowledgeSyncTool(manager, d.Store),

		// --- Catalogs ---
		tools.NewVoicesTool(d.Catalog),
		tools.NewPhoneNumbersTool(d.Catalog),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Prompts ---

	onboard := prompts.NewOnboardPrompt()
	s.AddPrompt(onboard.Definition(), onboard.Handle)

	status := prompts.NewStatusPrompt()
	s.AddPrompt(status.Definition(), status.Handle)

	// --- Resources ---

	rh := resources.NewHandler(manager)
	s.AddResource(rh.StatusResource(), rh.HandleStatus)
	s.AddResource(rh.DraftResource(), rh.HandleDraft)

	cleanup := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := manager.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("saving pending edits: %w", err))
		}
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
		if err := errors.Join(errs...); err != nil {
			log.Error("shutdown", "err", err)
			return err
		}
		return nil
	}
	return s, cleanup, nil
}

type toolHandler interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// noop is the cleanup returned when construction fails.
func noop() error { return nil }

// serverInstructions tells the AI how to use the receptionist tools.
func serverInstructions() string {
	return `You have access to the Receptionist MCP server, which configures an AI
phone receptionist for a business through a seven-step onboarding wizard.

## Steps
1. Business information: businessName, industry, primaryEmail (required), plus
   businessPhone, website, businessDescription, contactInfo
2. Business hours: businessHours (per day, "9:00 AM - 5:00 PM" or "Closed"),
   timezone, afterHoursBehavior (voicemail, message or forward), forwardingNumber
3. Services: services (at least one), bookingEnabled, bookingServices
4. Agent: agentName, agentVoice, personality, language, greetingMessage,
   goodbyeMessage. Greetings may use {businessName}.
5. Call routing: departments (name, extension, voice) and an optional call menu
6. Phone number: phoneNumber, areaCode
7. Review: termsAccepted, then wizard_submit

## How to work
- Start with wizard_status. Ask the user for the current step's answers.
- Save answers with wizard_set_field or wizard_set_nested. Edits are saved
  automatically after a short pause; you never need to save manually.
- Call wizard_next to move on. If it reports errors, ask the user to fix them.
- Use catalog_voices and catalog_phone_numbers to offer real choices.
- Menu options are edited by id; menu_show lists them.
- Removing a department does not touch menu options that transfer to it;
  wizard_status lists them so you can retarget or remove them.
- After wizard_submit, run knowledge_sync to publish the configuration.
- A completed wizard is read-only. wizard_restart reopens it at step 1.

Never invent answers. Everything saved must come from the user.`
}
