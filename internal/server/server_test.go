package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/HendryAvila/Receptionist/internal/catalog"
	"github.com/HendryAvila/Receptionist/internal/config"
	"github.com/HendryAvila/Receptionist/internal/docstore"
	"github.com/HendryAvila/Receptionist/internal/identity"
	"github.com/HendryAvila/Receptionist/internal/persist"
	"github.com/mark3labs/mcp-go/server"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// listTools asks the server for its tools over JSON-RPC, the way a
// client would.
func listTools(t *testing.T, s *server.MCPServer) map[string]bool {
	t.Helper()
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = true
	}
	return names
}

func TestNew_RegistersEverything(t *testing.T) {
	store, err := docstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, cleanup, err := New(&Deps{
		Store:    store,
		Catalog:  catalog.Default(),
		Identity: identity.Static("u1"),
		Persist:  persist.Config{Window: time.Hour},
		Logger:   quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	got := listTools(t, s)
	for _, name := range []string{
		"wizard_status", "wizard_get_field", "wizard_set_field", "wizard_set_nested",
		"wizard_next", "wizard_previous", "wizard_goto", "wizard_submit", "wizard_restart",
		"department_add", "department_update", "department_remove",
		"menu_show", "menu_add_node", "menu_remove_node", "menu_update_node",
		"knowledge_preview", "knowledge_sync",
		"catalog_voices", "catalog_phone_numbers",
	} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
	if len(got) != 20 {
		t.Errorf("registered %d tools, want 20", len(got))
	}
}

func TestNew_MissingDeps(t *testing.T) {
	_, cleanup, err := New(&Deps{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if cleanup == nil || cleanup() != nil {
		t.Error("cleanup must be a non-nil no-op")
	}
}

func TestOpen_FromSettings(t *testing.T) {
	s := config.Defaults()
	s.DataDir = t.TempDir()
	s.Backend = config.BackendFile
	s.Identity = "owner@acme.test"

	d, err := Open(&s, quiet())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Store.Close()

	if id, ok := d.Identity.Current(context.Background()); !ok || id != "owner@acme.test" {
		t.Errorf("identity = %q, %v", id, ok)
	}
	if d.Persist.Window != s.DebounceWindow {
		t.Errorf("Window = %s", d.Persist.Window)
	}
	if _, ok := d.Store.(*docstore.FileStore); !ok {
		t.Errorf("store = %T, want *docstore.FileStore", d.Store)
	}
}

func TestOpen_BadCatalog(t *testing.T) {
	s := config.Defaults()
	s.DataDir = t.TempDir()
	s.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Open(&s, quiet()); err == nil {
		t.Error("expected an error for a missing catalog file")
	}
}
