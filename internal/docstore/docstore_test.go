package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/knowledge"
)

// backends returns a fresh instance of every backend for table tests.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sq, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return map[string]Backend{"sqlite": sq, "file": fs}
}

func decode(t *testing.T, doc []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatalf("document is not a JSON object: %v\n%s", err, doc)
	}
	return m
}

func TestLoadDraft_Missing(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc, found, err := b.LoadDraft(context.Background(), "nobody")
			if err != nil || found || doc != nil {
				t.Errorf("LoadDraft = %q, %v, %v; want nothing", doc, found, err)
			}
		})
	}
}

func TestMergeWrite_PreservesUnrelatedFields(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.MergeWrite(ctx, "u1", map[string]any{"businessName": "Acme", "legacyFlag": true}); err != nil {
				t.Fatal(err)
			}
			if err := b.MergeWrite(ctx, "u1", map[string]any{"businessName": "Acme Dental", "industry": "Health"}); err != nil {
				t.Fatal(err)
			}

			doc, found, err := b.LoadDraft(ctx, "u1")
			if err != nil || !found {
				t.Fatalf("LoadDraft: found=%v err=%v", found, err)
			}
			m := decode(t, doc)
			if m["businessName"] != "Acme Dental" {
				t.Errorf("businessName = %v", m["businessName"])
			}
			if m["industry"] != "Health" {
				t.Errorf("industry = %v", m["industry"])
			}
			if m["legacyFlag"] != true {
				t.Error("unrelated field was dropped")
			}
		})
	}
}

func TestMergeWrite_IdentitiesIsolated(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.MergeWrite(ctx, "a@example.com", map[string]any{"agentName": "A"}); err != nil {
				t.Fatal(err)
			}
			if err := b.MergeWrite(ctx, "a.example.com", map[string]any{"agentName": "B"}); err != nil {
				t.Fatal(err)
			}
			doc, _, err := b.LoadDraft(ctx, "a@example.com")
			if err != nil {
				t.Fatal(err)
			}
			if got := decode(t, doc)["agentName"]; got != "A" {
				t.Errorf("agentName = %v, want A", got)
			}
		})
	}
}

func TestMergeWrite_DraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := fields.NewStore(nil)
			if err := s.Set(fields.BusinessName, "Acme"); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Draft().CallMenu.Nodes.AddNode(""); err != nil {
				t.Fatal(err)
			}
			if err := b.MergeWrite(ctx, "u1", s.Snapshot()); err != nil {
				t.Fatal(err)
			}

			doc, _, err := b.LoadDraft(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			d, err := fields.DecodeDraft(doc)
			if err != nil {
				t.Fatal(err)
			}
			if d.BusinessName != "Acme" || d.CallMenu.Nodes.Len() != 1 || len(d.Departments) != 1 {
				t.Errorf("round trip lost data: %+v", d)
			}
		})
	}
}

func TestRevisions_NewestFirst(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	old := timeNow
	timeNow = func() time.Time { return frozen }
	t.Cleanup(func() { timeNow = old })

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			writes := []map[string]any{
				{"businessName": "A"},
				{"industry": "B", "website": "c"},
				{"timezone": "UTC"},
			}
			for _, w := range writes {
				if err := b.MergeWrite(ctx, "u1", w); err != nil {
					t.Fatal(err)
				}
			}

			revs, err := b.Revisions(ctx, "u1", 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(revs) != 2 {
				t.Fatalf("got %d revisions, want 2", len(revs))
			}
			if strings.Join(revs[0].Fields, ",") != "timezone" {
				t.Errorf("newest = %v", revs[0].Fields)
			}
			if strings.Join(revs[1].Fields, ",") != "industry,website" {
				t.Errorf("second = %v", revs[1].Fields)
			}
			if revs[0].ID == revs[1].ID || len(revs[0].ID) != 26 {
				t.Errorf("revision ids should be distinct ULIDs: %q %q", revs[0].ID, revs[1].ID)
			}
			if !revs[0].CreatedAt.Equal(frozen) {
				t.Errorf("CreatedAt = %v", revs[0].CreatedAt)
			}
		})
	}
}

func TestKnowledge_SaveLoad(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := b.LoadKnowledge(ctx, "u1"); err != nil || found {
				t.Fatalf("empty store: found=%v err=%v", found, err)
			}

			k := knowledge.Synthesize(fields.NewDraft(), &knowledge.Knowledge{BusinessName: "Acme"})
			if err := b.SaveKnowledge(ctx, "u1", k); err != nil {
				t.Fatal(err)
			}
			got, found, err := b.LoadKnowledge(ctx, "u1")
			if err != nil || !found {
				t.Fatalf("LoadKnowledge: found=%v err=%v", found, err)
			}
			if got.BusinessName != "Acme" || got.GreetingMessage != k.GreetingMessage {
				t.Errorf("got %+v", got)
			}
			if got.CallMenu.Options == nil {
				t.Error("menu options should decode to a tree")
			}
		})
	}
}

func TestKnowledge_SyncEndToEnd(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.MergeWrite(ctx, "u1", map[string]any{"businessName": "Acme", "services": []string{"Cleaning"}}); err != nil {
				t.Fatal(err)
			}
			if err := b.SaveKnowledge(ctx, "u1", knowledge.Knowledge{Services: []string{"X-Ray"}}); err != nil {
				t.Fatal(err)
			}
			k, err := knowledge.Sync(ctx, b, b, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(k.Services) != 2 {
				t.Errorf("Services = %v", k.Services)
			}
			stored, _, err := b.LoadKnowledge(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if stored.BusinessName != "Acme" {
				t.Errorf("stored record not updated: %+v", stored)
			}
		})
	}
}

func TestMergeWrite_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fs.DraftPath("u1"), []byte("[1,2,3]"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := fs.MergeWrite(context.Background(), "u1", map[string]any{"a": 1}); err == nil {
		t.Fatal("expected an error for a non-object document")
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fs.MergeWrite(ctx, "u1", map[string]any{"a": 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenSQLite_CreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := OpenSQLite(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestOpenSQLite_OpenError(t *testing.T) {
	old := openDB
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }
	t.Cleanup(func() { openDB = old })

	if _, err := OpenSQLite(t.TempDir()); err == nil || !strings.Contains(err.Error(), "no driver") {
		t.Errorf("err = %v", err)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("postgres", t.TempDir()); err == nil {
		t.Error("expected an error")
	}
}

func TestFileKey(t *testing.T) {
	tests := []struct {
		in         string
		wantPrefix string
	}{
		{"Jane.Doe@Example.com", "jane-doe-example-com-"},
		{"   ", "identity-"},
		{"ünïcode", "n-code-"},
	}
	for _, tt := range tests {
		got := fileKey(tt.in)
		if !strings.HasPrefix(got, tt.wantPrefix) {
			t.Errorf("fileKey(%q) = %q, want prefix %q", tt.in, got, tt.wantPrefix)
		}
	}
	if fileKey("a@b.c") == fileKey("a.b@c") {
		t.Error("colliding slugs must still produce distinct keys")
	}
}
