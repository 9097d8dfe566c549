package docstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/HendryAvila/Receptionist/internal/knowledge"
	"github.com/oklog/ulid/v2"
)

// Subdirectories of a FileStore root.
const (
	DraftsDir    = "drafts"
	KnowledgeDir = "knowledge"
)

// FileStore keeps one JSON document per identity on the local filesystem.
// Writes go through a temp file and a rename, so a crash never leaves a
// half-written document.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates a filesystem-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{DraftsDir, KnowledgeDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("docstore: create %s directory: %w", sub, err)
		}
	}
	return &FileStore{root: dir}, nil
}

// DraftPath returns the draft document path for identity.
func (fs *FileStore) DraftPath(identity string) string {
	return filepath.Join(fs.root, DraftsDir, fileKey(identity)+".json")
}

func (fs *FileStore) revisionsPath(identity string) string {
	return filepath.Join(fs.root, DraftsDir, fileKey(identity)+".revisions.jsonl")
}

func (fs *FileStore) knowledgePath(identity string) string {
	return filepath.Join(fs.root, KnowledgeDir, fileKey(identity)+".json")
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// LoadDraft returns the identity's draft document.
func (fs *FileStore) LoadDraft(ctx context.Context, identity string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, found, err := readOptional(fs.DraftPath(identity))
	if err != nil {
		return nil, false, fmt.Errorf("docstore: reading draft: %w", err)
	}
	return data, found, nil
}

// MergeWrite overlays fields onto the stored draft and appends a revision
// line.
func (fs *FileStore) MergeWrite(ctx context.Context, identity string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.DraftPath(identity)
	existing, _, err := readOptional(path)
	if err != nil {
		return fmt.Errorf("docstore: reading draft: %w", err)
	}
	doc, keys, err := mergeDoc(existing, fields)
	if err != nil {
		return fmt.Errorf("docstore: merge draft: %w", err)
	}
	if err := writeFileAtomic(path, doc, 0o600); err != nil {
		return fmt.Errorf("docstore: writing draft: %w", err)
	}

	now := timeNow().UTC()
	rev := Revision{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Identity:  identity,
		Fields:    keys,
		CreatedAt: now,
	}
	line, err := json.Marshal(rev)
	if err != nil {
		return fmt.Errorf("docstore: encode revision: %w", err)
	}
	f, err := os.OpenFile(fs.revisionsPath(identity), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("docstore: open revision log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("docstore: append revision: %w", err)
	}
	return nil
}

// Revisions returns the identity's most recent revisions, newest first.
// A limit of zero or less means 20.
func (fs *FileStore) Revisions(ctx context.Context, identity string, limit int) ([]Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	fs.mu.Lock()
	data, _, err := readOptional(fs.revisionsPath(identity))
	fs.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("docstore: reading revision log: %w", err)
	}

	var all []Revision
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var r Revision
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("docstore: decode revision: %w", err)
		}
		all = append(all, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("docstore: reading revision log: %w", err)
	}

	out := make([]Revision, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// LoadKnowledge returns the identity's runtime knowledge record.
func (fs *FileStore) LoadKnowledge(ctx context.Context, identity string) (*knowledge.Knowledge, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	fs.mu.Lock()
	data, found, err := readOptional(fs.knowledgePath(identity))
	fs.mu.Unlock()
	if err != nil {
		return nil, false, fmt.Errorf("docstore: reading knowledge: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	var k knowledge.Knowledge
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, false, fmt.Errorf("docstore: parsing knowledge for %q: %w", identity, err)
	}
	return &k, true, nil
}

// SaveKnowledge replaces the identity's runtime knowledge record.
func (fs *FileStore) SaveKnowledge(ctx context.Context, identity string, k knowledge.Knowledge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(k, "", "  ")
	if err != nil {
		return fmt.Errorf("docstore: encode knowledge: %w", err)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := writeFileAtomic(fs.knowledgePath(identity), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("docstore: writing knowledge: %w", err)
	}
	return nil
}

// Close is a no-op; it lets FileStore stand in for SQLiteStore.
func (fs *FileStore) Close() error { return nil }

// writeFileAtomic writes to a temp file, syncs it and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
