// Package docstore holds the identity-scoped document stores: the wizard
// draft (merge-written field by field, with a revision trail) and the
// runtime knowledge record.
//
// Two backends share the same semantics: SQLiteStore for normal use and
// FileStore, one JSON document per identity, for setups without a
// database.
package docstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/Receptionist/internal/knowledge"
	"github.com/HendryAvila/Receptionist/internal/persist"
)

// Revision records one merge write.
type Revision struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity"`
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend is what the rest of the program needs from a store.
type Backend interface {
	persist.DocumentStore
	knowledge.Store
	Revisions(ctx context.Context, identity string, limit int) ([]Revision, error)
	Close() error
}

var (
	_ Backend = (*SQLiteStore)(nil)
	_ Backend = (*FileStore)(nil)
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// mergeDoc overlays fields onto an existing JSON object document. Keys not
// in fields are kept byte for byte. It returns the new document and the
// sorted list of written keys.
func mergeDoc(existing []byte, fields map[string]any) ([]byte, []string, error) {
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(existing)) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, nil, fmt.Errorf("stored document is not a JSON object: %w", err)
		}
		if doc == nil {
			doc = map[string]json.RawMessage{}
		}
	}

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("encode field %q: %w", k, err)
		}
		doc[k] = raw
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document: %w", err)
	}
	return out, keys, nil
}

// fileKey turns an identity into a file-name-safe key. The slug keeps it
// readable; the hash suffix keeps distinct identities apart when their
// slugs collide.
func fileKey(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return slugify(identity) + "-" + hex.EncodeToString(sum[:4])
}

// slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into one hyphen.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > 40 {
		out = strings.TrimRight(out[:40], "-")
	}
	if out == "" {
		return "identity"
	}
	return out
}
