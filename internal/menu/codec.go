package menu

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// wireNode is the nested form a tree takes in persisted documents.
type wireNode struct {
	ID       string     `json:"id"`
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Action   Action     `json:"action"`
	Target   string     `json:"target"`
	Children []wireNode `json:"children"`
}

// MarshalJSON writes the tree as a nested list of nodes in canonical order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.toWire(t.roots))
}

func (t *Tree) toWire(ids []string) []wireNode {
	out := make([]wireNode, 0, len(ids))
	for _, id := range ids {
		n := t.nodes[id]
		out = append(out, wireNode{
			ID:       n.ID,
			Key:      n.Key,
			Label:    n.Label,
			Action:   n.Action,
			Target:   n.Target,
			Children: t.toWire(n.Children),
		})
	}
	return out
}

// UnmarshalJSON rebuilds the arena from the nested form. Nodes without an
// id get a fresh one; a repeated id is rejected. Unrecognized actions
// decode as transfer.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var wire []wireNode
	if string(data) != "null" {
		if err := json.Unmarshal(data, &wire); err != nil {
			return fmt.Errorf("menu: decode tree: %w", err)
		}
	}

	fresh := NewTree()
	if t.newID != nil {
		fresh.newID = t.newID
	}
	roots, err := fresh.fromWire(wire)
	if err != nil {
		return err
	}
	fresh.roots = roots
	*t = *fresh
	return nil
}

func (t *Tree) fromWire(list []wireNode) ([]string, error) {
	ids := make([]string, 0, len(list))
	for _, w := range list {
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, dup := t.nodes[id]; dup {
			return nil, fmt.Errorf("menu: decode tree: duplicate node id %q", id)
		}
		action := w.Action
		if !validActions[action] {
			action = ActionTransfer
		}
		n := &Node{ID: id, Key: w.Key, Label: w.Label, Action: action, Target: w.Target}
		t.nodes[id] = n

		children, err := t.fromWire(w.Children)
		if err != nil {
			return nil, err
		}
		n.Children = children
		ids = append(ids, id)
	}
	return ids, nil
}
