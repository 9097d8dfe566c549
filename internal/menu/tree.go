// Package menu implements the call-routing menu (IVR) tree editor.
//
// The tree is an arena: nodes live in a map addressed by id, and each
// node keeps an ordered list of child ids. Nodes are only created by
// AddNode under an existing parent and never reattached, so ids stay
// unique and no node can become its own ancestor.
//
// Traversal is always pre-order depth-first over the ordered forest; that
// order is the canonical node order for rendering and for lookups like
// FirstTargeting.
package menu

import (
	"fmt"
	"slices"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/google/uuid"
)

// Root addresses the tree root in AddNode.
const Root = ""

// Action is what a menu option does when its key is pressed.
type Action string

const (
	ActionTransfer  Action = "transfer"
	ActionVoicemail Action = "voicemail"
	ActionSubmenu   Action = "submenu"
	ActionMessage   Action = "message"
	ActionCallback  Action = "callback"
)

var validActions = map[Action]bool{
	ActionTransfer:  true,
	ActionVoicemail: true,
	ActionSubmenu:   true,
	ActionMessage:   true,
	ActionCallback:  true,
}

// ValidateAction returns an error if the action is not recognized.
func ValidateAction(a Action) error {
	if !validActions[a] {
		return fmt.Errorf("%w: action %q: must be one of: transfer, voicemail, submenu, message, callback", apperr.ErrInvalidValue, a)
	}
	return nil
}

// Field names an editable node attribute.
type Field string

const (
	FieldKey    Field = "key"
	FieldLabel  Field = "label"
	FieldAction Field = "action"
	FieldTarget Field = "target"
)

// keyOrder is the order default keys are handed out among siblings.
var keyOrder = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "*", "#"}

// Node is one menu option. Children is structurally present on every
// node but only meaningful when Action is submenu.
type Node struct {
	ID       string
	Key      string
	Label    string
	Action   Action
	Target   string
	Children []string
}

// clone returns a copy that does not share the Children backing array.
func (n *Node) clone() Node {
	c := *n
	c.Children = slices.Clone(n.Children)
	if c.Children == nil {
		c.Children = []string{}
	}
	return c
}

// Tree is the routing menu arena.
type Tree struct {
	nodes map[string]*Node
	roots []string
	newID func() string
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{
		nodes: make(map[string]*Node),
		roots: []string{},
		newID: uuid.NewString,
	}
}

// SetIDSource overrides id minting. Tests use it for readable ids; the
// source must never repeat an id.
func (t *Tree) SetIDSource(fn func() string) {
	t.newID = fn
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the ids of the top-level options in order.
func (t *Tree) Roots() []string { return slices.Clone(t.roots) }

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// AddNode appends a fresh node under parentID (Root for top level) and
// returns its id.
func (t *Tree) AddNode(parentID string) (string, error) {
	siblings := &t.roots
	if parentID != Root {
		parent, ok := t.nodes[parentID]
		if !ok {
			return "", fmt.Errorf("menu: add under %q: %w", parentID, apperr.ErrNodeNotFound)
		}
		siblings = &parent.Children
	}

	id := t.newID()
	if _, dup := t.nodes[id]; dup || id == Root {
		return "", fmt.Errorf("menu: id source produced unusable id %q", id)
	}

	t.nodes[id] = &Node{
		ID:       id,
		Key:      t.nextKey(*siblings),
		Action:   ActionTransfer,
		Children: []string{},
	}
	*siblings = append(*siblings, id)
	return id, nil
}

// nextKey picks the first key in keyOrder not used by a sibling.
func (t *Tree) nextKey(siblings []string) string {
	used := make(map[string]bool, len(siblings))
	for _, id := range siblings {
		used[t.nodes[id].Key] = true
	}
	for _, k := range keyOrder {
		if !used[k] {
			return k
		}
	}
	return ""
}

// locate finds id by pre-order DFS and returns the slice holding it and
// its index there.
func (t *Tree) locate(id string) (*[]string, int, bool) {
	var search func(list *[]string) (*[]string, int, bool)
	search = func(list *[]string) (*[]string, int, bool) {
		for i, cid := range *list {
			if cid == id {
				return list, i, true
			}
			if owner, idx, ok := search(&t.nodes[cid].Children); ok {
				return owner, idx, true
			}
		}
		return nil, 0, false
	}
	return search(&t.roots)
}

// RemoveNode deletes the node and its whole subtree. It reports false,
// leaving the tree untouched, when the id does not exist.
func (t *Tree) RemoveNode(id string) bool {
	owner, idx, ok := t.locate(id)
	if !ok {
		return false
	}
	*owner = slices.Delete(*owner, idx, idx+1)
	t.dropSubtree(id)
	return true
}

func (t *Tree) dropSubtree(id string) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, cid := range n.Children {
		t.dropSubtree(cid)
	}
	delete(t.nodes, id)
}

// UpdateField replaces exactly one field on the node. It returns
// (false, nil) when the id does not exist; an unknown field or an invalid
// action is an error.
func (t *Tree) UpdateField(id string, field Field, value string) (bool, error) {
	switch field {
	case FieldKey, FieldLabel, FieldTarget:
	case FieldAction:
		if err := ValidateAction(Action(value)); err != nil {
			return false, fmt.Errorf("menu: update %q: %w", id, err)
		}
	default:
		return false, fmt.Errorf("menu: update %q field %q: %w", id, field, apperr.ErrUnknownField)
	}

	owner, idx, ok := t.locate(id)
	if !ok {
		return false, nil
	}
	n := t.nodes[(*owner)[idx]]

	switch field {
	case FieldKey:
		n.Key = value
	case FieldLabel:
		n.Label = value
	case FieldAction:
		n.Action = Action(value)
	case FieldTarget:
		n.Target = value
	}
	return true, nil
}

// Walk visits every node pre-order with its depth (0 for top level).
// Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	var visit func(ids []string, depth int) bool
	visit = func(ids []string, depth int) bool {
		for _, id := range ids {
			n := t.nodes[id]
			if !fn(n.clone(), depth) {
				return false
			}
			if !visit(n.Children, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.roots, 0)
}

// Nodes returns copies of all nodes in canonical pre-order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, 0, len(t.nodes))
	t.Walk(func(n Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Depth returns the number of levels in the tree (0 when empty).
func (t *Tree) Depth() int {
	deepest := 0
	t.Walk(func(_ Node, depth int) bool {
		if depth+1 > deepest {
			deepest = depth + 1
		}
		return true
	})
	return deepest
}

// FirstTargeting returns the first node in pre-order whose target equals
// name.
func (t *Tree) FirstTargeting(name string) (Node, bool) {
	var found Node
	var ok bool
	t.Walk(func(n Node, _ int) bool {
		if n.Target == name {
			found, ok = n, true
			return false
		}
		return true
	})
	return found, ok
}

// DanglingTargets returns transfer nodes whose target names none of the
// given departments. Removing a department never cascades into the menu,
// so this is how callers find the references it left behind.
func (t *Tree) DanglingTargets(departments []string) []Node {
	known := make(map[string]bool, len(departments))
	for _, d := range departments {
		known[d] = true
	}
	var out []Node
	t.Walk(func(n Node, _ int) bool {
		if n.Action == ActionTransfer && n.Target != "" && !known[n.Target] {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Clone returns a deep copy sharing no state with t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes: make(map[string]*Node, len(t.nodes)),
		roots: slices.Clone(t.roots),
		newID: t.newID,
	}
	if c.roots == nil {
		c.roots = []string{}
	}
	for id, n := range t.nodes {
		cp := n.clone()
		c.nodes[id] = &cp
	}
	return c
}
