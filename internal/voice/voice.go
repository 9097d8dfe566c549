// Package voice models the voice selector that departments and the agent
// carry. Sources disagree on its shape: older drafts and the catalog send
// a compound label like "Sarah (American, Professional)", newer ones an
// object {name, accent, tone}. Both are normalized into a Selector on
// read so nothing downstream branches on the raw shape again.
package voice

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Kind tags which variant a Selector holds.
type Kind int

const (
	KindNone Kind = iota
	KindBare
	KindQualified
)

// Selector is a tagged union: Bare(name) | Qualified(name, accent, tone).
type Selector struct {
	kind   Kind
	name   string
	accent string
	tone   string
}

// Bare returns a selector carrying only a voice name.
func Bare(name string) Selector {
	name = strings.TrimSpace(name)
	if name == "" {
		return Selector{}
	}
	return Selector{kind: KindBare, name: name}
}

// Qualified returns a selector with accent and tone qualifiers.
// Without qualifiers it degrades to Bare.
func Qualified(name, accent, tone string) Selector {
	name = strings.TrimSpace(name)
	accent = strings.TrimSpace(accent)
	tone = strings.TrimSpace(tone)
	if name == "" {
		return Selector{}
	}
	if accent == "" && tone == "" {
		return Bare(name)
	}
	return Selector{kind: KindQualified, name: name, accent: accent, tone: tone}
}

// Parse reads a compound label. "Sarah (American, Professional)" yields
// Qualified("Sarah", "American", "Professional"); "Sarah" yields Bare.
// A missing closing paren is tolerated.
func Parse(label string) Selector {
	label = strings.TrimSpace(label)
	open := strings.Index(label, "(")
	if open < 0 {
		return Bare(label)
	}

	name := label[:open]
	qual := strings.TrimSuffix(strings.TrimSpace(label[open+1:]), ")")
	parts := strings.SplitN(qual, ",", 2)

	accent := parts[0]
	tone := ""
	if len(parts) == 2 {
		tone = parts[1]
	}
	return Qualified(name, accent, tone)
}

// FromAny accepts the shapes seen at the boundary: a label string, an
// object with name/accent/tone keys, or a Selector.
func FromAny(v any) (Selector, error) {
	switch val := v.(type) {
	case nil:
		return Selector{}, nil
	case Selector:
		return val, nil
	case string:
		return Parse(val), nil
	}

	m, err := cast.ToStringMapStringE(v)
	if err != nil {
		return Selector{}, fmt.Errorf("voice selector: unsupported shape %T", v)
	}
	return Qualified(m["name"], m["accent"], m["tone"]), nil
}

// Kind reports the variant.
func (s Selector) Kind() Kind { return s.kind }

// IsZero reports whether no voice is selected.
func (s Selector) IsZero() bool { return s.kind == KindNone }

// Name returns the bare voice name with qualifiers discarded.
func (s Selector) Name() string { return s.name }

// Accent returns the accent qualifier, if any.
func (s Selector) Accent() string { return s.accent }

// Tone returns the tone qualifier, if any.
func (s Selector) Tone() string { return s.tone }

// Label renders the compound label form.
func (s Selector) Label() string {
	switch s.kind {
	case KindBare:
		return s.name
	case KindQualified:
		var q []string
		if s.accent != "" {
			q = append(q, s.accent)
		}
		if s.tone != "" {
			q = append(q, s.tone)
		}
		return fmt.Sprintf("%s (%s)", s.name, strings.Join(q, ", "))
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (s Selector) String() string { return s.Label() }

// Normalize returns the bare name for any label, trimmed.
func Normalize(label string) string {
	return Parse(label).Name()
}

// MarshalJSON writes the selector as its label.
func (s Selector) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Label())
}

// UnmarshalJSON accepts both the label string and the object form.
func (s *Selector) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sel, err := FromAny(raw)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
