// Package knowledge synthesizes the effective agent configuration from the
// persisted wizard draft and the runtime knowledge record.
//
// The two sources are updated independently and are only eventually
// consistent, so synthesis is a pure function that can run at any time:
// draft values win when non-empty, the runtime record fills the gaps, and
// built-in defaults cover whatever neither source has.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/hours"
	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/voice"
)

// Defaults for values neither source provides.
const (
	DefaultAgentName = "Assistant"
	// fallbackBusinessName stands in for a missing business name inside
	// greeting and goodbye templates only.
	fallbackBusinessName = "our office"
)

// Department is a resolved transfer destination.
type Department struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Voice     string `json:"voice"`
	// MenuKey is the key of the first menu option, in pre-order, that
	// transfers to this department.
	MenuKey string `json:"menuKey,omitempty"`
}

// CallMenu is the resolved routing menu.
type CallMenu struct {
	Enabled        bool       `json:"enabled"`
	WelcomeMessage string     `json:"welcomeMessage"`
	Options        *menu.Tree `json:"options"`
}

// Knowledge is both the runtime knowledge record and the effective
// configuration synthesis produces.
type Knowledge struct {
	BusinessName        string             `json:"businessName"`
	Industry            string             `json:"industry"`
	BusinessDescription string             `json:"businessDescription"`
	PrimaryEmail        string             `json:"primaryEmail"`
	BusinessPhone       string             `json:"businessPhone"`
	Website             string             `json:"website"`
	ContactInfo         fields.ContactInfo `json:"contactInfo"`

	BusinessHours      fields.BusinessHours `json:"businessHours"`
	Hours              hours.Window         `json:"hours"`
	Timezone           string               `json:"timezone"`
	AfterHoursBehavior string               `json:"afterHoursBehavior"`
	ForwardingNumber   string               `json:"forwardingNumber"`

	Services        []string                `json:"services"`
	BookingEnabled  bool                    `json:"bookingEnabled"`
	BookingServices []fields.BookingService `json:"bookingServices"`

	AgentName       string `json:"agentName"`
	AgentVoice      string `json:"agentVoice"`
	Personality     string `json:"personality"`
	Language        string `json:"language"`
	GreetingMessage string `json:"greetingMessage"`
	GoodbyeMessage  string `json:"goodbyeMessage"`

	Departments []Department `json:"departments"`
	CallMenu    CallMenu     `json:"callMenu"`

	PhoneNumber string `json:"phoneNumber"`
}

// Store is the runtime knowledge store.
type Store interface {
	LoadKnowledge(ctx context.Context, identity string) (*Knowledge, bool, error)
	SaveKnowledge(ctx context.Context, identity string, k Knowledge) error
}

// DraftLoader reads the persisted draft document.
type DraftLoader interface {
	LoadDraft(ctx context.Context, identity string) (doc []byte, found bool, err error)
}

// Sync loads both sources for identity, synthesizes them and saves the
// result back as the new runtime record.
func Sync(ctx context.Context, drafts DraftLoader, store Store, identity string) (Knowledge, error) {
	var draft *fields.Draft
	doc, found, err := drafts.LoadDraft(ctx, identity)
	if err != nil {
		return Knowledge{}, fmt.Errorf("knowledge: load draft: %w", err)
	}
	if found {
		if draft, err = fields.DecodeDraft(doc); err != nil {
			return Knowledge{}, fmt.Errorf("knowledge: %w", err)
		}
	}

	runtime, _, err := store.LoadKnowledge(ctx, identity)
	if err != nil {
		return Knowledge{}, fmt.Errorf("knowledge: load runtime record: %w", err)
	}

	k := Synthesize(draft, runtime)
	if err := store.SaveKnowledge(ctx, identity, k); err != nil {
		return Knowledge{}, fmt.Errorf("knowledge: save: %w", err)
	}
	return k, nil
}

// Synthesize merges a draft and a runtime record. Either may be nil. It
// never fails and never mutates its inputs.
func Synthesize(draft *fields.Draft, runtime *Knowledge) Knowledge {
	d := &fields.Draft{}
	if draft != nil {
		d = draft
	}
	r := &Knowledge{}
	if runtime != nil {
		r = runtime
	}

	k := Knowledge{
		BusinessName:        pick(d.BusinessName, r.BusinessName, ""),
		Industry:            pick(d.Industry, r.Industry, ""),
		BusinessDescription: pick(d.BusinessDescription, r.BusinessDescription, ""),
		PrimaryEmail:        pick(d.PrimaryEmail, r.PrimaryEmail, ""),
		BusinessPhone:       pick(d.BusinessPhone, r.BusinessPhone, ""),
		Website:             pick(d.Website, r.Website, ""),
		ContactInfo: fields.ContactInfo{
			Address: pick(d.ContactInfo.Address, r.ContactInfo.Address, ""),
			City:    pick(d.ContactInfo.City, r.ContactInfo.City, ""),
			State:   pick(d.ContactInfo.State, r.ContactInfo.State, ""),
			Zip:     pick(d.ContactInfo.Zip, r.ContactInfo.Zip, ""),
			Country: pick(d.ContactInfo.Country, r.ContactInfo.Country, ""),
		},

		Timezone:           pick(d.Timezone, r.Timezone, fields.DefaultTimezone),
		AfterHoursBehavior: pick(d.AfterHoursBehavior, r.AfterHoursBehavior, fields.DefaultAfterHours),
		ForwardingNumber:   pick(d.ForwardingNumber, r.ForwardingNumber, ""),

		BookingEnabled: d.BookingEnabled || r.BookingEnabled,

		AgentName:   pick(d.AgentName, r.AgentName, DefaultAgentName),
		AgentVoice:  voice.Normalize(pick(string(d.AgentVoice), r.AgentVoice, "")),
		Personality: pick(d.Personality, r.Personality, fields.DefaultPersonality),
		Language:    pick(d.Language, r.Language, fields.DefaultLanguage),

		PhoneNumber: pick(d.PhoneNumber, r.PhoneNumber, ""),
	}

	k.BusinessHours = mergeHours(d.BusinessHours, r.BusinessHours)
	k.Hours = hours.Aggregate(k.BusinessHours.Days())

	name := k.BusinessName
	if name == "" {
		name = fallbackBusinessName
	}
	k.GreetingMessage = substitute(pick(d.GreetingMessage, r.GreetingMessage, fields.DefaultGreeting), name)
	k.GoodbyeMessage = substitute(pick(d.GoodbyeMessage, r.GoodbyeMessage, fields.DefaultGoodbye), name)

	k.Services = unionFold(d.Services, r.Services)
	k.BookingServices = wholesaleBooking(d.BookingServices, r.BookingServices)

	k.CallMenu = mergeMenu(d.CallMenu, r.CallMenu)
	k.Departments = mergeDepartments(d.Departments, r.Departments, k.CallMenu.Options)
	return k
}

// pick returns the first non-blank value.
func pick(draft, runtime, def string) string {
	if strings.TrimSpace(draft) != "" {
		return draft
	}
	if strings.TrimSpace(runtime) != "" {
		return runtime
	}
	return def
}

// substitute replaces the business-name token once. Output without the
// token passes through unchanged, so re-running is a no-op.
func substitute(template, name string) string {
	return strings.Replace(template, fields.BusinessNameToken, name, 1)
}

func mergeHours(d, r fields.BusinessHours) fields.BusinessHours {
	def := fields.DefaultHours()
	return fields.BusinessHours{
		Monday:    pick(d.Monday, r.Monday, def.Monday),
		Tuesday:   pick(d.Tuesday, r.Tuesday, def.Tuesday),
		Wednesday: pick(d.Wednesday, r.Wednesday, def.Wednesday),
		Thursday:  pick(d.Thursday, r.Thursday, def.Thursday),
		Friday:    pick(d.Friday, r.Friday, def.Friday),
		Saturday:  pick(d.Saturday, r.Saturday, def.Saturday),
		Sunday:    pick(d.Sunday, r.Sunday, def.Sunday),
	}
}

// unionFold merges two service lists: draft order first, then runtime
// entries not already present, compared case-insensitively.
func unionFold(draft, runtime []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range [][]string{draft, runtime} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

func wholesaleBooking(draft, runtime []fields.BookingService) []fields.BookingService {
	src := runtime
	if len(draft) > 0 {
		src = draft
	}
	out := make([]fields.BookingService, 0, len(src))
	return append(out, src...)
}

// mergeDepartments takes the draft list wholesale when it has any named
// department, otherwise the runtime list. Blank placeholders are dropped,
// voices are reduced to their bare name and each department learns the
// first menu key that routes to it.
func mergeDepartments(draft []fields.Department, runtime []Department, options *menu.Tree) []Department {
	var src []Department
	for _, dep := range draft {
		if strings.TrimSpace(dep.Name) == "" {
			continue
		}
		src = append(src, Department{Name: dep.Name, Extension: dep.Extension, Voice: string(dep.Voice)})
	}
	if len(src) == 0 {
		for _, dep := range runtime {
			if strings.TrimSpace(dep.Name) != "" {
				src = append(src, dep)
			}
		}
	}

	out := make([]Department, 0, len(src))
	for _, dep := range src {
		dep.Voice = voice.Normalize(dep.Voice)
		dep.MenuKey = ""
		if options != nil {
			if n, ok := options.FirstTargeting(dep.Name); ok {
				dep.MenuKey = n.Key
			}
		}
		out = append(out, dep)
	}
	return out
}

// mergeMenu takes the draft menu when it has options or is enabled,
// otherwise the runtime one.
func mergeMenu(draft fields.CallMenu, runtime CallMenu) CallMenu {
	if draft.Enabled || (draft.Nodes != nil && draft.Nodes.Len() > 0) {
		return CallMenu{
			Enabled:        draft.Enabled,
			WelcomeMessage: pick(draft.WelcomeMessage, runtime.WelcomeMessage, ""),
			Options:        cloneTree(draft.Nodes),
		}
	}
	return CallMenu{
		Enabled:        runtime.Enabled,
		WelcomeMessage: pick(draft.WelcomeMessage, runtime.WelcomeMessage, ""),
		Options:        cloneTree(runtime.Options),
	}
}

func cloneTree(t *menu.Tree) *menu.Tree {
	if t == nil {
		return menu.NewTree()
	}
	return t.Clone()
}
