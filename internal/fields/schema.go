package fields

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/apperr"
	"github.com/HendryAvila/Receptionist/internal/hours"
	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/voice"
	"github.com/spf13/cast"
)

// fieldSpec binds a field name to its accessors. nested is nil for
// fields that are not objects.
type fieldSpec struct {
	get    func(d *Draft) any
	set    func(d *Draft, v any) error
	nested func(d *Draft, sub string, v any) error
}

var subfieldNames = map[Field][]string{
	ContactInfoField:   {"address", "city", "state", "zip", "country"},
	BusinessHoursField: hours.Days,
	CallMenuField:      {"enabled", "welcomeMessage"},
}

var schema = map[Field]fieldSpec{
	BusinessName:        stringField(func(d *Draft) *string { return &d.BusinessName }),
	Industry:            stringField(func(d *Draft) *string { return &d.Industry }),
	PrimaryEmail:        stringField(func(d *Draft) *string { return &d.PrimaryEmail }),
	BusinessPhone:       stringField(func(d *Draft) *string { return &d.BusinessPhone }),
	Website:             stringField(func(d *Draft) *string { return &d.Website }),
	BusinessDescription: stringField(func(d *Draft) *string { return &d.BusinessDescription }),
	ContactInfoField: {
		get:    func(d *Draft) any { return d.ContactInfo },
		set:    setContactInfo,
		nested: setContactSubfield,
	},

	BusinessHoursField: {
		get:    func(d *Draft) any { return d.BusinessHours },
		set:    setBusinessHours,
		nested: setDay,
	},
	Timezone:           stringField(func(d *Draft) *string { return &d.Timezone }),
	AfterHoursBehavior: enumField(func(d *Draft) *string { return &d.AfterHoursBehavior }, afterHoursOptions),
	ForwardingNumber:   stringField(func(d *Draft) *string { return &d.ForwardingNumber }),

	Services: {
		get: func(d *Draft) any { return slices.Clone(d.Services) },
		set: func(d *Draft, v any) error {
			list, err := toStringList(v)
			if err != nil {
				return err
			}
			d.Services = list
			return nil
		},
	},
	BookingEnabled: boolField(func(d *Draft) *bool { return &d.BookingEnabled }),
	BookingServices: {
		get: func(d *Draft) any { return slices.Clone(d.BookingServices) },
		set: setBookingServices,
	},

	AgentName: stringField(func(d *Draft) *string { return &d.AgentName }),
	AgentVoice: {
		get: func(d *Draft) any { return string(d.AgentVoice) },
		set: func(d *Draft, v any) error {
			sel, err := voice.FromAny(v)
			if err != nil {
				return fmt.Errorf("%w: %v", apperr.ErrInvalidValue, err)
			}
			d.AgentVoice = VoiceLabel(sel.Label())
			return nil
		},
	},
	Personality:     enumField(func(d *Draft) *string { return &d.Personality }, personalityOptions),
	Language:        stringField(func(d *Draft) *string { return &d.Language }),
	GreetingMessage: stringField(func(d *Draft) *string { return &d.GreetingMessage }),
	GoodbyeMessage:  stringField(func(d *Draft) *string { return &d.GoodbyeMessage }),

	Departments: {
		get: func(d *Draft) any { return slices.Clone(d.Departments) },
		set: setDepartments,
	},
	CallMenuField: {
		get:    func(d *Draft) any { return d.CallMenu.clone() },
		set:    setCallMenu,
		nested: setCallMenuSubfield,
	},

	PhoneNumber: stringField(func(d *Draft) *string { return &d.PhoneNumber }),
	AreaCode:    stringField(func(d *Draft) *string { return &d.AreaCode }),

	TermsAccepted: boolField(func(d *Draft) *bool { return &d.TermsAccepted }),
}

// --- scalar helpers ---

func toString(v any) (string, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("%w: want text, got %T", apperr.ErrInvalidValue, v)
	}
	return s, nil
}

func toBool(v any) (bool, error) {
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("%w: want true/false, got %v", apperr.ErrInvalidValue, v)
	}
	return b, nil
}

func stringField(ptr func(d *Draft) *string) fieldSpec {
	return fieldSpec{
		get: func(d *Draft) any { return *ptr(d) },
		set: func(d *Draft, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			*ptr(d) = s
			return nil
		},
	}
}

func enumField(ptr func(d *Draft) *string, options []string) fieldSpec {
	return fieldSpec{
		get: func(d *Draft) any { return *ptr(d) },
		set: func(d *Draft, v any) error {
			s, err := toString(v)
			if err != nil {
				return err
			}
			s = strings.ToLower(strings.TrimSpace(s))
			if !slices.Contains(options, s) {
				return fmt.Errorf("%w: %q must be one of: %s", apperr.ErrInvalidValue, s, strings.Join(options, ", "))
			}
			*ptr(d) = s
			return nil
		},
	}
}

func boolField(ptr func(d *Draft) *bool) fieldSpec {
	return fieldSpec{
		get: func(d *Draft) any { return *ptr(d) },
		set: func(d *Draft, v any) error {
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*ptr(d) = b
			return nil
		},
	}
}

// toStringList accepts a list or a comma-separated string. Blank entries
// are dropped.
func toStringList(v any) ([]string, error) {
	var raw []string
	switch val := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		raw = strings.Split(val, ",")
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("%w: want a list, got %T", apperr.ErrInvalidValue, v)
		}
		raw = list
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// toObject coerces v into a string-keyed map and rejects keys outside
// allowed.
func toObject(v any, allowed []string) (map[string]any, error) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: want an object, got %T", apperr.ErrInvalidValue, v)
	}
	for k := range m {
		if !slices.Contains(allowed, k) {
			return nil, fmt.Errorf("subfield %q: %w", k, apperr.ErrUnknownField)
		}
	}
	return m, nil
}

// toObjectList coerces v into a list of objects.
func toObjectList(v any, allowed []string) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("%w: want a list, got %T", apperr.ErrInvalidValue, v)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, err := toObject(item, allowed)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- contact info ---

func contactPtr(c *ContactInfo, sub string) (*string, bool) {
	switch sub {
	case "address":
		return &c.Address, true
	case "city":
		return &c.City, true
	case "state":
		return &c.State, true
	case "zip":
		return &c.Zip, true
	case "country":
		return &c.Country, true
	}
	return nil, false
}

func setContactInfo(d *Draft, v any) error {
	if c, ok := v.(ContactInfo); ok {
		d.ContactInfo = c
		return nil
	}
	m, err := toObject(v, subfieldNames[ContactInfoField])
	if err != nil {
		return err
	}
	var next ContactInfo
	for k, raw := range m {
		s, err := toString(raw)
		if err != nil {
			return err
		}
		p, _ := contactPtr(&next, k)
		*p = s
	}
	d.ContactInfo = next
	return nil
}

func setContactSubfield(d *Draft, sub string, v any) error {
	p, ok := contactPtr(&d.ContactInfo, sub)
	if !ok {
		return apperr.ErrUnknownField
	}
	s, err := toString(v)
	if err != nil {
		return err
	}
	*p = s
	return nil
}

// --- business hours ---

// setBusinessHours replaces the whole week, like setContactInfo replaces
// the whole address. Days missing from v are left empty and fail step
// validation until they are set.
func setBusinessHours(d *Draft, v any) error {
	if h, ok := v.(BusinessHours); ok {
		d.BusinessHours = h
		return nil
	}
	m, err := toObject(v, hours.Days)
	if err != nil {
		return err
	}
	var next BusinessHours
	for k, raw := range m {
		s, err := toString(raw)
		if err != nil {
			return err
		}
		p, _ := next.day(k)
		*p = s
	}
	d.BusinessHours = next
	return nil
}

func setDay(d *Draft, sub string, v any) error {
	p, ok := d.BusinessHours.day(sub)
	if !ok {
		return apperr.ErrUnknownField
	}
	s, err := toString(v)
	if err != nil {
		return err
	}
	*p = s
	return nil
}

// --- lists of records ---

var departmentKeys = []string{"name", "extension", "voice"}

func setDepartments(d *Draft, v any) error {
	if list, ok := v.([]Department); ok {
		d.Departments = slices.Clone(list)
		if d.Departments == nil {
			d.Departments = []Department{}
		}
		return nil
	}
	items, err := toObjectList(v, departmentKeys)
	if err != nil {
		return err
	}
	out := make([]Department, 0, len(items))
	for _, m := range items {
		sel, err := voice.FromAny(m["voice"])
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidValue, err)
		}
		name, err := toString(m["name"])
		if err != nil {
			return err
		}
		ext, err := toString(m["extension"])
		if err != nil {
			return err
		}
		out = append(out, Department{Name: name, Extension: ext, Voice: VoiceLabel(sel.Label())})
	}
	d.Departments = out
	return nil
}

var bookingKeys = []string{"name", "duration", "price"}

func setBookingServices(d *Draft, v any) error {
	if list, ok := v.([]BookingService); ok {
		d.BookingServices = slices.Clone(list)
		if d.BookingServices == nil {
			d.BookingServices = []BookingService{}
		}
		return nil
	}
	items, err := toObjectList(v, bookingKeys)
	if err != nil {
		return err
	}
	out := make([]BookingService, 0, len(items))
	for _, m := range items {
		var b BookingService
		for _, pair := range []struct {
			key string
			dst *string
		}{{"name", &b.Name}, {"duration", &b.Duration}, {"price", &b.Price}} {
			s, err := toString(m[pair.key])
			if err != nil {
				return err
			}
			*pair.dst = s
		}
		out = append(out, b)
	}
	d.BookingServices = out
	return nil
}

// --- call menu ---

func setCallMenu(d *Draft, v any) error {
	if cm, ok := v.(CallMenu); ok {
		d.CallMenu = cm.clone()
		return nil
	}
	m, err := toObject(v, []string{"enabled", "welcomeMessage", "nodes"})
	if err != nil {
		return err
	}
	next := CallMenu{Nodes: menu.NewTree()}
	if raw, ok := m["enabled"]; ok {
		if next.Enabled, err = toBool(raw); err != nil {
			return err
		}
	}
	if raw, ok := m["welcomeMessage"]; ok {
		if next.WelcomeMessage, err = toString(raw); err != nil {
			return err
		}
	}
	if raw, ok := m["nodes"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("%w: nodes: %v", apperr.ErrInvalidValue, err)
		}
		if err := next.Nodes.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidValue, err)
		}
	}
	d.CallMenu = next
	return nil
}

func setCallMenuSubfield(d *Draft, sub string, v any) error {
	switch sub {
	case "enabled":
		b, err := toBool(v)
		if err != nil {
			return err
		}
		d.CallMenu.Enabled = b
	case "welcomeMessage":
		s, err := toString(v)
		if err != nil {
			return err
		}
		d.CallMenu.WelcomeMessage = s
	default:
		return apperr.ErrUnknownField
	}
	return nil
}
