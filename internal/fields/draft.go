// Package fields implements the Field Store: the flat, closed-schema
// draft holding every wizard answer.
//
// The schema is fixed. Every field has a default, absent fields decode to
// that default, and no field ever holds null. Unknown field names are a
// programmer error (apperr.ErrUnknownField).
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/HendryAvila/Receptionist/internal/hours"
	"github.com/HendryAvila/Receptionist/internal/menu"
	"github.com/HendryAvila/Receptionist/internal/voice"
)

// Field is the name of one Field Store entry. Names match the keys of the
// persisted draft document.
type Field string

const (
	// Step 1: business info.
	BusinessName        Field = "businessName"
	Industry            Field = "industry"
	PrimaryEmail        Field = "primaryEmail"
	BusinessPhone       Field = "businessPhone"
	Website             Field = "website"
	BusinessDescription Field = "businessDescription"
	ContactInfoField    Field = "contactInfo"

	// Step 2: hours.
	BusinessHoursField Field = "businessHours"
	Timezone           Field = "timezone"
	AfterHoursBehavior Field = "afterHoursBehavior"
	ForwardingNumber   Field = "forwardingNumber"

	// Step 3: services.
	Services        Field = "services"
	BookingEnabled  Field = "bookingEnabled"
	BookingServices Field = "bookingServices"

	// Step 4: agent.
	AgentName       Field = "agentName"
	AgentVoice      Field = "agentVoice"
	Personality     Field = "personality"
	Language        Field = "language"
	GreetingMessage Field = "greetingMessage"
	GoodbyeMessage  Field = "goodbyeMessage"

	// Step 5: routing.
	Departments   Field = "departments"
	CallMenuField Field = "callMenu"

	// Step 6: phone number.
	PhoneNumber Field = "phoneNumber"
	AreaCode    Field = "areaCode"

	// Step 7: review.
	TermsAccepted Field = "termsAccepted"
)

// BusinessNameToken is the placeholder greeting and goodbye templates use
// for the business name.
const BusinessNameToken = "{businessName}"

// Default templates and settings for a fresh draft.
const (
	DefaultGreeting    = "Thank you for calling " + BusinessNameToken + ". How can I help you today?"
	DefaultGoodbye     = "Thank you for calling " + BusinessNameToken + ". Have a great day!"
	DefaultTimezone    = "America/New_York"
	DefaultLanguage    = "en-US"
	DefaultPersonality = "professional"
	DefaultAfterHours  = "voicemail"
)

// After-hours behaviours.
var afterHoursOptions = []string{"voicemail", "message", "forward"}

// Agent personalities.
var personalityOptions = []string{"professional", "friendly", "casual"}

// VoiceLabel is a voice selector stored in its label form. It decodes
// both the label string and the legacy {name, accent, tone} object.
type VoiceLabel string

// UnmarshalJSON accepts a label string or a selector object.
func (v *VoiceLabel) UnmarshalJSON(data []byte) error {
	var sel voice.Selector
	if err := json.Unmarshal(data, &sel); err != nil {
		return fmt.Errorf("voice: %w", err)
	}
	*v = VoiceLabel(sel.Label())
	return nil
}

// ContactInfo is the postal contact block.
type ContactInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// BusinessHours holds one "Closed" or "open - close" value per weekday.
type BusinessHours struct {
	Monday    string `json:"monday"`
	Tuesday   string `json:"tuesday"`
	Wednesday string `json:"wednesday"`
	Thursday  string `json:"thursday"`
	Friday    string `json:"friday"`
	Saturday  string `json:"saturday"`
	Sunday    string `json:"sunday"`
}

// Days returns the seven values in calendar order, matching hours.Days.
func (h BusinessHours) Days() []string {
	return []string{h.Monday, h.Tuesday, h.Wednesday, h.Thursday, h.Friday, h.Saturday, h.Sunday}
}

// day returns a pointer to the named weekday value.
func (h *BusinessHours) day(name string) (*string, bool) {
	switch name {
	case "monday":
		return &h.Monday, true
	case "tuesday":
		return &h.Tuesday, true
	case "wednesday":
		return &h.Wednesday, true
	case "thursday":
		return &h.Thursday, true
	case "friday":
		return &h.Friday, true
	case "saturday":
		return &h.Saturday, true
	case "sunday":
		return &h.Sunday, true
	}
	return nil, false
}

// Department is a transfer destination. Menu nodes reference it by name.
type Department struct {
	Name      string     `json:"name"`
	Extension string     `json:"extension"`
	Voice     VoiceLabel `json:"voice"`
}

// BookingService is one bookable appointment type.
type BookingService struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Price    string `json:"price"`
}

// CallMenu is the routing-menu field: an enable flag, the welcome prompt
// and the node tree.
type CallMenu struct {
	Enabled        bool       `json:"enabled"`
	WelcomeMessage string     `json:"welcomeMessage"`
	Nodes          *menu.Tree `json:"nodes"`
}

func (m CallMenu) clone() CallMenu {
	c := m
	if m.Nodes != nil {
		c.Nodes = m.Nodes.Clone()
	} else {
		c.Nodes = menu.NewTree()
	}
	return c
}

// Draft is the complete set of wizard answers.
type Draft struct {
	BusinessName        string      `json:"businessName"`
	Industry            string      `json:"industry"`
	PrimaryEmail        string      `json:"primaryEmail"`
	BusinessPhone       string      `json:"businessPhone"`
	Website             string      `json:"website"`
	BusinessDescription string      `json:"businessDescription"`
	ContactInfo         ContactInfo `json:"contactInfo"`

	BusinessHours      BusinessHours `json:"businessHours"`
	Timezone           string        `json:"timezone"`
	AfterHoursBehavior string        `json:"afterHoursBehavior"`
	ForwardingNumber   string        `json:"forwardingNumber"`

	Services        []string         `json:"services"`
	BookingEnabled  bool             `json:"bookingEnabled"`
	BookingServices []BookingService `json:"bookingServices"`

	AgentName       string     `json:"agentName"`
	AgentVoice      VoiceLabel `json:"agentVoice"`
	Personality     string     `json:"personality"`
	Language        string     `json:"language"`
	GreetingMessage string     `json:"greetingMessage"`
	GoodbyeMessage  string     `json:"goodbyeMessage"`

	Departments []Department `json:"departments"`
	CallMenu    CallMenu     `json:"callMenu"`

	PhoneNumber string `json:"phoneNumber"`
	AreaCode    string `json:"areaCode"`

	TermsAccepted bool `json:"termsAccepted"`
}

// DefaultHours is the weekday schedule a fresh draft starts with.
func DefaultHours() BusinessHours {
	weekday := hours.Format(hours.DefaultOpen, hours.DefaultClose)
	return BusinessHours{
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekday,
		Saturday:  hours.Closed,
		Sunday:    hours.Closed,
	}
}

// NewDraft returns a draft holding every default. The department list
// starts with exactly one blank placeholder record.
func NewDraft() *Draft {
	return &Draft{
		BusinessHours:      DefaultHours(),
		Timezone:           DefaultTimezone,
		AfterHoursBehavior: DefaultAfterHours,
		Services:           []string{},
		BookingServices:    []BookingService{},
		Personality:        DefaultPersonality,
		Language:           DefaultLanguage,
		GreetingMessage:    DefaultGreeting,
		GoodbyeMessage:     DefaultGoodbye,
		Departments:        []Department{{}},
		CallMenu:           CallMenu{Nodes: menu.NewTree()},
	}
}

// DecodeDraft reads a persisted draft document over the defaults. Keys
// outside the schema (completion markers, unrelated data) are ignored.
func DecodeDraft(data []byte) (*Draft, error) {
	d := NewDraft()
	if len(bytes.TrimSpace(data)) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("fields: decode draft: %w", err)
	}
	d.normalize()
	return d, nil
}

// normalize replaces nulls that slipped through decoding with empty values.
func (d *Draft) normalize() {
	if d.Services == nil {
		d.Services = []string{}
	}
	if d.BookingServices == nil {
		d.BookingServices = []BookingService{}
	}
	if d.Departments == nil {
		d.Departments = []Department{}
	}
	if d.CallMenu.Nodes == nil {
		d.CallMenu.Nodes = menu.NewTree()
	}
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Services = slices.Clone(d.Services)
	c.BookingServices = slices.Clone(d.BookingServices)
	c.Departments = slices.Clone(d.Departments)
	c.CallMenu = d.CallMenu.clone()
	c.normalize()
	return &c
}

// DepartmentNames returns the non-blank department names in order.
func (d *Draft) DepartmentNames() []string {
	var names []string
	for _, dep := range d.Departments {
		if dep.Name != "" {
			names = append(names, dep.Name)
		}
	}
	return names
}
