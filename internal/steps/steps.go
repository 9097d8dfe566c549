// Package steps holds the per-step validators of the onboarding wizard.
//
// Each validator is a pure function of the draft: it reads only the fields
// its step owns and returns field-path → message. An empty result means
// the step is valid.
package steps

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/hours"
	"github.com/HendryAvila/Receptionist/internal/menu"
)

// Count is the number of wizard steps.
const Count = 7

// Step numbers.
const (
	BusinessInfo = iota + 1
	Hours
	Services
	Agent
	Routing
	Phone
	Review
)

// Errors maps a field path (e.g. "departments[0].name") to a message.
type Errors map[string]string

// Empty reports whether there are no errors.
func (e Errors) Empty() bool { return len(e) == 0 }

var titles = [Count + 1]string{
	"",
	"Business information",
	"Business hours",
	"Services",
	"Agent",
	"Call routing",
	"Phone number",
	"Review",
}

// Title returns the display name of step n, or "" when out of range.
func Title(n int) string {
	if n < 1 || n > Count {
		return ""
	}
	return titles[n]
}

// stepFields lists the top-level fields each step validates.
var stepFields = [Count + 1][]fields.Field{
	{},
	{fields.BusinessName, fields.Industry, fields.PrimaryEmail, fields.BusinessPhone, fields.Website, fields.BusinessDescription, fields.ContactInfoField},
	{fields.BusinessHoursField, fields.Timezone, fields.AfterHoursBehavior, fields.ForwardingNumber},
	{fields.Services, fields.BookingEnabled, fields.BookingServices},
	{fields.AgentName, fields.AgentVoice, fields.Personality, fields.Language, fields.GreetingMessage, fields.GoodbyeMessage},
	{fields.Departments, fields.CallMenuField},
	{fields.PhoneNumber, fields.AreaCode},
	{fields.TermsAccepted},
}

// Fields returns the fields owned by step n.
func Fields(n int) []fields.Field {
	if n < 1 || n > Count {
		return nil
	}
	return append([]fields.Field(nil), stepFields[n]...)
}

// StepOf returns the step that owns f, or 0.
func StepOf(f fields.Field) int {
	for n := 1; n <= Count; n++ {
		for _, owned := range stepFields[n] {
			if owned == f {
				return n
			}
		}
	}
	return 0
}

var (
	emailPattern    = regexp.MustCompile(`\S+@\S+\.\S+`)
	areaCodePattern = regexp.MustCompile(`^[0-9]{3}$`)
)

var validators = [Count + 1]func(d *fields.Draft, errs Errors){
	nil,
	validateBusinessInfo,
	validateHours,
	validateServices,
	validateAgent,
	validateRouting,
	validatePhone,
	validateReview,
}

// Validate runs the validator for step n. Steps outside 1..7 have nothing
// to validate.
func Validate(n int, d *fields.Draft) Errors {
	errs := Errors{}
	if n < 1 || n > Count || d == nil {
		return errs
	}
	validators[n](d, errs)
	return errs
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func require(errs Errors, path, value, message string) {
	if blank(value) {
		errs[path] = message
	}
}

func validateBusinessInfo(d *fields.Draft, errs Errors) {
	require(errs, string(fields.BusinessName), d.BusinessName, "Business name is required")
	require(errs, string(fields.Industry), d.Industry, "Industry is required")
	if !emailPattern.MatchString(d.PrimaryEmail) {
		errs[string(fields.PrimaryEmail)] = "A valid email address is required"
	}
}

func validateHours(d *fields.Draft, errs Errors) {
	days := d.BusinessHours.Days()
	for i, name := range hours.Days {
		if err := hours.ValidateDay(days[i]); err != nil {
			errs[string(fields.BusinessHoursField)+"."+name] = fmt.Sprintf("Invalid hours for %s", name)
		}
	}
	require(errs, string(fields.Timezone), d.Timezone, "Timezone is required")
	if d.AfterHoursBehavior == "forward" {
		require(errs, string(fields.ForwardingNumber), d.ForwardingNumber, "A forwarding number is required when forwarding calls")
	}
}

func validateServices(d *fields.Draft, errs Errors) {
	hasService := false
	for _, s := range d.Services {
		if !blank(s) {
			hasService = true
			break
		}
	}
	if !hasService {
		errs[string(fields.Services)] = "Add at least one service"
	}

	if !d.BookingEnabled {
		return
	}
	if len(d.BookingServices) == 0 {
		errs[string(fields.BookingServices)] = "Add at least one bookable service"
		return
	}
	for i, b := range d.BookingServices {
		prefix := fmt.Sprintf("%s[%d]", fields.BookingServices, i)
		require(errs, prefix+".name", b.Name, "Service name is required")
		require(errs, prefix+".duration", b.Duration, "Duration is required")
	}
}

func validateAgent(d *fields.Draft, errs Errors) {
	require(errs, string(fields.AgentName), d.AgentName, "Agent name is required")
	require(errs, string(fields.AgentVoice), string(d.AgentVoice), "Select a voice")
	require(errs, string(fields.GreetingMessage), d.GreetingMessage, "Greeting message is required")
}

func validateRouting(d *fields.Draft, errs Errors) {
	for i, dep := range d.Departments {
		prefix := fmt.Sprintf("%s[%d]", fields.Departments, i)
		require(errs, prefix+".name", dep.Name, "Department name is required")
		require(errs, prefix+".extension", dep.Extension, "Extension is required")
		require(errs, prefix+".voice", string(dep.Voice), "Select a voice")
	}

	cm := d.CallMenu
	if !cm.Enabled {
		return
	}
	require(errs, string(fields.CallMenuField)+".welcomeMessage", cm.WelcomeMessage, "Welcome message is required")
	if cm.Nodes == nil {
		return
	}
	cm.Nodes.Walk(func(n menu.Node, _ int) bool {
		prefix := NodePath(n.ID)
		require(errs, prefix+".key", n.Key, "Key is required")
		require(errs, prefix+".label", n.Label, "Label is required")
		if n.Action == menu.ActionTransfer {
			require(errs, prefix+".target", n.Target, "Select a department to transfer to")
		}
		return true
	})
}

// NodePath is the error-path prefix for a menu node.
func NodePath(id string) string {
	return string(fields.CallMenuField) + ".nodes." + id
}

func validatePhone(d *fields.Draft, errs Errors) {
	require(errs, string(fields.PhoneNumber), d.PhoneNumber, "Select a phone number")
	if d.AreaCode != "" && !areaCodePattern.MatchString(d.AreaCode) {
		errs[string(fields.AreaCode)] = "Area code must be three digits"
	}
}

func validateReview(d *fields.Draft, errs Errors) {
	if !d.TermsAccepted {
		errs[string(fields.TermsAccepted)] = "You must accept the terms to continue"
	}
}
