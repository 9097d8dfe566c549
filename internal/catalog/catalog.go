// Package catalog provides the read-only option lists the wizard offers:
// agent voices and purchasable phone numbers. The engine treats them as
// opaque choices; a YAML file can replace the built-in lists.
package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/HendryAvila/Receptionist/internal/voice"
	"gopkg.in/yaml.v3"
)

// Voice is one selectable agent voice.
type Voice struct {
	Name   string `yaml:"name" json:"name"`
	Accent string `yaml:"accent,omitempty" json:"accent,omitempty"`
	Tone   string `yaml:"tone,omitempty" json:"tone,omitempty"`
}

// Label renders the voice the way the Field Store stores it.
func (v Voice) Label() string {
	return voice.Qualified(v.Name, v.Accent, v.Tone).Label()
}

// PhoneNumber is one number available for purchase.
type PhoneNumber struct {
	Number   string `yaml:"number" json:"number"`
	AreaCode string `yaml:"area_code,omitempty" json:"areaCode,omitempty"`
	Locality string `yaml:"locality,omitempty" json:"locality,omitempty"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
}

// Provider serves the option lists.
type Provider interface {
	Voices(ctx context.Context) ([]Voice, error)
	// PhoneNumbers filters by three-digit area code; empty means all.
	PhoneNumbers(ctx context.Context, areaCode string) ([]PhoneNumber, error)
}

// Catalog is an in-memory Provider.
type Catalog struct {
	VoiceList []Voice       `yaml:"voices"`
	Numbers   []PhoneNumber `yaml:"phone_numbers"`
}

var _ Provider = (*Catalog)(nil)

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		VoiceList: []Voice{
			{Name: "Sarah", Accent: "American", Tone: "Professional"},
			{Name: "James", Accent: "American", Tone: "Friendly"},
			{Name: "Emma", Accent: "British", Tone: "Warm"},
			{Name: "Oliver", Accent: "British", Tone: "Professional"},
			{Name: "Mia", Accent: "Australian", Tone: "Casual"},
			{Name: "Lucas", Accent: "Canadian", Tone: "Calm"},
		},
		Numbers: []PhoneNumber{
			{Number: "+15125550100", Locality: "Austin", Region: "TX"},
			{Number: "+15125550142", Locality: "Austin", Region: "TX"},
			{Number: "+12125550123", Locality: "New York", Region: "NY"},
			{Number: "+14155550199", Locality: "San Francisco", Region: "CA"},
			{Number: "+13125550175", Locality: "Chicago", Region: "IL"},
		},
	}
	for i := range c.Numbers {
		c.Numbers[i].AreaCode = areaCodeOf(c.Numbers[i].Number)
	}
	return c
}

// Load reads a catalog file. An empty path returns Default. A file that
// omits a section keeps the built-in list for it.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	def := Default()
	if c.VoiceList == nil {
		c.VoiceList = def.VoiceList
	}
	if c.Numbers == nil {
		c.Numbers = def.Numbers
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for i, v := range c.VoiceList {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return fmt.Errorf("voice %d: name is required", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("voice %q listed twice", name)
		}
		seen[key] = true
	}
	for i := range c.Numbers {
		n := &c.Numbers[i]
		n.Number = strings.TrimSpace(n.Number)
		if n.Number == "" {
			return fmt.Errorf("phone number %d: number is required", i)
		}
		if n.AreaCode == "" {
			n.AreaCode = areaCodeOf(n.Number)
		}
	}
	return nil
}

// areaCodeOf extracts the area code of a North American number in E.164
// form, or "" for anything else.
func areaCodeOf(number string) string {
	digits := strings.TrimPrefix(number, "+")
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:4]
	}
	return ""
}

// Voices implements Provider.
func (c *Catalog) Voices(ctx context.Context) ([]Voice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(c.VoiceList), nil
}

// PhoneNumbers implements Provider.
func (c *Catalog) PhoneNumbers(ctx context.Context, areaCode string) ([]PhoneNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	areaCode = strings.TrimSpace(areaCode)
	if areaCode == "" {
		return slices.Clone(c.Numbers), nil
	}
	var out []PhoneNumber
	for _, n := range c.Numbers {
		if n.AreaCode == areaCode {
			out = append(out, n)
		}
	}
	return out, nil
}
