package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/HendryAvila/Receptionist/internal/fields"
	"github.com/HendryAvila/Receptionist/internal/hours"
	"github.com/HendryAvila/Receptionist/internal/menu"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func sampleDraft(t *testing.T) *fields.Draft {
	t.Helper()
	d := fields.NewDraft()
	d.BusinessName = "Acme Dental"
	d.AgentVoice = "Sarah (American, Professional)"
	d.Services = []string{"Cleaning", "Whitening"}
	d.Departments = []fields.Department{
		{Name: "Front Desk", Extension: "100", Voice: "Tom (British, Warm)"},
		{},
	}
	d.CallMenu.Enabled = true
	d.CallMenu.WelcomeMessage = "Welcome"
	tree := d.CallMenu.Nodes
	id, err := tree.AddNode(menu.Root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.UpdateField(id, menu.FieldTarget, "Front Desk"); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSynthesize_Idempotent(t *testing.T) {
	d := sampleDraft(t)
	runtime := &Knowledge{BusinessName: "Old Name", Services: []string{"x-ray"}}

	first := mustJSON(t, Synthesize(d, runtime))
	second := mustJSON(t, Synthesize(d, runtime))
	if !bytes.Equal(first, second) {
		t.Fatalf("outputs differ:\n%s\n%s", first, second)
	}
}

// Feeding the output back in as the runtime record is a fixpoint: no
// double substitution, no re-normalization drift.
func TestSynthesize_OutputIsFixpoint(t *testing.T) {
	out := Synthesize(sampleDraft(t), nil)
	again := Synthesize(nil, &out)
	if a, b := mustJSON(t, out), mustJSON(t, again); !bytes.Equal(a, b) {
		t.Fatalf("not a fixpoint:\n%s\n%s", a, b)
	}
}

func TestSynthesize_GreetingSubstitutedOnce(t *testing.T) {
	d := sampleDraft(t)
	d.GreetingMessage = "Hi from {businessName}, also {businessName}"

	k := Synthesize(d, nil)
	want := "Hi from Acme Dental, also {businessName}"
	if k.GreetingMessage != want {
		t.Errorf("GreetingMessage = %q, want %q", k.GreetingMessage, want)
	}
	if k.GoodbyeMessage != "Thank you for calling Acme Dental. Have a great day!" {
		t.Errorf("GoodbyeMessage = %q", k.GoodbyeMessage)
	}
}

func TestSynthesize_ScalarPrecedence(t *testing.T) {
	d := &fields.Draft{Industry: "Dental"}
	r := &Knowledge{BusinessName: "Runtime Co", Industry: "Retail", Timezone: "Europe/Madrid"}

	k := Synthesize(d, r)
	if k.Industry != "Dental" {
		t.Errorf("draft should win: Industry = %q", k.Industry)
	}
	if k.BusinessName != "Runtime Co" {
		t.Errorf("runtime should fill: BusinessName = %q", k.BusinessName)
	}
	if k.Timezone != "Europe/Madrid" {
		t.Errorf("Timezone = %q", k.Timezone)
	}
	if k.AgentName != DefaultAgentName || k.Language != fields.DefaultLanguage {
		t.Errorf("defaults not applied: %q %q", k.AgentName, k.Language)
	}
}

func TestSynthesize_NilInputs(t *testing.T) {
	k := Synthesize(nil, nil)
	if k.GreetingMessage != "Thank you for calling our office. How can I help you today?" {
		t.Errorf("GreetingMessage = %q", k.GreetingMessage)
	}
	if k.Hours.Open != hours.DefaultOpen || k.Hours.Close != hours.DefaultClose {
		t.Errorf("Hours = %+v", k.Hours)
	}
	if k.Services == nil || k.Departments == nil || k.BookingServices == nil {
		t.Error("lists must be empty, not null")
	}
	if k.CallMenu.Options == nil {
		t.Error("menu options must not be nil")
	}
}

func TestSynthesize_HoursAggregation(t *testing.T) {
	d := &fields.Draft{BusinessHours: fields.BusinessHours{
		Monday:    "9:00 AM - 5:00 PM",
		Tuesday:   hours.Closed,
		Wednesday: hours.Closed,
		Thursday:  hours.Closed,
		Friday:    hours.Closed,
		Saturday:  hours.Closed,
		Sunday:    hours.Closed,
	}}
	k := Synthesize(d, nil)
	if k.Hours.Open != "9:00 AM" || k.Hours.Close != "5:00 PM" {
		t.Errorf("Hours = %+v", k.Hours)
	}

	// Per-day precedence: blank draft days fall back to runtime.
	d = &fields.Draft{BusinessHours: fields.BusinessHours{
		Monday: hours.Closed, Tuesday: hours.Closed, Wednesday: hours.Closed,
		Thursday: hours.Closed, Friday: hours.Closed, Sunday: hours.Closed,
	}}
	r := &Knowledge{BusinessHours: fields.BusinessHours{Saturday: "7:00 AM - 11:30 AM"}}
	k = Synthesize(d, r)
	if k.BusinessHours.Saturday != "7:00 AM - 11:30 AM" {
		t.Errorf("Saturday = %q", k.BusinessHours.Saturday)
	}
	if k.Hours.Open != "7:00 AM" || k.Hours.Close != "11:30 AM" {
		t.Errorf("Hours = %+v", k.Hours)
	}
}

func TestSynthesize_AllClosedFallsBack(t *testing.T) {
	closed := fields.BusinessHours{
		Monday: hours.Closed, Tuesday: hours.Closed, Wednesday: hours.Closed,
		Thursday: hours.Closed, Friday: hours.Closed, Saturday: hours.Closed, Sunday: hours.Closed,
	}
	k := Synthesize(&fields.Draft{BusinessHours: closed}, nil)
	if !k.Hours.Default || k.Hours.Open != hours.DefaultOpen || k.Hours.Close != hours.DefaultClose {
		t.Errorf("Hours = %+v, want default window", k.Hours)
	}
}

func TestSynthesize_VoiceNormalization(t *testing.T) {
	k := Synthesize(sampleDraft(t), nil)
	if k.AgentVoice != "Sarah" {
		t.Errorf("AgentVoice = %q, want Sarah", k.AgentVoice)
	}
	if len(k.Departments) != 1 {
		t.Fatalf("placeholder should be dropped, got %+v", k.Departments)
	}
	if k.Departments[0].Voice != "Tom" {
		t.Errorf("department voice = %q, want Tom", k.Departments[0].Voice)
	}

	bare := Synthesize(&fields.Draft{AgentVoice: "Sarah"}, nil)
	if bare.AgentVoice != "Sarah" {
		t.Errorf("bare AgentVoice = %q", bare.AgentVoice)
	}
}

func TestSynthesize_DepartmentMenuKey(t *testing.T) {
	k := Synthesize(sampleDraft(t), nil)
	if k.Departments[0].MenuKey != "1" {
		t.Errorf("MenuKey = %q, want 1", k.Departments[0].MenuKey)
	}
}

func TestSynthesize_ListsWholesale(t *testing.T) {
	r := &Knowledge{
		Departments:     []Department{{Name: "Billing", Extension: "200", Voice: "Ana"}},
		BookingServices: []fields.BookingService{{Name: "Consult", Duration: "15"}},
	}

	// Only a placeholder in the draft: runtime list is used.
	k := Synthesize(fields.NewDraft(), r)
	if len(k.Departments) != 1 || k.Departments[0].Name != "Billing" {
		t.Errorf("Departments = %+v", k.Departments)
	}
	if len(k.BookingServices) != 1 || k.BookingServices[0].Name != "Consult" {
		t.Errorf("BookingServices = %+v", k.BookingServices)
	}

	// A named draft department replaces the runtime list entirely.
	d := fields.NewDraft()
	d.Departments = []fields.Department{{Name: "Sales", Extension: "1", Voice: "Tom"}}
	d.BookingServices = []fields.BookingService{{Name: "Tour", Duration: "30"}}
	k = Synthesize(d, r)
	if len(k.Departments) != 1 || k.Departments[0].Name != "Sales" {
		t.Errorf("Departments = %+v", k.Departments)
	}
	if len(k.BookingServices) != 1 || k.BookingServices[0].Name != "Tour" {
		t.Errorf("BookingServices = %+v", k.BookingServices)
	}
}

func TestSynthesize_ServicesUnion(t *testing.T) {
	d := &fields.Draft{Services: []string{"Cleaning", "Whitening"}}
	r := &Knowledge{Services: []string{"cleaning", "X-Ray", " "}}

	k := Synthesize(d, r)
	want := []string{"Cleaning", "Whitening", "X-Ray"}
	if len(k.Services) != len(want) {
		t.Fatalf("Services = %v, want %v", k.Services, want)
	}
	for i := range want {
		if k.Services[i] != want[i] {
			t.Errorf("Services[%d] = %q, want %q", i, k.Services[i], want[i])
		}
	}
}

func TestSynthesize_DoesNotMutateInputs(t *testing.T) {
	d := sampleDraft(t)
	before := mustJSON(t, d)
	k := Synthesize(d, nil)
	if _, err := k.CallMenu.Options.AddNode(menu.Root); err != nil {
		t.Fatal(err)
	}
	if after := mustJSON(t, d); !bytes.Equal(before, after) {
		t.Error("draft was mutated")
	}
}

// --- Sync ---

type memDrafts struct {
	doc []byte
	err error
}

func (m memDrafts) LoadDraft(context.Context, string) ([]byte, bool, error) {
	return m.doc, m.doc != nil, m.err
}

type memKnowledge struct {
	rec   *Knowledge
	saved *Knowledge
}

func (m *memKnowledge) LoadKnowledge(context.Context, string) (*Knowledge, bool, error) {
	return m.rec, m.rec != nil, nil
}

func (m *memKnowledge) SaveKnowledge(_ context.Context, _ string, k Knowledge) error {
	m.saved = &k
	return nil
}

func TestSync_SavesSynthesis(t *testing.T) {
	drafts := memDrafts{doc: []byte(`{"businessName": "Acme", "agentVoice": {"name": "Sarah", "tone": "Calm"}}`)}
	store := &memKnowledge{rec: &Knowledge{Industry: "Retail"}}

	k, err := Sync(context.Background(), drafts, store, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if store.saved == nil {
		t.Fatal("nothing saved")
	}
	if k.BusinessName != "Acme" || k.Industry != "Retail" || k.AgentVoice != "Sarah" {
		t.Errorf("k = %+v", k)
	}
}

func TestSync_LoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Sync(context.Background(), memDrafts{err: boom}, &memKnowledge{}, "u1")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
