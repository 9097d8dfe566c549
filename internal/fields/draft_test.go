package fields

import (
	"encoding/json"
	"testing"
)

func TestDecodeDraft_EmptyGivesDefaults(t *testing.T) {
	for _, in := range []string{"", "  ", "{}"} {
		d, err := DecodeDraft([]byte(in))
		if err != nil {
			t.Fatalf("DecodeDraft(%q): %v", in, err)
		}
		if d.Timezone != DefaultTimezone || len(d.Departments) != 1 {
			t.Errorf("DecodeDraft(%q) did not yield defaults: %+v", in, d)
		}
	}
}

func TestDecodeDraft_NullsBecomeEmpty(t *testing.T) {
	d, err := DecodeDraft([]byte(`{"services": null, "departments": null, "callMenu": {"enabled": true, "nodes": null}}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.Services == nil || d.Departments == nil {
		t.Error("null lists should decode to empty lists")
	}
	if d.CallMenu.Nodes == nil {
		t.Fatal("null nodes should decode to an empty tree")
	}
	if !d.CallMenu.Enabled {
		t.Error("sibling subfield lost")
	}
}

func TestDecodeDraft_LegacyVoiceShapes(t *testing.T) {
	d, err := DecodeDraft([]byte(`{
		"agentVoice": {"name": "Sarah", "accent": "American", "tone": "Professional"},
		"departments": [
			{"name": "Sales", "extension": "1", "voice": {"name": "Tom"}},
			{"name": "Billing", "extension": "2", "voice": "Ana (Spanish, Warm)"}
		],
		"completed": true,
		"completedAt": "2026-01-01T00:00:00Z"
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if d.AgentVoice != "Sarah (American, Professional)" {
		t.Errorf("AgentVoice = %q", d.AgentVoice)
	}
	if d.Departments[0].Voice != "Tom" {
		t.Errorf("Departments[0].Voice = %q", d.Departments[0].Voice)
	}
	if d.Departments[1].Voice != "Ana (Spanish, Warm)" {
		t.Errorf("Departments[1].Voice = %q", d.Departments[1].Voice)
	}
}

func TestDraft_JSONRoundTripKeepsMenu(t *testing.T) {
	d := NewDraft()
	d.BusinessName = "Acme"
	d.CallMenu.Enabled = true
	id, err := d.CallMenu.Nodes.AddNode("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CallMenu.Nodes.AddNode(id); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeDraft(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.BusinessName != "Acme" || back.CallMenu.Nodes.Len() != 2 {
		t.Errorf("round trip lost data: name=%q nodes=%d", back.BusinessName, back.CallMenu.Nodes.Len())
	}
	if _, ok := back.CallMenu.Nodes.Node(id); !ok {
		t.Error("node id not preserved")
	}
}

func TestDraft_CloneIsDeep(t *testing.T) {
	d := NewDraft()
	d.Services = []string{"a"}
	c := d.Clone()
	c.Services[0] = "b"
	c.Departments[0].Name = "Sales"
	if _, err := c.CallMenu.Nodes.AddNode(""); err != nil {
		t.Fatal(err)
	}

	if d.Services[0] != "a" || d.Departments[0].Name != "" || d.CallMenu.Nodes.Len() != 0 {
		t.Error("clone shares state with the original")
	}
}

func TestDraft_DepartmentNamesSkipsBlank(t *testing.T) {
	d := NewDraft()
	d.Departments = append(d.Departments, Department{Name: "Sales"})
	names := d.DepartmentNames()
	if len(names) != 1 || names[0] != "Sales" {
		t.Errorf("DepartmentNames = %v", names)
	}
}
