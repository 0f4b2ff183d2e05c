package state

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewPolicies(t *testing.T) {
	tests := []struct {
		policy  string
		initial string
		want    string
	}{
		{policy: "", want: "{}"},
		{policy: PolicyReplace, want: "{}"},
		{policy: PolicyAppend, want: "[]"},
		{policy: PolicyMergePatch, want: "{}"},
		{policy: PolicyReplace, initial: `{"shapes":[]}`, want: `{"shapes":[]}`},
	}

	for _, tt := range tests {
		m, err := New(tt.policy, json.RawMessage(tt.initial))
		if err != nil {
			t.Fatalf("New(%q): %v", tt.policy, err)
		}
		if got := string(m.Initial()); got != tt.want {
			t.Fatalf("New(%q).Initial() = %s, want %s", tt.policy, got, tt.want)
		}
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	if _, err := New("crdt", nil); err == nil {
		t.Fatal("expected error for unknown policy")
	}
	if _, err := New(PolicyReplace, json.RawMessage("{broken")); err == nil {
		t.Fatal("expected error for invalid initial state")
	}
}

func TestReplaceLastWriterWins(t *testing.T) {
	m := Replace{Empty: json.RawMessage("{}")}

	s, err := m.Apply(m.Initial(), json.RawMessage(`{"v":1}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, err = m.Apply(s, json.RawMessage(`{"v":2}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if string(s) != `{"v":2}` {
		t.Fatalf("unexpected snapshot: %s", s)
	}
}

func TestAppendLogKeepsArrivalOrder(t *testing.T) {
	m := AppendLog{Empty: json.RawMessage("[]")}

	s := m.Initial()
	for _, p := range []string{`"X"`, `"Y"`, `{"z":1}`} {
		var err error
		s, err = m.Apply(s, json.RawMessage(p))
		if err != nil {
			t.Fatalf("apply %s: %v", p, err)
		}
	}
	if string(s) != `["X","Y",{"z":1}]` {
		t.Fatalf("unexpected log: %s", s)
	}
}

func TestMergePatch(t *testing.T) {
	m := MergePatch{Empty: json.RawMessage("{}")}

	s, err := m.Apply(m.Initial(), json.RawMessage(`{"a":1,"b":{"c":2}}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	s, err = m.Apply(s, json.RawMessage(`{"a":null,"b":{"d":3}}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(s, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["a"]; ok {
		t.Fatalf("expected a to be removed: %s", s)
	}
	b, ok := got["b"].(map[string]any)
	if !ok || b["c"] != float64(2) || b["d"] != float64(3) {
		t.Fatalf("unexpected merge result: %s", s)
	}
}

func TestApplyRejectsInvalidPatch(t *testing.T) {
	mergers := []Merger{
		Replace{Empty: json.RawMessage("{}")},
		AppendLog{Empty: json.RawMessage("[]")},
		MergePatch{Empty: json.RawMessage("{}")},
	}
	for _, m := range mergers {
		if _, err := m.Apply(m.Initial(), json.RawMessage("{not json")); !errors.Is(err, ErrInvalidPatch) {
			t.Fatalf("%T: expected ErrInvalidPatch, got %v", m, err)
		}
		if _, err := m.Apply(m.Initial(), nil); !errors.Is(err, ErrInvalidPatch) {
			t.Fatalf("%T: expected ErrInvalidPatch for empty patch, got %v", m, err)
		}
		if _, err := m.Apply(m.Initial(), json.RawMessage(" null ")); !errors.Is(err, ErrInvalidPatch) {
			t.Fatalf("%T: expected ErrInvalidPatch for null patch, got %v", m, err)
		}
	}
}

func TestMergePatchKeepsObjectSnapshot(t *testing.T) {
	m := MergePatch{Empty: json.RawMessage("{}")}
	current := json.RawMessage(`{"a":1}`)

	for _, patch := range []string{`5`, `"text"`, `[1,2]`} {
		if _, err := m.Apply(current, json.RawMessage(patch)); !errors.Is(err, ErrInvalidPatch) {
			t.Fatalf("patch %s: expected ErrInvalidPatch, got %v", patch, err)
		}
	}

	next, err := m.Apply(current, json.RawMessage(`{"b":2}`))
	if err != nil {
		t.Fatalf("apply after rejected patches: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(next, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["a"] != float64(1) || got["b"] != float64(2) {
		t.Fatalf("unexpected merge result: %s", next)
	}
}

func TestInitialIsCopied(t *testing.T) {
	m := Replace{Empty: json.RawMessage(`{"a":1}`)}
	s := m.Initial()
	s[2] = 'b'
	if string(m.Initial()) != `{"a":1}` {
		t.Fatal("Initial must return a copy")
	}
}
