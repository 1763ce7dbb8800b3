package directive

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestConstructorsCarryOnlyTheirMetadata(t *testing.T) {
	tests := []struct {
		name       string
		d          Directive
		wantAction Action
		wantCmd    bool
		wantMeta   func(*Metadata) bool
	}{
		{
			name:       "pull carries remote head",
			d:          Pull("def2"),
			wantAction: ActionPull,
			wantCmd:    true,
			wantMeta:   func(m *Metadata) bool { return m != nil && m.RemoteHead == "def2" && m.LockOwner == "" },
		},
		{
			name:       "push has no metadata",
			d:          Push("remote unchanged"),
			wantAction: ActionPush,
			wantCmd:    true,
			wantMeta:   func(m *Metadata) bool { return m == nil },
		},
		{
			name:       "wait carries owner and conflicts",
			d:          Wait("src/auth.ts locked by alice", "alice", []string{"src/auth.ts"}),
			wantAction: ActionWait,
			wantCmd:    true,
			wantMeta: func(m *Metadata) bool {
				return m != nil && m.LockOwner == "alice" && len(m.Conflicts) == 1
			},
		},
		{
			name:       "switch task offline has no metadata",
			d:          SwitchTask("system offline", "", nil),
			wantAction: ActionSwitchTask,
			wantMeta:   func(m *Metadata) bool { return m == nil },
		},
		{
			name:       "switch task conflict carries conflicts",
			d:          SwitchTask("neighbor locked", "bob", []string{"src/db.ts"}),
			wantAction: ActionSwitchTask,
			wantMeta: func(m *Metadata) bool {
				return m != nil && m.LockOwner == "bob" && m.Conflicts[0] == "src/db.ts"
			},
		},
		{
			name:       "stop is reason only",
			d:          Stop("cannot safely acquire lock while offline"),
			wantAction: ActionStop,
			wantMeta:   func(m *Metadata) bool { return m == nil },
		},
		{
			name:       "proceed is reason only",
			d:          Proceed("all files unlocked"),
			wantAction: ActionProceed,
			wantMeta:   func(m *Metadata) bool { return m == nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.d.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", tt.d.Action, tt.wantAction)
			}
			if tt.wantCmd && tt.d.Command == "" {
				t.Error("expected a command hint")
			}
			if !tt.wantCmd && tt.d.Command != "" {
				t.Errorf("unexpected command hint %q", tt.d.Command)
			}
			if tt.d.Reason == "" {
				t.Error("every directive needs a reason")
			}
			if !tt.wantMeta(tt.d.Metadata) {
				t.Errorf("metadata = %+v", tt.d.Metadata)
			}
		})
	}
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(Wait("locked", "alice", []string{"src/auth.ts"}))
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"action":"WAIT"`, `"lock_owner":"alice"`, `"conflicts":["src/auth.ts"]`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}

	// Absent metadata is omitted, not an empty object.
	data, _ = json.Marshal(Proceed("ok"))
	if strings.Contains(string(data), "metadata") {
		t.Errorf("PROCEED JSON should omit metadata: %s", data)
	}
}
