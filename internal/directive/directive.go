// Package directive defines the single machine-actionable recommendation
// returned to a calling agent, one constructor per action so each case
// carries only the metadata that belongs to it.
package directive

// Action is what the caller should do next.
type Action string

const (
	ActionPull       Action = "PULL"        // sync local copy before anything else
	ActionPush       Action = "PUSH"        // publish local commits upstream
	ActionWait       Action = "WAIT"        // poll again shortly, the holder may finish
	ActionSwitchTask Action = "SWITCH_TASK" // abandon these files for now
	ActionStop       Action = "STOP"        // no safe automatic action exists
	ActionProceed    Action = "PROCEED"     // all clear
)

// Command hints attached to actionable directives. Advisory only; the
// engine never executes or sleeps on them.
const (
	cmdPull = "sync local copy with remote"
	cmdPush = "publish local commits"
	cmdWait = "retry after short delay"
)

// Metadata carries the machine-actionable detail for the directive's action.
// Only the fields relevant to the action are populated.
type Metadata struct {
	RemoteHead string   `json:"remote_head,omitempty"`
	LockOwner  string   `json:"lock_owner,omitempty"`
	Conflicts  []string `json:"conflicts,omitempty"`
}

// Directive is the rendered decision. Build one with the constructor for
// its action rather than filling fields by hand.
type Directive struct {
	Action   Action    `json:"action"`
	Command  string    `json:"command,omitempty"`
	Reason   string    `json:"reason"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Pull tells a stale caller to sync before any lock decision is trusted.
func Pull(remoteHead string) Directive {
	return Directive{
		Action:   ActionPull,
		Command:  cmdPull,
		Reason:   "local revision is behind remote head " + remoteHead,
		Metadata: &Metadata{RemoteHead: remoteHead},
	}
}

// Push tells the caller its release is logically done but unpublished.
func Push(reason string) Directive {
	return Directive{
		Action:  ActionPush,
		Command: cmdPush,
		Reason:  reason,
	}
}

// Wait tells a write-intent caller another holder has the files; a short
// poll is more useful than abandoning the task it explicitly chose.
func Wait(reason, lockOwner string, conflicts []string) Directive {
	return Directive{
		Action:  ActionWait,
		Command: cmdWait,
		Reason:  reason,
		Metadata: &Metadata{
			LockOwner: lockOwner,
			Conflicts: conflicts,
		},
	}
}

// SwitchTask tells a read-intent caller to work on something else.
// lockOwner and conflicts are optional: the offline branch has neither.
func SwitchTask(reason, lockOwner string, conflicts []string) Directive {
	d := Directive{
		Action: ActionSwitchTask,
		Reason: reason,
	}
	if lockOwner != "" || len(conflicts) > 0 {
		d.Metadata = &Metadata{LockOwner: lockOwner, Conflicts: conflicts}
	}
	return d
}

// Stop tells the caller nothing can safely proceed.
func Stop(reason string) Directive {
	return Directive{
		Action: ActionStop,
		Reason: reason,
	}
}

// Proceed tells the caller the requested work is unobstructed.
func Proceed(reason string) Directive {
	return Directive{
		Action: ActionProceed,
		Reason: reason,
	}
}
