package domain

import (
	"maps"
	"time"
)

// ActionKind names one entry type in an answer's history.
type ActionKind string

const (
	ActionCreate        ActionKind = "create"
	ActionUpdate        ActionKind = "update"
	ActionApprove       ActionKind = "approve"
	ActionReject        ActionKind = "reject"
	ActionAccept        ActionKind = "accept"
	ActionSocialPublish ActionKind = "social_publish"
	ActionSocialDelete  ActionKind = "social_delete"
	// ActionDelete is only reported to the audit sink; the answer's own log
	// is removed with it.
	ActionDelete ActionKind = "delete"
)

// Action is one immutable history entry. Seq is assigned on persistence and
// is zero for entries not yet stored.
type Action struct {
	Seq  int
	Kind ActionKind
	Info map[string]string
	At   time.Time
}

// ActionLog is an append-only ordered history. Entries loaded from storage
// are persisted; entries appended since are pending until MarkPersisted.
type ActionLog struct {
	entries   []Action
	persisted int
}

// RestoreActionLog rebuilds a log from stored entries.
func RestoreActionLog(entries []Action) ActionLog {
	copied := make([]Action, len(entries))
	copy(copied, entries)
	return ActionLog{entries: copied, persisted: len(copied)}
}

// Append adds one entry at the end of the log.
func (l *ActionLog) Append(kind ActionKind, info map[string]string, at time.Time) {
	l.entries = append(l.entries, Action{Kind: kind, Info: maps.Clone(info), At: at})
}

// Len returns the number of entries, persisted or not.
func (l ActionLog) Len() int {
	return len(l.entries)
}

// Entries returns a copy of every entry in order.
func (l ActionLog) Entries() []Action {
	out := make([]Action, len(l.entries))
	copy(out, l.entries)
	return out
}

// Pending returns entries appended since the log was last persisted.
func (l ActionLog) Pending() []Action {
	if l.persisted >= len(l.entries) {
		return nil
	}
	out := make([]Action, len(l.entries)-l.persisted)
	copy(out, l.entries[l.persisted:])
	return out
}

// MarkPersisted records that every current entry has been stored.
func (l *ActionLog) MarkPersisted() {
	l.persisted = len(l.entries)
}

// Kinds returns entry kinds in order.
func (l ActionLog) Kinds() []ActionKind {
	kinds := make([]ActionKind, len(l.entries))
	for i, entry := range l.entries {
		kinds[i] = entry.Kind
	}
	return kinds
}
