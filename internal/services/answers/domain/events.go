package domain

import (
	"context"
	"log"
	"sort"
	"strings"
)

// EventLogger is the audit sink for actions, swallowed errors, and security
// events.
type EventLogger interface {
	Action(ctx context.Context, kind ActionKind, answerID string, actorID string, detail map[string]string)
	Error(ctx context.Context, op string, answerID string, err error)
	Security(ctx context.Context, op string, actorID string, reason string)
}

// LogEventLogger writes one structured log line per event.
type LogEventLogger struct{}

func (LogEventLogger) Action(_ context.Context, kind ActionKind, answerID string, actorID string, detail map[string]string) {
	log.Printf("event=action kind=%s answer_id=%s actor_id=%s%s", kind, answerID, actorID, formatDetail(detail))
}

func (LogEventLogger) Error(_ context.Context, op string, answerID string, err error) {
	log.Printf("event=error op=%s answer_id=%s err=%v", op, answerID, err)
}

func (LogEventLogger) Security(_ context.Context, op string, actorID string, reason string) {
	log.Printf("event=security op=%s actor_id=%s reason=%q", op, actorID, reason)
}

func formatDetail(detail map[string]string) string {
	if len(detail) == 0 {
		return ""
	}
	keys := make([]string, 0, len(detail))
	for key := range detail {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(detail[key])
	}
	return b.String()
}

type nopSyndicator struct{}

func (nopSyndicator) Sync(context.Context, *Answer, Subject) {}
func (nopSyndicator) DeleteAll(context.Context, *Answer)     {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }
