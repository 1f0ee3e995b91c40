// Package notify dispatches answer lifecycle events to downstream consumers.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream answer events are appended to.
const DefaultStream = "answers:events"

// streamMaxLen bounds the stream approximately.
const streamMaxLen = 100000

// LogDispatcher writes each event to the process log. It is used when no
// broker is configured.
type LogDispatcher struct{}

var _ domain.Notifier = LogDispatcher{}

// Notify logs the event.
func (LogDispatcher) Notify(_ context.Context, event domain.Event) error {
	log.Printf("notify kind=%s answer_id=%s question_id=%s expert_id=%s actor_id=%s",
		event.Kind, event.AnswerID, event.QuestionID, event.ExpertID, event.ActorID)
	return nil
}

// StreamAdder is the subset of the Redis client the stream dispatcher uses.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamDispatcher appends events to a Redis stream for the
// notification workers that deliver them.
type RedisStreamDispatcher struct {
	client StreamAdder
	stream string
}

var _ domain.Notifier = (*RedisStreamDispatcher)(nil)

// NewRedisStreamDispatcher builds a dispatcher writing to stream.
func NewRedisStreamDispatcher(client StreamAdder, stream string) *RedisStreamDispatcher {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamDispatcher{client: client, stream: stream}
}

// Notify appends one stream entry for event.
func (d *RedisStreamDispatcher) Notify(ctx context.Context, event domain.Event) error {
	if d == nil || d.client == nil {
		return fmt.Errorf("redis dispatcher is not configured")
	}
	err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"kind":        string(event.Kind),
			"answer_id":   event.AnswerID,
			"question_id": event.QuestionID,
			"expert_id":   event.ExpertID,
			"actor_id":    event.ActorID,
			"at":          event.At.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("append %s to %s: %w", event.Kind, d.stream, err)
	}
	return nil
}
