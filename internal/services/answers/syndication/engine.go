// Package syndication mirrors approved answers to social platforms.
package syndication

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/answerdesk/internal/services/answers/syndication"

const (
	operationPublish = "publish"
	operationDelete  = "delete"

	statusOK      = "ok"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// Adapter publishes and deletes posts on one platform.
type Adapter interface {
	Platform() domain.Platform
	Publish(ctx context.Context, text string) (postID string, err error)
	Delete(ctx context.Context, postID string) error
}

// Renderer builds post text for an answer.
type Renderer interface {
	Render(answer domain.Answer, subject domain.Subject) (string, error)
}

// Engine runs per-platform publish, republish, and delete for answers.
// Every adapter failure is logged and recorded on the answer, never returned.
type Engine struct {
	adapters []Adapter
	renderer Renderer
	clock    func() time.Time
	tracer   trace.Tracer
}

// NewEngine builds an engine over the configured adapters. Platforms with no
// adapter are never published to.
func NewEngine(renderer Renderer, clock func() time.Time, adapters ...Adapter) *Engine {
	if clock == nil {
		clock = time.Now
	}
	configured := make([]Adapter, 0, len(adapters))
	for _, adapter := range adapters {
		if adapter != nil {
			configured = append(configured, adapter)
		}
	}
	return &Engine{
		adapters: configured,
		renderer: renderer,
		clock:    clock,
		tracer:   otel.Tracer(tracerName),
	}
}

var _ domain.Syndicator = (*Engine)(nil)

// Platforms lists configured platforms in adapter order.
func (e *Engine) Platforms() []domain.Platform {
	platforms := make([]domain.Platform, 0, len(e.adapters))
	for _, adapter := range e.adapters {
		platforms = append(platforms, adapter.Platform())
	}
	return platforms
}

// Publish posts the answer to one platform and tracks the new post id,
// replacing any earlier one.
func (e *Engine) Publish(ctx context.Context, answer *domain.Answer, subject domain.Subject, platform domain.Platform) {
	adapter, ok := e.adapter(platform)
	if !ok {
		log.Printf("syndication: platform %s is not configured answer_id=%s", platform, answer.ID)
		return
	}
	text, err := e.render(*answer, subject)
	if err != nil {
		e.recordPublish(answer, platform, "", err)
		return
	}
	e.publish(ctx, answer, adapter, text)
}

// Republish replaces each tracked post with a fresh one. Platforms are
// handled independently; a failed delete never prevents the publish.
func (e *Engine) Republish(ctx context.Context, answer *domain.Answer, subject domain.Subject) {
	if len(answer.SocialPosts) == 0 {
		return
	}
	text, renderErr := e.render(*answer, subject)
	for _, post := range answer.TrackedPosts() {
		adapter, ok := e.adapter(post.Platform)
		if !ok {
			log.Printf("syndication: skip republish, platform %s is not configured answer_id=%s", post.Platform, answer.ID)
			continue
		}
		e.republish(ctx, answer, adapter, post, text, renderErr)
	}
}

// Sync republishes tracked posts and publishes to every configured platform
// that has none.
func (e *Engine) Sync(ctx context.Context, answer *domain.Answer, subject domain.Subject) {
	text, renderErr := e.render(*answer, subject)
	for _, adapter := range e.adapters {
		platform := adapter.Platform()
		if post, tracked := answer.SocialPosts[platform]; tracked {
			e.republish(ctx, answer, adapter, post, text, renderErr)
			continue
		}
		if renderErr != nil {
			e.recordPublish(answer, platform, "", renderErr)
			continue
		}
		e.publish(ctx, answer, adapter, text)
	}
}

// DeleteAll deletes every tracked post, clears tracking regardless of the
// outcome, and records one summary action. It does nothing when no post is
// tracked.
func (e *Engine) DeleteAll(ctx context.Context, answer *domain.Answer) {
	posts := answer.TrackedPosts()
	if len(posts) == 0 {
		return
	}
	summary := make(map[string]string, len(posts))
	for _, post := range posts {
		adapter, ok := e.adapter(post.Platform)
		if !ok {
			summary[string(post.Platform)] = statusSkipped
		} else if err := e.delete(ctx, answer.ID, adapter, post.PostID); err != nil {
			summary[string(post.Platform)] = statusFailed + ": " + err.Error()
		} else {
			summary[string(post.Platform)] = statusOK
		}
		answer.UntrackPost(post.Platform)
	}
	answer.Actions.Append(domain.ActionSocialDelete, summary, e.now())
}

func (e *Engine) republish(ctx context.Context, answer *domain.Answer, adapter Adapter, post domain.SocialPost, text string, renderErr error) {
	platform := adapter.Platform()
	deleteErr := e.delete(ctx, answer.ID, adapter, post.PostID)
	e.recordDelete(answer, platform, post.PostID, deleteErr)
	if deleteErr == nil {
		answer.UntrackPost(platform)
	}
	if renderErr != nil {
		e.recordPublish(answer, platform, "", renderErr)
		return
	}
	e.publish(ctx, answer, adapter, text)
}

func (e *Engine) publish(ctx context.Context, answer *domain.Answer, adapter Adapter, text string) {
	platform := adapter.Platform()
	ctx, span := e.startSpan(ctx, answer.ID, platform, operationPublish)
	defer span.End()

	postID, err := adapter.Publish(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		log.Printf("syndication: publish to %s failed answer_id=%s: %v", platform, answer.ID, err)
	} else {
		span.SetAttributes(attribute.String("social.post_id", postID))
		answer.TrackPost(platform, postID, e.now())
	}
	e.recordPublish(answer, platform, postID, err)
}

func (e *Engine) delete(ctx context.Context, answerID string, adapter Adapter, postID string) error {
	platform := adapter.Platform()
	ctx, span := e.startSpan(ctx, answerID, platform, operationDelete)
	defer span.End()
	span.SetAttributes(attribute.String("social.post_id", postID))

	if err := adapter.Delete(ctx, postID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		log.Printf("syndication: delete %s post %s failed answer_id=%s: %v", platform, postID, answerID, err)
		return err
	}
	return nil
}

func (e *Engine) recordPublish(answer *domain.Answer, platform domain.Platform, postID string, err error) {
	info := map[string]string{"platform": string(platform), "status": statusOK}
	if err != nil {
		info["status"] = statusFailed
		info["error"] = err.Error()
	} else {
		info["post_id"] = postID
	}
	answer.Actions.Append(domain.ActionSocialPublish, info, e.now())
}

func (e *Engine) recordDelete(answer *domain.Answer, platform domain.Platform, postID string, err error) {
	info := map[string]string{"platform": string(platform), "post_id": postID, "status": statusOK}
	if err != nil {
		info["status"] = statusFailed
		info["error"] = err.Error()
	}
	answer.Actions.Append(domain.ActionSocialDelete, info, e.now())
}

func (e *Engine) render(answer domain.Answer, subject domain.Subject) (string, error) {
	if e.renderer == nil {
		return "", fmt.Errorf("renderer is not configured")
	}
	text, err := e.renderer.Render(answer, subject)
	if err != nil {
		return "", fmt.Errorf("render post: %w", err)
	}
	return text, nil
}

func (e *Engine) adapter(platform domain.Platform) (Adapter, bool) {
	for _, adapter := range e.adapters {
		if adapter.Platform() == platform {
			return adapter, true
		}
	}
	return nil, false
}

func (e *Engine) startSpan(ctx context.Context, answerID string, platform domain.Platform, operation string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "syndication."+operation, trace.WithAttributes(
		attribute.String("answer.id", answerID),
		attribute.String("social.platform", string(platform)),
		attribute.String("social.operation", operation),
	))
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}
