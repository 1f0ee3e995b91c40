package domain

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinContentLength is the minimum trimmed answer length in runes.
	MinContentLength = 50
	// MaxContentLength is the maximum trimmed answer length in runes.
	MaxContentLength = 10000
)

// Platform identifies a syndication target.
type Platform string

const (
	PlatformFacebook Platform = "facebook"
	PlatformLinkedIn Platform = "linkedin"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{PlatformFacebook, PlatformLinkedIn}

// SocialPost is the tracked external post for one platform.
type SocialPost struct {
	Platform    Platform
	PostID      string
	PublishedAt time.Time
}

// Answer is an expert's reply to a question together with its moderation
// state, syndicated posts, and action history.
type Answer struct {
	ID                string
	QuestionID        string
	ExpertID          string
	Content           string
	IsApproved        bool
	WasApproved       bool
	ModeratedBy       string
	ModeratedAt       *time.Time
	ModerationComment string
	IsAccepted        bool
	Likes             int
	// SocialPosts holds at most one tracked post per platform.
	SocialPosts map[Platform]SocialPost
	Actions     ActionLog
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeContent trims content and checks the length bounds.
func NormalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n < MinContentLength {
		return "", validationError("content", "answer content is too short")
	}
	if n > MaxContentLength {
		return "", validationError("content", "answer content is too long")
	}
	return content, nil
}

// NewAnswer builds an unapproved answer and records its create action.
func NewAnswer(id, questionID, expertID, content string, at time.Time) Answer {
	answer := Answer{
		ID:         id,
		QuestionID: questionID,
		ExpertID:   expertID,
		Content:    content,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	answer.Actions.Append(ActionCreate, map[string]string{"expert_id": expertID}, at)
	return answer
}

// Approve marks the answer approved by moderatorID.
func (a *Answer) Approve(moderatorID, comment string, at time.Time) {
	a.IsApproved = true
	a.WasApproved = true
	a.stampModeration(moderatorID, comment, at)
	a.Actions.Append(ActionApprove, moderationInfo(moderatorID, comment), at)
}

// Reject withdraws approval. It reports whether the answer had been accepted,
// in which case acceptance is withdrawn too.
func (a *Answer) Reject(moderatorID, comment string, at time.Time) (wasAccepted bool) {
	wasAccepted = a.IsAccepted
	a.IsApproved = false
	a.IsAccepted = false
	a.stampModeration(moderatorID, comment, at)
	a.Actions.Append(ActionReject, moderationInfo(moderatorID, comment), at)
	return wasAccepted
}

// Edit replaces the content and records the update.
func (a *Answer) Edit(content, actorID string, at time.Time) {
	a.Content = content
	a.UpdatedAt = at
	a.Actions.Append(ActionUpdate, map[string]string{"actor_id": actorID}, at)
}

// RevokeApproval clears approval and moderation metadata after an author
// edit. wasApproved is left untouched. It reports whether the answer had been
// accepted.
func (a *Answer) RevokeApproval() (wasAccepted bool) {
	wasAccepted = a.IsAccepted
	a.IsApproved = false
	a.IsAccepted = false
	a.ModeratedBy = ""
	a.ModeratedAt = nil
	a.ModerationComment = ""
	return wasAccepted
}

// MarkAccepted flags the answer as the accepted one for its question.
func (a *Answer) MarkAccepted(actorID string, at time.Time) {
	a.IsAccepted = true
	a.UpdatedAt = at
	a.Actions.Append(ActionAccept, map[string]string{"actor_id": actorID}, at)
}

// TrackPost records postID as the single tracked post for platform,
// replacing any earlier one.
func (a *Answer) TrackPost(platform Platform, postID string, at time.Time) {
	if a.SocialPosts == nil {
		a.SocialPosts = make(map[Platform]SocialPost)
	}
	a.SocialPosts[platform] = SocialPost{Platform: platform, PostID: postID, PublishedAt: at}
}

// UntrackPost forgets the tracked post for platform.
func (a *Answer) UntrackPost(platform Platform) {
	delete(a.SocialPosts, platform)
}

// TrackedPosts returns tracked posts ordered by platform.
func (a Answer) TrackedPosts() []SocialPost {
	posts := make([]SocialPost, 0, len(a.SocialPosts))
	for _, post := range a.SocialPosts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Platform < posts[j].Platform })
	return posts
}

// VisibleTo reports whether viewerID may read the answer.
func (a Answer) VisibleTo(viewerID string, caps Capabilities) bool {
	return a.IsApproved || caps.CanModerate || a.ExpertID == viewerID
}

func (a *Answer) stampModeration(moderatorID, comment string, at time.Time) {
	moderatedAt := at
	a.ModeratedBy = moderatorID
	a.ModeratedAt = &moderatedAt
	a.ModerationComment = comment
	a.UpdatedAt = at
}

func moderationInfo(moderatorID, comment string) map[string]string {
	info := map[string]string{"moderator_id": moderatorID}
	if comment != "" {
		info["comment"] = comment
	}
	return info
}
