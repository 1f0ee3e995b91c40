package domain

import (
	"context"
	"time"

	"github.com/louisbranch/answerdesk/internal/platform/filter"
)

// TransitionKind selects how a store persists an answer transition.
type TransitionKind int

const (
	// TransitionCreate inserts a new answer.
	TransitionCreate TransitionKind = iota
	// TransitionSave updates an existing answer.
	TransitionSave
	// TransitionDelete removes an answer and its history.
	TransitionDelete
)

// Transition is one answer write plus its question bookkeeping. Stores
// commit both in a single transaction and append the answer's pending
// actions.
type Transition struct {
	Kind     TransitionKind
	Answer   Answer
	Question QuestionChange
	At       time.Time
	// ExpectApproved, when set, applies a save only while the stored
	// answer's approval flag still equals it. Stores return ErrConflict
	// otherwise and write nothing.
	ExpectApproved *bool
}

func approvalGuard(approved bool) *bool {
	return &approved
}

// AnswerQuery selects a page of answers for one question.
type AnswerQuery struct {
	QuestionID string
	Condition  filter.SQLCondition
	// RestrictToViewer limits results to approved answers plus answers
	// authored by ViewerID.
	RestrictToViewer bool
	ViewerID         string
	PageSize         int
	PageToken        string
}

// AnswerPage is one page of answers, accepted first then oldest first.
type AnswerPage struct {
	Answers       []Answer
	NextPageToken string
}

// AnswerStore persists answers, their posts, and their action history.
type AnswerStore interface {
	GetAnswer(ctx context.Context, answerID string) (Answer, error)
	FindAnswerByExpert(ctx context.Context, questionID string, expertID string) (Answer, error)
	ListQuestionAnswers(ctx context.Context, query AnswerQuery) (AnswerPage, error)
	ListAnswerActions(ctx context.Context, answerID string, condition filter.SQLCondition) ([]Action, error)
	// Commit applies t atomically and returns the question after bookkeeping.
	// Create returns ErrConflict when the expert already answered.
	Commit(ctx context.Context, t Transition) (Question, error)
	// AcceptAnswer marks answer accepted, clears every other answer of the
	// question, and flags the question, only if the question has no accepted
	// answer yet. Otherwise it returns ErrConflict and changes nothing.
	AcceptAnswer(ctx context.Context, answer Answer, question Question) error
}

// QuestionStore reads parent questions.
type QuestionStore interface {
	GetQuestion(ctx context.Context, questionID string) (Question, error)
}

// UserStore reads accounts and adjusts reputation.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (User, error)
	AdjustReputation(ctx context.Context, userID string, delta int) error
}

// Subject is what syndicated posts describe besides the answer itself.
type Subject struct {
	Question Question
	Expert   User
}

// Syndicator mirrors answers to social platforms. Implementations record
// outcomes on the answer (tracked posts and actions) and never fail the
// caller.
type Syndicator interface {
	// Sync republishes tracked posts and publishes to configured platforms
	// with no tracked post.
	Sync(ctx context.Context, answer *Answer, subject Subject)
	// DeleteAll removes every tracked post.
	DeleteAll(ctx context.Context, answer *Answer)
}

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventAnswerCreated  EventKind = "answer.created"
	EventAnswerApproved EventKind = "answer.approved"
	EventAnswerRejected EventKind = "answer.rejected"
	EventAnswerAccepted EventKind = "answer.accepted"
)

// Event is a fire-and-forget lifecycle notification.
type Event struct {
	Kind       EventKind
	AnswerID   string
	QuestionID string
	ExpertID   string
	ActorID    string
	At         time.Time
}

// Notifier dispatches lifecycle notifications.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// SocialToken is the persisted OAuth credential for a platform that needs
// one. It is updated in place whenever the access token is refreshed.
type SocialToken struct {
	Provider         string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	UpdatedAt        time.Time
}

// SocialTokenStore persists one token record per provider.
type SocialTokenStore interface {
	GetSocialToken(ctx context.Context, provider string) (SocialToken, error)
	PutSocialToken(ctx context.Context, token SocialToken) error
}
