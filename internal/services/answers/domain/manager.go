package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/answerdesk/internal/platform/id"
	"github.com/louisbranch/answerdesk/internal/platform/pagination"
)

// AcceptedAnswerReputation is the reputation granted to an expert whose
// answer is accepted.
const AcceptedAnswerReputation = 15

const maxCommentLength = 1000

var answerPageSize = pagination.PageSizeConfig{Default: 20, Max: 100}

// Deps wires a Manager to its collaborators. Syndicator, Notifier, Events,
// Clock, and NewID are optional.
type Deps struct {
	Answers    AnswerStore
	Questions  QuestionStore
	Users      UserStore
	Syndicator Syndicator
	Notifier   Notifier
	Events     EventLogger
	Clock      func() time.Time
	NewID      func() (string, error)
}

// Manager runs answer lifecycle transitions.
type Manager struct {
	answers    AnswerStore
	questions  QuestionStore
	users      UserStore
	syndicator Syndicator
	notifier   Notifier
	events     EventLogger
	sync       Synchronizer
	clock      func() time.Time
	newID      func() (string, error)
}

// NewManager builds a Manager, filling optional collaborators with defaults.
func NewManager(deps Deps) *Manager {
	m := &Manager{
		answers:    deps.Answers,
		questions:  deps.Questions,
		users:      deps.Users,
		syndicator: deps.Syndicator,
		notifier:   deps.Notifier,
		events:     deps.Events,
		clock:      deps.Clock,
		newID:      deps.NewID,
	}
	if m.syndicator == nil {
		m.syndicator = nopSyndicator{}
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.events == nil {
		m.events = LogEventLogger{}
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.newID == nil {
		m.newID = id.NewID
	}
	return m
}

// CreateInput describes a new answer.
type CreateInput struct {
	QuestionID string
	ExpertID   string
	Content    string
}

// UpdateInput describes a content edit.
type UpdateInput struct {
	AnswerID string
	ActorID  string
	Content  string
}

// ModerateInput describes one approve or reject decision.
type ModerateInput struct {
	AnswerID    string
	ModeratorID string
	Approve     bool
	Comment     string
}

// AcceptInput identifies the answer a question author accepts.
type AcceptInput struct {
	AnswerID string
	ActorID  string
}

// DeleteInput identifies an answer to remove.
type DeleteInput struct {
	AnswerID string
	ActorID  string
}

// Create records a new unapproved answer by an expert.
func (m *Manager) Create(ctx context.Context, input CreateInput) (Answer, error) {
	if err := m.ready(); err != nil {
		return Answer{}, err
	}
	questionID, err := requireID("question_id", input.QuestionID)
	if err != nil {
		return Answer{}, err
	}
	expertID, err := requireID("expert_id", input.ExpertID)
	if err != nil {
		return Answer{}, err
	}
	content, err := NormalizeContent(input.Content)
	if err != nil {
		return Answer{}, err
	}

	question, err := m.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return Answer{}, notFound(err, ErrQuestionNotFound)
	}
	expert, err := m.users.GetUser(ctx, expertID)
	if err != nil {
		return Answer{}, notFound(err, ErrUserNotFound)
	}
	if !expert.Capabilities().CanAnswer() {
		m.events.Security(ctx, "create_answer", expertID, "missing expert capability")
		return Answer{}, ErrNotExpert
	}
	if question.AuthorID == expertID {
		return Answer{}, ErrSelfAnswer
	}
	if _, err := m.answers.FindAnswerByExpert(ctx, questionID, expertID); err == nil {
		return Answer{}, ErrDuplicateAnswer
	} else if !errors.Is(err, ErrNotFound) {
		return Answer{}, fmt.Errorf("find existing answer: %w", err)
	}

	answerID, err := m.newID()
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer id: %w", err)
	}
	now := m.now()
	answer := NewAnswer(answerID, questionID, expertID, content, now)
	if _, err := m.answers.Commit(ctx, Transition{Kind: TransitionCreate, Answer: answer, At: now}); err != nil {
		if errors.Is(err, ErrConflict) {
			return Answer{}, ErrDuplicateAnswer
		}
		return Answer{}, fmt.Errorf("create answer: %w", err)
	}
	answer.Actions.MarkPersisted()

	m.events.Action(ctx, ActionCreate, answer.ID, expertID, map[string]string{"question_id": questionID})
	m.notify(ctx, EventAnswerCreated, answer, expertID, now)
	return answer, nil
}

// Update edits an answer's content. An approved answer edited by its author
// loses approval and its social posts; one edited by an administrator stays
// approved and is republished.
func (m *Manager) Update(ctx context.Context, input UpdateInput) (Answer, error) {
	if err := m.ready(); err != nil {
		return Answer{}, err
	}
	answerID, err := requireID("answer_id", input.AnswerID)
	if err != nil {
		return Answer{}, err
	}
	actorID, err := requireID("actor_id", input.ActorID)
	if err != nil {
		return Answer{}, err
	}
	content, err := NormalizeContent(input.Content)
	if err != nil {
		return Answer{}, err
	}

	actor, err := m.users.GetUser(ctx, actorID)
	if err != nil {
		return Answer{}, notFound(err, ErrUserNotFound)
	}
	answer, err := m.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return Answer{}, notFound(err, ErrAnswerNotFound)
	}
	caps := actor.Capabilities()
	if answer.ExpertID != actorID && !caps.IsAdmin {
		m.events.Security(ctx, "update_answer", actorID, "not the author")
		return Answer{}, ErrNotAnswerAuthor
	}

	now := m.now()
	guard := approvalGuard(answer.IsApproved)
	revoke := answer.IsApproved && !caps.IsAdmin
	answer.Edit(content, actorID, now)
	var change QuestionChange
	if revoke {
		change = m.sync.Decrement(answer.QuestionID, answer.RevokeApproval())
	}
	question, err := m.answers.Commit(ctx, Transition{
		Kind:           TransitionSave,
		Answer:         answer,
		Question:       change,
		At:             now,
		ExpectApproved: guard,
	})
	if err != nil {
		return Answer{}, commitError("update answer", err)
	}
	answer.Actions.MarkPersisted()
	m.events.Action(ctx, ActionUpdate, answer.ID, actorID, map[string]string{"revoked": fmt.Sprint(revoke)})

	switch {
	case revoke:
		m.unsyndicate(ctx, &answer)
	case answer.IsApproved:
		m.syndicate(ctx, &answer, question)
	}
	return answer, nil
}

// Moderate approves or rejects an answer.
func (m *Manager) Moderate(ctx context.Context, input ModerateInput) (Answer, error) {
	if err := m.ready(); err != nil {
		return Answer{}, err
	}
	answerID, err := requireID("answer_id", input.AnswerID)
	if err != nil {
		return Answer{}, err
	}
	moderatorID, err := requireID("moderator_id", input.ModeratorID)
	if err != nil {
		return Answer{}, err
	}
	comment := strings.TrimSpace(input.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return Answer{}, validationError("comment", "moderation comment is too long")
	}

	moderator, err := m.users.GetUser(ctx, moderatorID)
	if err != nil {
		return Answer{}, notFound(err, ErrUserNotFound)
	}
	if !moderator.Capabilities().CanModerate {
		m.events.Security(ctx, "moderate_answer", moderatorID, "missing moderator capability")
		return Answer{}, ErrCannotModerate
	}
	answer, err := m.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return Answer{}, notFound(err, ErrAnswerNotFound)
	}
	if answer.IsApproved == input.Approve {
		return Answer{}, ErrStateUnchanged
	}

	now := m.now()
	if input.Approve {
		return m.approve(ctx, answer, moderatorID, comment, now)
	}
	return m.reject(ctx, answer, moderatorID, comment, now)
}

func (m *Manager) approve(ctx context.Context, answer Answer, moderatorID, comment string, now time.Time) (Answer, error) {
	answer.Approve(moderatorID, comment, now)
	question, err := m.answers.Commit(ctx, Transition{
		Kind:           TransitionSave,
		Answer:         answer,
		Question:       m.sync.Increment(answer.QuestionID),
		At:             now,
		ExpectApproved: approvalGuard(false),
	})
	if err != nil {
		return Answer{}, commitError("approve answer", err)
	}
	answer.Actions.MarkPersisted()
	m.events.Action(ctx, ActionApprove, answer.ID, moderatorID, nil)

	m.syndicate(ctx, &answer, question)
	m.notify(ctx, EventAnswerApproved, answer, moderatorID, now)
	return answer, nil
}

func (m *Manager) reject(ctx context.Context, answer Answer, moderatorID, comment string, now time.Time) (Answer, error) {
	wasAccepted := answer.Reject(moderatorID, comment, now)
	if _, err := m.answers.Commit(ctx, Transition{
		Kind:           TransitionSave,
		Answer:         answer,
		Question:       m.sync.Decrement(answer.QuestionID, wasAccepted),
		At:             now,
		ExpectApproved: approvalGuard(true),
	}); err != nil {
		return Answer{}, commitError("reject answer", err)
	}
	answer.Actions.MarkPersisted()
	m.events.Action(ctx, ActionReject, answer.ID, moderatorID, nil)

	m.unsyndicate(ctx, &answer)
	m.notify(ctx, EventAnswerRejected, answer, moderatorID, now)
	return answer, nil
}

// Accept marks an approved answer as the question's accepted answer.
func (m *Manager) Accept(ctx context.Context, input AcceptInput) (Answer, error) {
	if err := m.ready(); err != nil {
		return Answer{}, err
	}
	answerID, err := requireID("answer_id", input.AnswerID)
	if err != nil {
		return Answer{}, err
	}
	actorID, err := requireID("actor_id", input.ActorID)
	if err != nil {
		return Answer{}, err
	}

	actor, err := m.users.GetUser(ctx, actorID)
	if err != nil {
		return Answer{}, notFound(err, ErrUserNotFound)
	}
	answer, err := m.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return Answer{}, notFound(err, ErrAnswerNotFound)
	}
	question, err := m.questions.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return Answer{}, notFound(err, ErrQuestionNotFound)
	}
	if question.AuthorID != actorID && !actor.Capabilities().IsAdmin {
		m.events.Security(ctx, "accept_answer", actorID, "not the question author")
		return Answer{}, ErrNotQuestionAuthor
	}
	if !answer.IsApproved {
		return Answer{}, ErrNotApproved
	}
	if question.HasAcceptedAnswer {
		return Answer{}, ErrAlreadyAccepted
	}

	now := m.now()
	answer.MarkAccepted(actorID, now)
	question = m.sync.Accepted(question, answer.ID, now)
	if err := m.answers.AcceptAnswer(ctx, answer, question); err != nil {
		if errors.Is(err, ErrConflict) {
			return Answer{}, ErrAlreadyAccepted
		}
		return Answer{}, fmt.Errorf("accept answer: %w", notFound(err, ErrAnswerNotFound))
	}
	answer.Actions.MarkPersisted()
	m.events.Action(ctx, ActionAccept, answer.ID, actorID, map[string]string{"question_id": question.ID})

	if err := m.users.AdjustReputation(ctx, answer.ExpertID, AcceptedAnswerReputation); err != nil {
		m.events.Error(ctx, "adjust_reputation", answer.ID, err)
	}
	m.notify(ctx, EventAnswerAccepted, answer, actorID, now)
	return answer, nil
}

// Delete removes an answer. Authors may delete answers that were never
// approved; administrators may delete any answer.
func (m *Manager) Delete(ctx context.Context, input DeleteInput) error {
	if err := m.ready(); err != nil {
		return err
	}
	answerID, err := requireID("answer_id", input.AnswerID)
	if err != nil {
		return err
	}
	actorID, err := requireID("actor_id", input.ActorID)
	if err != nil {
		return err
	}

	actor, err := m.users.GetUser(ctx, actorID)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	answer, err := m.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return notFound(err, ErrAnswerNotFound)
	}
	isAuthor := answer.ExpertID == actorID
	switch {
	case actor.Capabilities().IsAdmin:
	case isAuthor && !answer.WasApproved:
	case isAuthor:
		m.events.Security(ctx, "delete_answer", actorID, "answer was approved")
		return ErrDeleteAfterApprove
	default:
		m.events.Security(ctx, "delete_answer", actorID, "not the author")
		return ErrNotAnswerAuthor
	}

	m.syndicator.DeleteAll(ctx, &answer)
	if _, err := m.answers.Commit(ctx, Transition{
		Kind:     TransitionDelete,
		Answer:   answer,
		Question: m.sync.Removed(answer),
		At:       m.now(),
	}); err != nil {
		m.persistSyndication(ctx, &answer, "delete_answer")
		return fmt.Errorf("delete answer: %w", notFound(err, ErrAnswerNotFound))
	}
	m.events.Action(ctx, ActionDelete, answer.ID, actorID, map[string]string{"question_id": answer.QuestionID})
	return nil
}

// syndicate mirrors an approved answer and persists the outcome. Failures
// are logged only.
func (m *Manager) syndicate(ctx context.Context, answer *Answer, question Question) {
	expert, err := m.users.GetUser(ctx, answer.ExpertID)
	if err != nil {
		m.events.Error(ctx, "syndicate", answer.ID, fmt.Errorf("load expert: %w", err))
		expert = User{ID: answer.ExpertID}
	}
	m.syndicator.Sync(ctx, answer, Subject{Question: question, Expert: expert})
	m.persistSyndication(ctx, answer, "syndicate")
}

func (m *Manager) unsyndicate(ctx context.Context, answer *Answer) {
	m.syndicator.DeleteAll(ctx, answer)
	m.persistSyndication(ctx, answer, "unsyndicate")
}

func (m *Manager) persistSyndication(ctx context.Context, answer *Answer, op string) {
	if len(answer.Actions.Pending()) == 0 {
		return
	}
	if _, err := m.answers.Commit(ctx, Transition{
		Kind:           TransitionSave,
		Answer:         *answer,
		At:             m.now(),
		ExpectApproved: approvalGuard(answer.IsApproved),
	}); err != nil {
		m.events.Error(ctx, op, answer.ID, fmt.Errorf("persist syndication: %w", err))
		return
	}
	answer.Actions.MarkPersisted()
}

func (m *Manager) notify(ctx context.Context, kind EventKind, answer Answer, actorID string, at time.Time) {
	event := Event{
		Kind:       kind,
		AnswerID:   answer.ID,
		QuestionID: answer.QuestionID,
		ExpertID:   answer.ExpertID,
		ActorID:    actorID,
		At:         at,
	}
	if err := m.notifier.Notify(ctx, event); err != nil {
		log.Printf("notify %s answer_id=%s: %v", kind, answer.ID, err)
	}
}

// commitError maps a failed moderation save. A guard conflict means another
// request changed the answer's approval first.
func commitError(op string, err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return ErrStateUnchanged
	case errors.Is(err, ErrNotFound):
		return ErrAnswerNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Manager) ready() error {
	if m == nil || m.answers == nil || m.questions == nil || m.users == nil {
		return ErrStoreNotConfigured
	}
	return nil
}

func (m *Manager) now() time.Time {
	return m.clock().UTC()
}

func requireID(field string, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", validationError(field, field+" is required")
	}
	return value, nil
}
