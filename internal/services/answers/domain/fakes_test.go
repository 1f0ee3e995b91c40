package domain

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/louisbranch/answerdesk/internal/platform/filter"
)

var errIDGeneratorExhausted = errors.New("id generator exhausted")

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	queue := append([]string(nil), ids...)
	index := 0
	return func() (string, error) {
		if index >= len(queue) {
			return "", errIDGeneratorExhausted
		}
		value := queue[index]
		index++
		return value, nil
	}
}

type fakeStore struct {
	mu         sync.Mutex
	answers    map[string]Answer
	actions    map[string][]Action
	questions  map[string]Question
	users      map[string]User
	reputation map[string]int
	commitErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		answers:    make(map[string]Answer),
		actions:    make(map[string][]Action),
		questions:  make(map[string]Question),
		users:      make(map[string]User),
		reputation: make(map[string]int),
	}
}

func (s *fakeStore) putUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *fakeStore) putQuestion(question Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = question
}

func (s *fakeStore) question(id string) Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[id]
}

func (s *fakeStore) storedAnswer(id string) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.answers[id]
	if !ok {
		return Answer{}, false
	}
	return s.hydrate(answer), true
}

func (s *fakeStore) GetAnswer(_ context.Context, answerID string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.answers[answerID]
	if !ok {
		return Answer{}, ErrNotFound
	}
	return s.hydrate(answer), nil
}

func (s *fakeStore) FindAnswerByExpert(_ context.Context, questionID string, expertID string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, answer := range s.answers {
		if answer.QuestionID == questionID && answer.ExpertID == expertID {
			return s.hydrate(answer), nil
		}
	}
	return Answer{}, ErrNotFound
}

func (s *fakeStore) ListQuestionAnswers(_ context.Context, query AnswerQuery) (AnswerPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Answer
	for _, answer := range s.answers {
		if answer.QuestionID != query.QuestionID {
			continue
		}
		if query.RestrictToViewer && !answer.IsApproved && answer.ExpertID != query.ViewerID {
			continue
		}
		out = append(out, s.hydrate(answer))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsAccepted != out[j].IsAccepted {
			return out[i].IsAccepted
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > query.PageSize {
		out = out[:query.PageSize]
	}
	return AnswerPage{Answers: out}, nil
}

func (s *fakeStore) ListAnswerActions(_ context.Context, answerID string, _ filter.SQLCondition) ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Action(nil), s.actions[answerID]...), nil
}

func (s *fakeStore) Commit(_ context.Context, t Transition) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return Question{}, s.commitErr
	}
	answer := t.Answer
	switch t.Kind {
	case TransitionCreate:
		for _, existing := range s.answers {
			if existing.QuestionID == answer.QuestionID && existing.ExpertID == answer.ExpertID {
				return Question{}, ErrConflict
			}
		}
	case TransitionSave, TransitionDelete:
		stored, ok := s.answers[answer.ID]
		if !ok {
			return Question{}, ErrNotFound
		}
		if t.ExpectApproved != nil && stored.IsApproved != *t.ExpectApproved {
			return Question{}, ErrConflict
		}
	}
	question, ok := s.questions[answer.QuestionID]
	if !ok {
		return Question{}, ErrNotFound
	}

	if t.Kind == TransitionDelete {
		delete(s.answers, answer.ID)
		delete(s.actions, answer.ID)
	} else {
		answer.SocialPosts = maps.Clone(answer.SocialPosts)
		answer.Actions = ActionLog{}
		s.answers[answer.ID] = answer
		s.appendActions(answer.ID, t.Answer.Actions.Pending())
	}
	question = t.Question.Apply(question, t.At)
	s.questions[question.ID] = question
	return question, nil
}

func (s *fakeStore) AcceptAnswer(_ context.Context, answer Answer, question Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[question.ID]
	if !ok {
		return ErrNotFound
	}
	if current.HasAcceptedAnswer {
		return ErrConflict
	}
	for id, other := range s.answers {
		if other.QuestionID == question.ID && other.IsAccepted {
			other.IsAccepted = false
			s.answers[id] = other
		}
	}
	stored, ok := s.answers[answer.ID]
	if !ok {
		return ErrNotFound
	}
	stored.IsAccepted = true
	stored.UpdatedAt = answer.UpdatedAt
	s.answers[answer.ID] = stored
	s.appendActions(answer.ID, answer.Actions.Pending())
	s.questions[question.ID] = question
	return nil
}

func (s *fakeStore) GetQuestion(_ context.Context, questionID string) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[questionID]
	if !ok {
		return Question{}, ErrNotFound
	}
	return question, nil
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) AdjustReputation(_ context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	s.reputation[userID] += delta
	return nil
}

func (s *fakeStore) appendActions(answerID string, pending []Action) {
	for _, action := range pending {
		action.Seq = len(s.actions[answerID]) + 1
		s.actions[answerID] = append(s.actions[answerID], action)
	}
}

func (s *fakeStore) hydrate(answer Answer) Answer {
	answer.SocialPosts = maps.Clone(answer.SocialPosts)
	answer.Actions = RestoreActionLog(s.actions[answer.ID])
	return answer
}

// fakeSyndicator tracks one post per configured platform and records calls.
type fakeSyndicator struct {
	mu        sync.Mutex
	platforms []Platform
	syncs     []string
	deletes   []string
	subjects  []Subject
}

func (f *fakeSyndicator) Sync(_ context.Context, answer *Answer, subject Subject) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, answer.ID)
	f.subjects = append(f.subjects, subject)
	for _, platform := range f.platforms {
		postID := string(platform) + "-post-" + answer.ID
		answer.TrackPost(platform, postID, answer.UpdatedAt)
		answer.Actions.Append(ActionSocialPublish, map[string]string{"platform": string(platform), "status": "ok"}, answer.UpdatedAt)
	}
}

func (f *fakeSyndicator) DeleteAll(_ context.Context, answer *Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, answer.ID)
	if len(answer.SocialPosts) == 0 {
		return
	}
	info := make(map[string]string)
	for platform := range answer.SocialPosts {
		info[string(platform)] = "ok"
		answer.UntrackPost(platform)
	}
	answer.Actions.Append(ActionSocialDelete, info, answer.UpdatedAt)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]EventKind, len(n.events))
	for i, event := range n.events {
		kinds[i] = event.Kind
	}
	return kinds
}

type discardEvents struct{}

func (discardEvents) Action(context.Context, ActionKind, string, string, map[string]string) {}
func (discardEvents) Error(context.Context, string, string, error)                        {}
func (discardEvents) Security(context.Context, string, string, string)                    {}
